package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-basemap/internal/catalog"
	"github.com/joeblew999/plat-basemap/internal/logging"
	"github.com/joeblew999/plat-basemap/internal/server"
	"github.com/joeblew999/plat-basemap/internal/style"
	"github.com/joeblew999/plat-basemap/pkg/basemapclient"
)

// Options defines all CLI flags and env vars for the basemap server.
// Flags: --host, --port, --data-dir, --web-dir, --catalog, --log-level, --log-file, --max-sessions
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ... (also read from .env)
type Options struct {
	Host        string `doc:"Host to bind to" default:"0.0.0.0"`
	Port        int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir     string `doc:"Directory for tile archives (tiles/*.pmtiles)" default:".data"`
	WebDir      string `doc:"Directory of template overrides and static/ files" default:""`
	Catalog     string `doc:"YAML tile catalog replacing the built-in one" default:""`
	LogLevel    string `doc:"Log level (debug, info, warn, error)" default:"info"`
	LogFile     string `doc:"Also write logs to this file, rotated" default:""`
	MaxSessions int    `doc:"Maximum concurrent viewer sessions (0 for no limit)" default:"100"`
}

func newServer(opts *Options) (*server.Server, error) {
	log, err := logging.New(logging.Config{Level: opts.LogLevel, File: opts.LogFile})
	if err != nil {
		return nil, err
	}
	return server.New(server.Config{
		Host:        opts.Host,
		Port:        strconv.Itoa(opts.Port),
		DataDir:     opts.DataDir,
		WebDir:      opts.WebDir,
		CatalogFile: opts.Catalog,
		MaxSessions: opts.MaxSessions,
		Logger:      log,
	})
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func marshal(v any, useYAML bool) ([]byte, error) {
	if useYAML {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var httpServer *http.Server

		hooks.OnStart(func() {
			srv, err := newServer(opts)
			if err != nil {
				fatal("Error starting server: %v", err)
			}
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-basemap server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal("Server error: %v", err)
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
		})
	})

	cli.Root().Use = "basemap"
	cli.Root().Short = "Basemap viewer with switchable tile layers"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts)
			if err != nil {
				fatal("Error creating server: %v", err)
			}
			defer srv.Close()

			useYAML, _ := cmd.Flags().GetBool("yaml")
			output, err := marshal(srv.OpenAPI(), useYAML)
			if err != nil {
				fatal("Error marshaling spec: %v", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// gen-client subcommand: generate Go client SDK via humaclient
	genClientCmd := &cobra.Command{
		Use:   "gen-client",
		Short: "Generate Go client SDK from the API",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts)
			if err != nil {
				fatal("Error creating server: %v", err)
			}
			defer srv.Close()

			outDir, _ := cmd.Flags().GetString("output")
			if err := srv.GenerateClient(outDir); err != nil {
				fatal("Error generating client: %v", err)
			}
			fmt.Printf("Client SDK generated in %s/\n", outDir)
		}),
	}
	genClientCmd.Flags().StringP("output", "o", "pkg/basemapsdk", "Output directory for generated client")
	cli.Root().AddCommand(genClientCmd)

	// style subcommand: print the style document the map starts with
	styleCmd := &cobra.Command{
		Use:   "style",
		Short: "Print the initial map style (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cat := catalog.Default()
			if opts.Catalog != "" {
				c, err := catalog.Load(opts.Catalog)
				if err != nil {
					fatal("Error loading catalog: %v", err)
				}
				cat = c
			}
			doc, err := style.BuildInitialStyle(cat)
			if err != nil {
				fatal("Error building style: %v", err)
			}

			useYAML, _ := cmd.Flags().GetBool("yaml")
			output, err := marshal(doc, useYAML)
			if err != nil {
				fatal("Error marshaling style: %v", err)
			}
			fmt.Println(string(output))
		}),
	}
	styleCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(styleCmd)

	// status subcommand: query a running server
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show health, catalog and live sessions of a running server",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			url, _ := cmd.Flags().GetString("url")
			if url == "" {
				url = fmt.Sprintf("http://localhost:%d", opts.Port)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			c := basemapclient.New(url)
			health, err := c.Health(ctx)
			if err != nil {
				fatal("Error reaching %s: %v", url, err)
			}
			info, err := c.GetInfo(ctx)
			if err != nil {
				fatal("Error reading info: %v", err)
			}
			page, err := c.ListCatalog(ctx, 0, 0)
			if err != nil {
				fatal("Error reading catalog: %v", err)
			}

			fmt.Printf("%s %s: %s\n", info.Name, info.Version, health.Status)
			fmt.Printf("  Sessions: %d\n", info.Sessions)
			fmt.Printf("  Layers:   %d\n", page.Total)
			for _, e := range page.Data {
				marker := " "
				if e.Default {
					marker = "*"
				}
				fmt.Printf("    %s %-20s %-8s z%d-%d  %s\n", marker, e.ID, e.Kind, e.MinZoom, e.MaxZoom, e.Label)
			}
		}),
	}
	statusCmd.Flags().String("url", "", "Server base URL (default http://localhost:<port>)")
	cli.Root().AddCommand(statusCmd)

	cli.Run()
}
