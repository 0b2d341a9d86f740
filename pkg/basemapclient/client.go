// Package basemapclient is a Go client for the plat-basemap REST API.
package basemapclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Health is the /health response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Info is the /api/v1/info response.
type Info struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	DataDir  string   `json:"data_dir"`
	Layers   int      `json:"layers"`
	Sessions int      `json:"sessions"`
	Features []string `json:"features"`
}

// Entry is a tile catalog entry.
type Entry struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Kind        string   `json:"kind"`
	Tiles       []string `json:"tiles"`
	TileSize    int      `json:"tileSize"`
	MinZoom     int      `json:"minzoom"`
	MaxZoom     int      `json:"maxzoom"`
	Attribution string   `json:"attribution,omitempty"`
	Default     bool     `json:"default"`
}

// CatalogPage is one page of the tile catalog.
type CatalogPage struct {
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
	Data   []Entry `json:"data"`
}

// LayerState is the control state of one layer.
type LayerState struct {
	Visible bool    `json:"visible"`
	Opacity float64 `json:"opacity"`
}

// ControlState is a viewer session's layer control state.
type ControlState struct {
	Session  string                `json:"session"`
	Selected string                `json:"selected"`
	Visible  []string              `json:"visible"`
	Shown    []string              `json:"shown"`
	Layers   map[string]LayerState `json:"layers"`
}

// Error is a problem response from the server.
type Error struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

// Client calls a plat-basemap server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL, e.g. http://localhost:8086.
func New(baseURL string) *Client {
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: http.DefaultClient}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		b, _ := io.ReadAll(resp.Body)
		json.Unmarshal(b, apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetInfo(ctx context.Context) (*Info, error) {
	var out Info
	if err := c.do(ctx, http.MethodGet, "/api/v1/info", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCatalog returns catalog entries from offset. A limit of zero returns
// them all.
func (c *Client) ListCatalog(ctx context.Context, offset, limit int) (*CatalogPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	var out CatalogPage
	if err := c.do(ctx, http.MethodGet, "/api/v1/catalog?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetEntry(ctx context.Context, id string) (*Entry, error) {
	var out Entry
	if err := c.do(ctx, http.MethodGet, "/api/v1/catalog/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStyle returns the initial MapLibre style as raw JSON.
func (c *Client) GetStyle(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/v1/style", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetControl(ctx context.Context, session string) (*ControlState, error) {
	var out ControlState
	if err := c.do(ctx, http.MethodGet, c.controlPath(session, ""), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SelectBase shows layer as the session's basemap.
func (c *Client) SelectBase(ctx context.Context, session, layer string) (*ControlState, error) {
	var out ControlState
	if err := c.do(ctx, http.MethodPost, c.controlPath(session, "/base/"+url.PathEscape(layer)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetOverlay shows or hides an overlay.
func (c *Client) SetOverlay(ctx context.Context, session, layer string, visible bool) (*ControlState, error) {
	var out ControlState
	path := c.controlPath(session, "/overlay/"+url.PathEscape(layer)+"?visible="+strconv.FormatBool(visible))
	if err := c.do(ctx, http.MethodPost, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetOpacity sets an overlay's opacity (0-1).
func (c *Client) SetOpacity(ctx context.Context, session, layer string, value float64) (*ControlState, error) {
	var out ControlState
	path := c.controlPath(session, "/opacity/"+url.PathEscape(layer)+"?value="+strconv.FormatFloat(value, 'f', -1, 64))
	if err := c.do(ctx, http.MethodPost, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) controlPath(session, rest string) string {
	return "/api/v1/viewer/sessions/" + url.PathEscape(session) + "/control" + rest
}
