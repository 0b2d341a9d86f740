package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joeblew999/plat-basemap/internal/pmtiles"
)

// Discover lists the PMTiles archives in tilesDir and describes each one as
// a tile source served under urlPrefix (e.g. "/tiles"). Vector archives use
// the file stem as their source layer. Unreadable files are skipped.
func Discover(tilesDir, urlPrefix string) ([]Descriptor, error) {
	entries, err := os.ReadDir(tilesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var found []Descriptor
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pmtiles" {
			continue
		}

		header, err := pmtiles.ReadHeader(filepath.Join(tilesDir, entry.Name()))
		if err != nil {
			continue
		}

		stem := strings.TrimSuffix(entry.Name(), ".pmtiles")
		d := Descriptor{
			ID:           "pmtiles_" + stem,
			Label:        stem,
			Kind:         Vector,
			URLTemplates: []string{fmt.Sprintf("pmtiles://%s/%s", strings.TrimSuffix(urlPrefix, "/"), entry.Name())},
			TileSize:     512,
			MinZoom:      int(header.MinZoom),
			MaxZoom:      int(header.MaxZoom),
			SourceLayer:  stem,
		}
		if header.TileType.Raster() {
			d.Kind = Raster
			d.TileSize = 256
			d.SourceLayer = ""
		}
		found = append(found, d)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, nil
}
