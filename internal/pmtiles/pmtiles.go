// Package pmtiles reads the fixed-size PMTiles v3 header so local tile
// archives can be offered as catalog overlays without opening their
// directories.
//
// Spec: https://github.com/protomaps/PMTiles/blob/main/spec/v3/spec.md
package pmtiles

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Compression is the compression algorithm applied to individual tiles.
type Compression uint8

const (
	UnknownCompression Compression = 0
	NoCompression      Compression = 1
	Gzip               Compression = 2
	Brotli             Compression = 3
	Zstd               Compression = 4
)

// TileType is the format of individual tile contents.
type TileType uint8

const (
	UnknownTileType TileType = 0
	Mvt             TileType = 1
	Png             TileType = 2
	Jpeg            TileType = 3
	Webp            TileType = 4
	Avif            TileType = 5
)

// Raster reports whether tiles are images rather than vector tiles.
func (t TileType) Raster() bool {
	return t == Png || t == Jpeg || t == Webp || t == Avif
}

// HeaderLen is the size of the binary header in bytes.
const HeaderLen = 127

const magic = "PMTiles"

var ErrNotPMTiles = errors.New("magic number not detected")

// Header is the subset of the v3 header the catalog needs.
type Header struct {
	SpecVersion     uint8
	TileCompression Compression
	TileType        TileType
	MinZoom         uint8
	MaxZoom         uint8
	MinLonE7        int32
	MinLatE7        int32
	MaxLonE7        int32
	MaxLatE7        int32
	CenterZoom      uint8
	CenterLonE7     int32
	CenterLatE7     int32
}

// Bounds returns min lon, min lat, max lon, max lat in degrees.
func (h Header) Bounds() [4]float64 {
	const e7 = 1e7
	return [4]float64{
		float64(h.MinLonE7) / e7, float64(h.MinLatE7) / e7,
		float64(h.MaxLonE7) / e7, float64(h.MaxLatE7) / e7,
	}
}

// byte offsets inside the header
const (
	offVersion    = 7
	offTileComp   = 98
	offTileType   = 99
	offMinZoom    = 100
	offMaxZoom    = 101
	offMinLon     = 102
	offMinLat     = 106
	offMaxLon     = 110
	offMaxLat     = 114
	offCenterZoom = 118
	offCenterLon  = 119
	offCenterLat  = 123
)

// Decode parses a header from the first HeaderLen bytes of b.
func Decode(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, errors.New("buffer too small for header")
	}
	if string(b[:len(magic)]) != magic {
		return Header{}, ErrNotPMTiles
	}
	if b[offVersion] != 3 {
		return Header{}, fmt.Errorf("unsupported pmtiles version %d", b[offVersion])
	}

	i32 := func(off int) int32 { return int32(binary.LittleEndian.Uint32(b[off : off+4])) }
	return Header{
		SpecVersion:     b[offVersion],
		TileCompression: Compression(b[offTileComp]),
		TileType:        TileType(b[offTileType]),
		MinZoom:         b[offMinZoom],
		MaxZoom:         b[offMaxZoom],
		MinLonE7:        i32(offMinLon),
		MinLatE7:        i32(offMinLat),
		MaxLonE7:        i32(offMaxLon),
		MaxLatE7:        i32(offMaxLat),
		CenterZoom:      b[offCenterZoom],
		CenterLonE7:     i32(offCenterLon),
		CenterLatE7:     i32(offCenterLat),
	}, nil
}

// Encode writes h as a full-length header with empty directory offsets.
func Encode(h Header) []byte {
	b := make([]byte, HeaderLen)
	copy(b, magic)
	b[offVersion] = 3
	b[offTileComp] = byte(h.TileCompression)
	b[offTileType] = byte(h.TileType)
	b[offMinZoom] = h.MinZoom
	b[offMaxZoom] = h.MaxZoom
	put := func(off int, v int32) { binary.LittleEndian.PutUint32(b[off:off+4], uint32(v)) }
	put(offMinLon, h.MinLonE7)
	put(offMinLat, h.MinLatE7)
	put(offMaxLon, h.MaxLonE7)
	put(offMaxLat, h.MaxLatE7)
	b[offCenterZoom] = h.CenterZoom
	put(offCenterLon, h.CenterLonE7)
	put(offCenterLat, h.CenterLatE7)
	return b
}

// ReadHeader reads the header of a PMTiles archive on disk.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	b := make([]byte, HeaderLen)
	if _, err := io.ReadFull(f, b); err != nil {
		return Header{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(b)
}
