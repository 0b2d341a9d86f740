package catalog

const gsiAttribution = `国土地理院 <a href="https://maps.gsi.go.jp/development/ichiran.html" target="_blank">地理院タイル一覧ページ</a>`

var defaultCatalog = MustNew(
	Descriptor{
		ID:           "std",
		Label:        "標準地図",
		Kind:         Raster,
		URLTemplates: []string{"https://cyberjapandata.gsi.go.jp/xyz/std/{z}/{x}/{y}.png"},
		TileSize:     256,
		MinZoom:      0,
		MaxZoom:      18,
		Attribution:  gsiAttribution,
		Default:      true,
	},
	Descriptor{
		ID:           "pale",
		Label:        "淡色地図",
		Kind:         Raster,
		URLTemplates: []string{"https://cyberjapandata.gsi.go.jp/xyz/pale/{z}/{x}/{y}.png"},
		TileSize:     256,
		MinZoom:      0,
		MaxZoom:      18,
		Attribution:  gsiAttribution,
	},
	Descriptor{
		ID:           "seamlessphoto",
		Label:        "写真",
		Kind:         Raster,
		URLTemplates: []string{"https://cyberjapandata.gsi.go.jp/xyz/seamlessphoto/{z}/{x}/{y}.jpg"},
		TileSize:     256,
		MinZoom:      0,
		MaxZoom:      18,
		Attribution:  gsiAttribution,
	},
	Descriptor{
		ID:           "ortoEsri",
		Label:        "ESRI World Imagery",
		Kind:         Raster,
		URLTemplates: []string{"https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}"},
		TileSize:     256,
		MinZoom:      0,
		MaxZoom:      22,
		Attribution:  "ESRI &copy; <a href='http://www.esri.com'>ESRI</a>",
	},
	Descriptor{
		ID:           "OpenStreetMap",
		Label:        "OpenStreetMap",
		Kind:         Raster,
		URLTemplates: []string{"https://tile.openstreetmap.org/{z}/{x}/{y}.png"},
		TileSize:     256,
		MinZoom:      0,
		MaxZoom:      20,
		Attribution:  "&copy; OpenStreetMap Contributors",
	},
)

// Default returns the built-in catalog. The GSI standard map is the startup basemap.
func Default() Catalog {
	return defaultCatalog
}
