package mapview

import "github.com/ppiankov/acmap/internal/model"

// Icon describes the marker image
type Icon struct {
	IconURL     string `json:"iconUrl"`
	ShadowURL   string `json:"shadowUrl"`
	IconSize    [2]int `json:"iconSize"`
	IconAnchor  [2]int `json:"iconAnchor"`
	PopupAnchor [2]int `json:"popupAnchor"`
	ShadowSize  [2]int `json:"shadowSize"`
}

// Settings is the view configuration handed to the Leaflet page
type Settings struct {
	Center             [2]float64    `json:"center"`
	Zoom               int           `json:"zoom"`
	MinZoom            int           `json:"minZoom"`
	MaxZoom            int           `json:"maxZoom"`
	MaxBounds          [2][2]float64 `json:"maxBounds"`
	MaxBoundsViscosity float64       `json:"maxBoundsViscosity"`
	TileURL            string        `json:"tileUrl"`
	Attribution        string        `json:"attribution"`
	Icon               Icon          `json:"icon"`
}

// DefaultIcon is the stock Leaflet marker
func DefaultIcon() Icon {
	return Icon{
		IconURL:     "https://unpkg.com/leaflet@1.9.4/dist/images/marker-icon.png",
		ShadowURL:   "https://unpkg.com/leaflet@1.9.4/dist/images/marker-shadow.png",
		IconSize:    [2]int{25, 41},
		IconAnchor:  [2]int{12, 41},
		PopupAnchor: [2]int{1, -34},
		ShadowSize:  [2]int{41, 41},
	}
}

// SettingsFromConfig builds view settings from configuration
func SettingsFromConfig(cfg model.MapConfig) Settings {
	return Settings{
		Center:             cfg.Center,
		Zoom:               cfg.Zoom,
		MinZoom:            cfg.MinZoom,
		MaxZoom:            cfg.MaxZoom,
		MaxBounds:          cfg.MaxBounds,
		MaxBoundsViscosity: cfg.MaxBoundsViscosity,
		TileURL:            cfg.TileURL,
		Attribution:        cfg.Attribution,
		Icon:               DefaultIcon(),
	}
}
