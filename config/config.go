// Package config loads pipeline thresholds from YAML so automation can
// tune column detection, anchoring, and validation without recompiling.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anchorage-dev/anchorage/layout"
	"github.com/anchorage-dev/anchorage/validate"
)

// Config aggregates every tunable threshold of the pipeline. Zero or
// missing values fall back to the component defaults.
type Config struct {
	Columns  Columns  `yaml:"columns"`
	Anchor   Anchor   `yaml:"anchoring"`
	Geometry Geometry `yaml:"geometry"`
	Visual   Visual   `yaml:"visual"`
}

// Columns mirrors layout.ColumnConfig
type Columns struct {
	GapThreshold   float64 `yaml:"gap_threshold"`
	MinClusterSize int     `yaml:"min_cluster_size"`
	BoundsMargin   float64 `yaml:"bounds_margin"`
	WideBlockRatio float64 `yaml:"wide_block_ratio"`
}

// Anchor mirrors layout.AnchorConfig
type Anchor struct {
	Workers int `yaml:"workers"`
}

// Geometry mirrors validate.GeometryConfig
type Geometry struct {
	BaseTolerance float64 `yaml:"base_tolerance"`
	WidthFraction float64 `yaml:"width_fraction"`
	PassRate      float64 `yaml:"pass_rate"`
}

// Visual mirrors validate.VisualConfig
type Visual struct {
	DPI            float64 `yaml:"dpi"`
	PixelThreshold uint8   `yaml:"pixel_threshold"`
	PageBudget     float64 `yaml:"page_budget"`
}

// Default returns a config populated with every component's defaults
func Default() Config {
	col := layout.DefaultColumnConfig()
	anc := layout.DefaultAnchorConfig()
	geo := validate.DefaultGeometryConfig()
	vis := validate.DefaultVisualConfig()
	return Config{
		Columns: Columns{
			GapThreshold:   col.GapThreshold,
			MinClusterSize: col.MinClusterSize,
			BoundsMargin:   col.BoundsMargin,
			WideBlockRatio: col.WideBlockRatio,
		},
		Anchor: Anchor{Workers: anc.Workers},
		Geometry: Geometry{
			BaseTolerance: geo.BaseTolerance,
			WidthFraction: geo.WidthFraction,
			PassRate:      geo.PassRate,
		},
		Visual: Visual{
			DPI:            vis.DPI,
			PixelThreshold: vis.PixelThreshold,
			PageBudget:     vis.PageBudget,
		},
	}
}

// Parse reads a YAML document over the defaults
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing yaml: %w", err)
	}
	return cfg, nil
}

// Load reads a YAML config file over the defaults
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// ColumnConfig converts to the detector's config type
func (c Config) ColumnConfig() layout.ColumnConfig {
	return layout.ColumnConfig{
		GapThreshold:   c.Columns.GapThreshold,
		MinClusterSize: c.Columns.MinClusterSize,
		BoundsMargin:   c.Columns.BoundsMargin,
		WideBlockRatio: c.Columns.WideBlockRatio,
	}
}

// AnchorConfig converts to the anchoring engine's config type
func (c Config) AnchorConfig() layout.AnchorConfig {
	return layout.AnchorConfig{Workers: c.Anchor.Workers}
}

// GeometryConfig converts to the geometry validator's config type
func (c Config) GeometryConfig() validate.GeometryConfig {
	return validate.GeometryConfig{
		BaseTolerance: c.Geometry.BaseTolerance,
		WidthFraction: c.Geometry.WidthFraction,
		PassRate:      c.Geometry.PassRate,
	}
}

// VisualConfig converts to the visual differ's config type
func (c Config) VisualConfig() validate.VisualConfig {
	return validate.VisualConfig{
		DPI:            c.Visual.DPI,
		PixelThreshold: c.Visual.PixelThreshold,
		PageBudget:     c.Visual.PageBudget,
	}
}
