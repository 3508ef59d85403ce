// Package config holds the tunable parameters of the width-estimation
// pipeline and loads them from JSON or YAML files and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STREET_WIDTH_"

const maxFileSize = 1 * 1024 * 1024

// Config groups every threshold the pipeline stages read. Zero values are
// never meaningful; start from Default and overlay a file or environment.
type Config struct {
	// Mask builder
	MinAreaDivisor int `json:"min_area_divisor" yaml:"min_area_divisor"`

	// Line extractor
	CannyLow       float64 `json:"canny_low" yaml:"canny_low"`
	CannyHigh      float64 `json:"canny_high" yaml:"canny_high"`
	CannyAperture  int     `json:"canny_aperture" yaml:"canny_aperture"`
	HoughThreshold int     `json:"hough_threshold" yaml:"hough_threshold"`
	HoughMinLength int     `json:"hough_min_length" yaml:"hough_min_length"`
	HoughMaxGap    int     `json:"hough_max_gap" yaml:"hough_max_gap"`

	// Horizontal filter and dedup
	AngleTolerance   float64 `json:"angle_tolerance" yaml:"angle_tolerance"`
	DedupBuffer      float64 `json:"dedup_buffer" yaml:"dedup_buffer"`
	OverlapThreshold float64 `json:"overlap_threshold" yaml:"overlap_threshold"`

	// Cluster segmenter and aggregator
	ImageSize int     `json:"image_size" yaml:"image_size"`
	BandWidth int     `json:"band_width" yaml:"band_width"`
	// CenterY follows ImageSize/2 when only the image size is overridden.
	CenterY   float64 `json:"center_y" yaml:"center_y"`

	// Width solver
	Scale         float64 `json:"scale" yaml:"scale"`
	MaxIterations int     `json:"max_iterations" yaml:"max_iterations"`

	// Buffer classifier
	AlignmentThreshold float64 `json:"alignment_threshold" yaml:"alignment_threshold"`
	AlignmentRatio     float64 `json:"alignment_ratio" yaml:"alignment_ratio"`
	ProximityThreshold float64 `json:"proximity_threshold" yaml:"proximity_threshold"`

	// Capture planning
	SidewalkFOV float64 `json:"sidewalk_fov" yaml:"sidewalk_fov"`
	BufferFOV   float64 `json:"buffer_fov" yaml:"buffer_fov"`
	AlignedFOV  float64 `json:"aligned_fov" yaml:"aligned_fov"`

	// Batch
	Workers        int    `json:"workers" yaml:"workers"`
	DiagnosticsDir string `json:"diagnostics_dir" yaml:"diagnostics_dir"`
	Diagnostics    bool   `json:"diagnostics" yaml:"diagnostics"`
}

// Default returns the calibrated defaults of the two-pitch pipeline.
func Default() *Config {
	return &Config{
		MinAreaDivisor:     14,
		CannyLow:           30,
		CannyHigh:          100,
		CannyAperture:      5,
		HoughThreshold:     25,
		HoughMinLength:     20,
		HoughMaxGap:        30,
		AngleTolerance:     10,
		DedupBuffer:        5,
		OverlapThreshold:   0.7,
		ImageSize:          640,
		BandWidth:          10,
		CenterY:            320,
		Scale:              2.5,
		MaxIterations:      50,
		AlignmentThreshold: 5,
		AlignmentRatio:     0.2,
		ProximityThreshold: 10,
		SidewalkFOV:        70,
		BufferFOV:          80,
		AlignedFOV:         95,
		Workers:            4,
	}
}

// Load reads a .json, .yaml or .yml file over the defaults. Keys absent
// from the file keep their default value.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must be .json, .yaml or .yml, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	keys := map[string]interface{}{}
	if ext == ".json" {
		if err = json.Unmarshal(data, cfg); err == nil {
			err = json.Unmarshal(data, &keys)
		}
	} else if err = yaml.Unmarshal(data, cfg); err == nil {
		err = yaml.Unmarshal(data, &keys)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}
	_, centerSet := keys["center_y"]
	cfg.followImageSize(Default().ImageSize, centerSet)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays STREET_WIDTH_* variables using the same key names as
// the file formats, upper-cased (STREET_WIDTH_ANGLE_TOLERANCE=12).
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	prevSize := c.ImageSize
	center, _ := lookup(EnvPrefix + "CENTER_Y")
	centerSet := center != ""

	var errs []error
	for key, field := range c.fields() {
		raw, ok := lookup(EnvPrefix + strings.ToUpper(key))
		if !ok || raw == "" {
			continue
		}
		if err := field.set(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, strings.ToUpper(key), err))
		}
	}
	c.followImageSize(prevSize, centerSet)
	return errors.Join(errs...)
}

// followImageSize recenters CenterY on a changed ImageSize when the center
// was not given and still sits in the middle of the previous size.
func (c *Config) followImageSize(prevSize int, centerSet bool) {
	if centerSet || c.ImageSize == prevSize || c.CenterY != float64(prevSize)/2 {
		return
	}
	c.CenterY = float64(c.ImageSize) / 2
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.MinAreaDivisor <= 0 {
		return fmt.Errorf("min_area_divisor must be positive, got %d", c.MinAreaDivisor)
	}
	if c.CannyLow < 0 || c.CannyHigh < c.CannyLow {
		return fmt.Errorf("canny thresholds must satisfy 0 <= low <= high, got %v/%v", c.CannyLow, c.CannyHigh)
	}
	if c.CannyAperture != 3 && c.CannyAperture != 5 {
		return fmt.Errorf("canny_aperture must be 3 or 5, got %d", c.CannyAperture)
	}
	if c.HoughThreshold <= 0 || c.HoughMinLength < 0 || c.HoughMaxGap < 0 {
		return fmt.Errorf("hough parameters must be non-negative with a positive threshold")
	}
	if c.AngleTolerance < 0 || c.AngleTolerance > 90 {
		return fmt.Errorf("angle_tolerance must be between 0 and 90, got %v", c.AngleTolerance)
	}
	if c.DedupBuffer <= 0 {
		return fmt.Errorf("dedup_buffer must be positive, got %v", c.DedupBuffer)
	}
	if c.OverlapThreshold < 0 || c.OverlapThreshold > 1 {
		return fmt.Errorf("overlap_threshold must be between 0 and 1, got %v", c.OverlapThreshold)
	}
	if c.ImageSize <= 0 || c.BandWidth <= 0 {
		return fmt.Errorf("image_size and band_width must be positive")
	}
	if c.CenterY <= 0 || c.CenterY >= float64(c.ImageSize) {
		return fmt.Errorf("center_y must lie inside the %d px image, got %v", c.ImageSize, c.CenterY)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", c.Scale)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.AlignmentRatio < 0 || c.AlignmentRatio > 1 {
		return fmt.Errorf("alignment_ratio must be between 0 and 1, got %v", c.AlignmentRatio)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Boundaries returns the cluster band edges 0, BandWidth, ... up to and
// including ImageSize.
func (c *Config) Boundaries() []int {
	var b []int
	for x := 0; x < c.ImageSize; x += c.BandWidth {
		b = append(b, x)
	}
	return append(b, c.ImageSize)
}

type setter struct {
	set func(string) error
}

func intField(p *int) setter {
	return setter{set: func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}}
}

func floatField(p *float64) setter {
	return setter{set: func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}}
}

func boolField(p *bool) setter {
	return setter{set: func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}}
}

func stringField(p *string) setter {
	return setter{set: func(s string) error {
		*p = s
		return nil
	}}
}

func (c *Config) fields() map[string]setter {
	return map[string]setter{
		"min_area_divisor":    intField(&c.MinAreaDivisor),
		"canny_low":           floatField(&c.CannyLow),
		"canny_high":          floatField(&c.CannyHigh),
		"canny_aperture":      intField(&c.CannyAperture),
		"hough_threshold":     intField(&c.HoughThreshold),
		"hough_min_length":    intField(&c.HoughMinLength),
		"hough_max_gap":       intField(&c.HoughMaxGap),
		"angle_tolerance":     floatField(&c.AngleTolerance),
		"dedup_buffer":        floatField(&c.DedupBuffer),
		"overlap_threshold":   floatField(&c.OverlapThreshold),
		"image_size":          intField(&c.ImageSize),
		"band_width":          intField(&c.BandWidth),
		"center_y":            floatField(&c.CenterY),
		"scale":               floatField(&c.Scale),
		"max_iterations":      intField(&c.MaxIterations),
		"alignment_threshold": floatField(&c.AlignmentThreshold),
		"alignment_ratio":     floatField(&c.AlignmentRatio),
		"proximity_threshold": floatField(&c.ProximityThreshold),
		"sidewalk_fov":        floatField(&c.SidewalkFOV),
		"buffer_fov":          floatField(&c.BufferFOV),
		"aligned_fov":         floatField(&c.AlignedFOV),
		"workers":             intField(&c.Workers),
		"diagnostics_dir":     stringField(&c.DiagnosticsDir),
		"diagnostics":         boolField(&c.Diagnostics),
	}
}
