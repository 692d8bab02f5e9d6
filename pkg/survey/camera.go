// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package survey

import (
	_ "embed"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultCameraName is selected when no camera is configured.
const DefaultCameraName = "Sony A6000 16mm"

//go:embed cameras.yaml
var builtinCatalog []byte

// Camera describes the intrinsics of a survey camera.
type Camera struct {
	Name         string  `yaml:"name" json:"name"`
	FocalLength  float64 `yaml:"focal_length" json:"focal_length"`   // mm
	SensorWidth  float64 `yaml:"sensor_width" json:"sensor_width"`   // mm
	SensorHeight float64 `yaml:"sensor_height" json:"sensor_height"` // mm
	ImageWidth   int     `yaml:"image_width" json:"image_width"`     // px
	ImageHeight  int     `yaml:"image_height" json:"image_height"`   // px
}

// Validate reports missing or non-positive intrinsics.
func (c *Camera) Validate() error {
	switch {
	case c.FocalLength <= 0:
		return errors.Errorf("camera %q: focal length must be positive", c.Name)
	case c.SensorWidth <= 0 || c.SensorHeight <= 0:
		return errors.Errorf("camera %q: sensor size must be positive", c.Name)
	case c.ImageWidth <= 0 || c.ImageHeight <= 0:
		return errors.Errorf("camera %q: image size must be positive", c.Name)
	}
	return nil
}

// Catalog is an ordered list of cameras.
type Catalog struct {
	Cameras []Camera `yaml:"cameras"`
}

// ParseCatalog decodes a YAML camera catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "parse camera catalog")
	}
	for i := range c.Cameras {
		if err := c.Cameras[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// BuiltinCatalog returns the catalog shipped with the binary.
func BuiltinCatalog() *Catalog {
	c, err := ParseCatalog(builtinCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog returns the built-in catalog extended with the cameras in
// path. Entries in the file replace built-in entries with the same name.
// An empty path returns the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := BuiltinCatalog()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read camera catalog")
	}
	user, err := ParseCatalog(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", path)
	}
	for _, cam := range user.Cameras {
		c.Add(cam)
	}
	return c, nil
}

// Add inserts cam, replacing any camera with the same name.
func (c *Catalog) Add(cam Camera) {
	for i := range c.Cameras {
		if strings.EqualFold(c.Cameras[i].Name, cam.Name) {
			c.Cameras[i] = cam
			return
		}
	}
	c.Cameras = append(c.Cameras, cam)
}

// Find returns the first camera whose name contains name (case
// insensitive). An exact match wins over a substring match.
func (c *Catalog) Find(name string) (*Camera, bool) {
	var partial *Camera
	for i := range c.Cameras {
		cam := &c.Cameras[i]
		if strings.EqualFold(cam.Name, name) {
			return cam, true
		}
		if partial == nil && strings.Contains(strings.ToLower(cam.Name), strings.ToLower(name)) {
			partial = cam
		}
	}
	return partial, partial != nil
}

// Default returns the default survey camera, or the first entry if it is
// missing from the catalog.
func (c *Catalog) Default() *Camera {
	if cam, ok := c.Find(DefaultCameraName); ok {
		return cam
	}
	if len(c.Cameras) > 0 {
		return &c.Cameras[0]
	}
	return nil
}
