// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mission

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileVersion is the current mission file version.
const FileVersion = 1

// File is the on-disk form of a planned or downloaded mission. Items do not
// include the synthetic home at sequence 0.
type File struct {
	Version  int       `json:"version" yaml:"version" cbor:"1,keyasint"`
	Created  time.Time `json:"created" yaml:"created" cbor:"2,keyasint"`
	Home     Position  `json:"home" yaml:"home" cbor:"3,keyasint"`
	Boundary Boundary  `json:"boundary,omitempty" yaml:"boundary,omitempty" cbor:"4,keyasint,omitempty"`
	Items    []Item    `json:"items" yaml:"items" cbor:"5,keyasint"`
}

// Format is a mission file encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatCBOR:
		return "cbor"
	default:
		return "json"
	}
}

// FormatForPath picks an encoding from the file extension. Unknown
// extensions use JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".cbor":
		return FormatCBOR
	default:
		return FormatJSON
	}
}

// Marshal encodes the file in the given format.
func (f *File) Marshal(format Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(f)
	case FormatCBOR:
		data, err = cbor.Marshal(f)
	default:
		data, err = json.MarshalIndent(f, "", "  ")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s mission", format)
	}
	return data, nil
}

// Unmarshal decodes a mission file and validates its items.
func Unmarshal(data []byte, format Format) (*File, error) {
	var f File
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	case FormatCBOR:
		err = cbor.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s mission", format)
	}
	if f.Version > FileVersion {
		return nil, errors.Errorf("unsupported mission file version %d", f.Version)
	}
	if err := Validate(f.Items, 1); err != nil {
		return nil, err
	}
	return &f, nil
}

// Save writes the file to path, choosing the encoding from the extension.
func (f *File) Save(path string) error {
	if f.Version == 0 {
		f.Version = FileVersion
	}
	data, err := f.Marshal(FormatForPath(path))
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "write mission")
}

// Load reads a mission file, choosing the encoding from the extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read mission")
	}
	f, err := Unmarshal(data, FormatForPath(path))
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", path)
	}
	return f, nil
}
