package intent

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is an intent file encoding.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("unknown intent file type %q", filepath.Ext(path))
}

// LoadFile reads and validates an intent file.
func LoadFile(path string) (*Intent, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent: %w", err)
	}
	in, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// Parse decodes and validates an intent. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Intent, error) {
	var in Intent
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&in); err != nil {
			return nil, fmt.Errorf("failed to decode yaml intent: %w", err)
		}
	case TOML:
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return nil, fmt.Errorf("failed to decode toml intent: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown intent format %q", format)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid intent %q: %w", in.Name, err)
	}
	return &in, nil
}
