package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/tuifeed/internal/model"
)

// Format is a history file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (use json or yaml)", value)
}

// FormatForPath guesses the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes units in the given format.
func Encode(w io.Writer, units []model.Unit, format Format) error {
	if units == nil {
		units = []model.Unit{}
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(units); err != nil {
			return fmt.Errorf("failed to encode history: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(units); err != nil {
			return fmt.Errorf("failed to encode history: %w", err)
		}
		return nil
	}
}

// Decode parses an exported history. Malformed entries are skipped.
func Decode(data []byte, format Format) ([]model.Unit, error) {
	if format == FormatYAML {
		return model.DecodeHistoryYAML(data)
	}
	return model.DecodeHistory(data)
}
