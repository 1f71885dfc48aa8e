package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/tuinote/internal/model"
)

// Format selects a history encoding.
type Format string

// Supported history formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

type historyDoc struct {
	Sessions []model.SessionRecord `json:"sessions" yaml:"sessions"`
}

// ParseFormat accepts json, yaml or yml.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", value)
	}
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

// WriteHistory encodes the whole history.
func WriteHistory(w io.Writer, records []model.SessionRecord, format Format) error {
	doc := historyDoc{Sessions: records}
	if doc.Sessions == nil {
		doc.Sessions = []model.SessionRecord{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// ReadHistory decodes a history written by WriteHistory.
func ReadHistory(r io.Reader, format Format) ([]model.SessionRecord, error) {
	var doc historyDoc
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json history: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml history: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return doc.Sessions, nil
}
