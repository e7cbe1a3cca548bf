package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed seed/catalog.json
var seedCatalog []byte

// Source supplies catalog data from a backing store such as MySQL.
type Source interface {
	LoadCatalog(ctx context.Context) (Data, error)
}

// Decode parses a catalog document. Unknown fields are rejected so that a
// renamed key in a generated file fails loudly at startup.
func Decode(b []byte) (Data, error) {
	var d Data
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return Data{}, fmt.Errorf("catalog: decode: %w", err)
	}
	return d, nil
}

// LoadFile builds a snapshot from a JSON file; an empty path loads the
// embedded seed catalog.
func LoadFile(path string) (*Snapshot, error) {
	b := seedCatalog
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", path, err)
		}
	}
	d, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return New(d)
}

func LoadSource(ctx context.Context, src Source) (*Snapshot, error) {
	d, err := src.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load source: %w", err)
	}
	return New(d)
}

// WriteFile writes d as an indented catalog document.
func WriteFile(path string, d Data) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
