package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/armieahmed7/halalcities-sub003/internal/app"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

// Manifest lists the cities to build and, optionally, a JSON file of curated
// sponsored listings. Relative paths resolve against the manifest directory.
type Manifest struct {
	Cities   []app.CitySeed `yaml:"cities"`
	Listings string         `yaml:"listings,omitempty"`

	dir string
}

func loadManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)

	seen := make(map[string]struct{}, len(m.Cities))
	for i, c := range m.Cities {
		slug := app.Slugify(c.Slug)
		if slug == "" {
			slug = app.Slugify(c.Name)
		}
		if slug == "" {
			return Manifest{}, fmt.Errorf("manifest: city #%d has neither slug nor name", i+1)
		}
		if _, dup := seen[slug]; dup {
			return Manifest{}, fmt.Errorf("manifest: duplicate city %q", slug)
		}
		seen[slug] = struct{}{}
		m.Cities[i].Slug = slug
	}
	if len(m.Cities) == 0 {
		return Manifest{}, fmt.Errorf("manifest: no cities")
	}
	return m, nil
}

func (m Manifest) loadListings() ([]domain.SponsoredListing, error) {
	if strings.TrimSpace(m.Listings) == "" {
		return nil, nil
	}
	p := m.Listings
	if !filepath.IsAbs(p) {
		p = filepath.Join(m.dir, p)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read listings: %w", err)
	}
	var ls []domain.SponsoredListing
	if err := json.Unmarshal(b, &ls); err != nil {
		return nil, fmt.Errorf("parse listings %s: %w", p, err)
	}
	return ls, nil
}
