// File: internal/assets/manifest.go
// Brief: CDK asset manifest model and template-only classification.

// Package assets reads and classifies CDK asset manifests. A manifest lists
// the file and docker-image assets a synthesized stack needs uploaded before
// its template is deployable; the one interesting question for the build
// pipeline is whether the manifest contains anything beyond the rendered
// template itself.
package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrManifestNotFound reports that a synthesis completed without producing
// the asset manifest the toolchain contract promises.
var ErrManifestNotFound = errors.New("CDK asset manifest artifact not found")

// Manifest mirrors the wire shape of a <stack>.assets.json document. Entry
// bodies are opaque to the build pipeline; only the key sets matter.
type Manifest struct {
	Version      string                     `json:"version,omitempty"`
	Files        map[string]json.RawMessage `json:"files"`
	DockerImages map[string]json.RawMessage `json:"dockerImages"`
}

// Load reads and parses the manifest at path. A missing file maps to
// ErrManifestNotFound so callers can distinguish a toolchain that never
// wrote its manifest from one that wrote garbage.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("read asset manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse asset manifest %s: %w", path, err)
	}
	return &m, nil
}

// TemplateFileName returns the conventional file-asset key under which the
// CDK records a synthesized stack's own template.
func TemplateFileName(stackLogicalID string) string {
	return stackLogicalID + ".template.json"
}

// OnlyTemplateAsset reports whether the manifest's only asset is the
// synthesized template for the given stack. Any docker image, any extra
// file, a differently named file, or an empty file set all mean real assets
// exist and must be published before the template is usable.
func (m *Manifest) OnlyTemplateAsset(stackLogicalID string) bool {
	if m == nil {
		return false
	}
	if len(m.DockerImages) > 0 {
		return false
	}
	if len(m.Files) != 1 {
		return false
	}
	_, ok := m.Files[TemplateFileName(stackLogicalID)]
	return ok
}
