// File: internal/cdk/assembly.go
// Brief: In-memory cloud assembly produced by in-process synthesis.

package cdk

import (
	"github.com/example/cdkforge/internal/assets"
)

// Artifact is one synthesis output inside a cloud assembly. The set of
// artifact kinds is closed: stacks and asset manifests are the only ones the
// build pipeline reads.
type Artifact interface {
	artifact()
}

// StackArtifact is a rendered template keyed by its logical stack ID.
type StackArtifact struct {
	LogicalID string
	Template  map[string]any
}

func (*StackArtifact) artifact() {}

// AssetManifestArtifact is the assembly's asset manifest together with the
// on-disk path the publish tool is pointed at.
type AssetManifestArtifact struct {
	File     string
	Manifest *assets.Manifest
}

func (*AssetManifestArtifact) artifact() {}

// CloudAssembly is the transient bundle of synthesis outputs for one build.
// It holds the rendered template for the build's stack and at most one asset
// manifest; it is discarded once the template is extracted.
type CloudAssembly struct {
	Artifacts []Artifact
}

// AssetManifest returns the assembly's asset manifest artifact, if any.
func (a *CloudAssembly) AssetManifest() (*AssetManifestArtifact, bool) {
	for _, art := range a.Artifacts {
		if m, ok := art.(*AssetManifestArtifact); ok {
			return m, true
		}
	}
	return nil, false
}

// StackByName returns the stack artifact synthesized under logicalID.
func (a *CloudAssembly) StackByName(logicalID string) (*StackArtifact, bool) {
	for _, art := range a.Artifacts {
		if s, ok := art.(*StackArtifact); ok && s.LogicalID == logicalID {
			return s, true
		}
	}
	return nil, false
}
