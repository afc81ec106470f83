package assets

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOnlyTemplateAsset(t *testing.T) {
	cases := []struct {
		name  string
		files []string
		image bool
		stack string
		want  bool
	}{
		{"template only", []string{"CDKStack.template.json"}, false, "CDKStack", true},
		{"template only, other id", []string{"Network.template.json"}, false, "Network", true},
		{"empty manifest", nil, false, "CDKStack", false},
		{"extra file", []string{"CDKStack.template.json", "asset123.zip"}, false, "CDKStack", false},
		{"wrong template name", []string{"Other.template.json"}, false, "CDKStack", false},
		{"image beside template", []string{"CDKStack.template.json"}, true, "CDKStack", false},
		{"image only", nil, true, "CDKStack", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &Manifest{Files: map[string]json.RawMessage{}, DockerImages: map[string]json.RawMessage{}}
			for _, f := range tc.files {
				m.Files[f] = json.RawMessage(`{}`)
			}
			if tc.image {
				m.DockerImages["sha256deadbeef"] = json.RawMessage(`{}`)
			}
			if got := m.OnlyTemplateAsset(tc.stack); got != tc.want {
				t.Fatalf("OnlyTemplateAsset(%q)=%v want=%v", tc.stack, got, tc.want)
			}
		})
	}
}

func TestOnlyTemplateAssetNilMaps(t *testing.T) {
	var m Manifest
	if m.OnlyTemplateAsset("CDKStack") {
		t.Fatalf("manifest with no entries classified as template-only")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "CDKStack.assets.json"))
	if !errors.Is(err, ErrManifestNotFound) {
		t.Fatalf("want ErrManifestNotFound, got %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CDKStack.assets.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("want parse error, got nil")
	}
	if errors.Is(err, ErrManifestNotFound) {
		t.Fatalf("malformed manifest misclassified as missing: %v", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CDKStack.assets.json")
	doc := `{"version":"21.0.0","files":{"CDKStack.template.json":{"source":{"path":"CDKStack.template.json"}}},"dockerImages":{}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.OnlyTemplateAsset("CDKStack") {
		t.Fatalf("template-only manifest classified as having assets")
	}
	if m.Version != "21.0.0" {
		t.Fatalf("version=%q want=21.0.0", m.Version)
	}
}
