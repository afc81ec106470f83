package builder

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/example/cdkforge/internal/assets"
	"github.com/example/cdkforge/internal/execx"
)

// synthOutputDir extracts the -o argument from a recorded synth invocation.
func synthOutputDir(t *testing.T, cmd execx.Command) string {
	t.Helper()
	for i, a := range cmd.Args {
		if a == "-o" && i+1 < len(cmd.Args) {
			return cmd.Args[i+1]
		}
	}
	t.Fatalf("no -o argument in %v", cmd.Args)
	return ""
}

func writeSynthOutput(t *testing.T, dir, stackID string, template map[string]any, extraAssets ...string) {
	t.Helper()
	files := map[string]any{stackID + ".template.json": map[string]any{"source": map[string]any{"path": stackID + ".template.json"}}}
	for _, a := range extraAssets {
		files[a] = map[string]any{"source": map[string]any{"path": a}}
	}
	manifest := map[string]any{"version": "21.0.0", "files": files, "dockerImages": map[string]any{}}
	mdata, err := json.Marshal(manifest)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, stackID+".assets.json"), mdata, 0o644); err != nil {
		t.Fatal(err)
	}
	tdata, err := json.Marshal(template)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, stackID+".template.json"), tdata, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCommandBuilderTemplateOnly(t *testing.T) {
	appDir := t.TempDir()
	cdkJSON := filepath.Join(appDir, "cdk.json")
	if err := os.WriteFile(cdkJSON, []byte(`{"app":"npx ts-node app.ts"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	template := map[string]any{
		"Resources": map[string]any{"Queue": map[string]any{"Type": "AWS::SQS::Queue"}},
	}
	var outputDir string
	runner := &fakeRunner{}
	runner.onRun = func(cmd execx.Command) error {
		outputDir = synthOutputDir(t, cmd)
		writeSynthOutput(t, outputDir, "Network", template)
		return nil
	}

	b := NewCommandBuilder(Options{Session: testSession(), Runner: runner, Environ: []string{"AWS_PROFILE=sandbox"}})
	got, err := b.BuildTemplate(context.Background(), cdkJSON, map[string]string{"env": "prod", "account": "123"}, "Network")
	if err != nil {
		t.Fatalf("BuildTemplate: %v", err)
	}

	if !reflect.DeepEqual(got, template) {
		t.Fatalf("template round-trip mismatch:\ngot  %v\nwant %v", got, template)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("want synth only, got %d invocations", len(runner.calls))
	}
	synth := runner.calls[0]
	joined := strings.Join(synth.Args, " ")
	if !strings.HasPrefix(joined, "npx cdk synth Network -o "+outputDir) {
		t.Fatalf("synth args=%q", joined)
	}
	// context pairs appended in stable order after the output directory
	if !strings.HasSuffix(joined, "account=123 env=prod") {
		t.Fatalf("context pairs missing or unordered: %q", joined)
	}
	if synth.Dir != appDir {
		t.Fatalf("synth Dir=%q want cdk.json directory %q", synth.Dir, appDir)
	}
	env := strings.Join(synth.Env, "\n")
	if strings.Contains(env, "AWS_PROFILE=") || !strings.Contains(env, "AWS_ACCESS_KEY_ID=AKIAEXAMPLE") {
		t.Fatalf("synth environment not derived from session:\n%s", env)
	}
	if _, err := os.Stat(outputDir); !os.IsNotExist(err) {
		t.Fatalf("temporary output directory %s not removed", outputDir)
	}
}

func TestCommandBuilderPublishesAssets(t *testing.T) {
	appDir := t.TempDir()
	cdkJSON := filepath.Join(appDir, "cdk.json")
	if err := os.WriteFile(cdkJSON, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var outputDir string
	runner := &fakeRunner{}
	runner.onRun = func(cmd execx.Command) error {
		if len(runner.calls) == 1 {
			outputDir = synthOutputDir(t, cmd)
			writeSynthOutput(t, outputDir, "CDKStack", map[string]any{"Resources": map[string]any{}}, "asset123.zip")
		}
		return nil
	}

	b := NewCommandBuilder(Options{Session: testSession(), Runner: runner})
	if _, err := b.BuildTemplate(context.Background(), cdkJSON, nil, "CDKStack"); err != nil {
		t.Fatalf("BuildTemplate: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("want synth then publish, got %d invocations", len(runner.calls))
	}
	publish := runner.calls[1]
	wantArgs := "npx cdk-assets -v publish --path " + filepath.Join(outputDir, "CDKStack.assets.json")
	if strings.Join(publish.Args, " ") != wantArgs {
		t.Fatalf("publish args=%q want=%q", strings.Join(publish.Args, " "), wantArgs)
	}
	if publish.Dir != "" {
		t.Fatalf("publish scoped to a working directory: %q", publish.Dir)
	}
}

func TestCommandBuilderSynthFailureCleansUp(t *testing.T) {
	appDir := t.TempDir()
	cdkJSON := filepath.Join(appDir, "cdk.json")
	if err := os.WriteFile(cdkJSON, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var outputDir string
	runner := &fakeRunner{}
	runner.onRun = func(cmd execx.Command) error {
		outputDir = synthOutputDir(t, cmd)
		return &execx.ExitError{Args: cmd.Args, Code: 1}
	}

	b := NewCommandBuilder(Options{Session: testSession(), Runner: runner})
	_, err := b.BuildTemplate(context.Background(), cdkJSON, nil, "CDKStack")
	var xerr *execx.ExitError
	if !errors.As(err, &xerr) {
		t.Fatalf("want *execx.ExitError, got %v", err)
	}
	if xerr.Code != 1 {
		t.Fatalf("exit code=%d want=1", xerr.Code)
	}
	if _, statErr := os.Stat(outputDir); !os.IsNotExist(statErr) {
		t.Fatalf("temporary output directory %s survived a failed synthesis", outputDir)
	}
}

func TestCommandBuilderMissingManifest(t *testing.T) {
	appDir := t.TempDir()
	cdkJSON := filepath.Join(appDir, "cdk.json")
	if err := os.WriteFile(cdkJSON, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	// synth "succeeds" but writes nothing
	b := NewCommandBuilder(Options{Session: testSession(), Runner: &fakeRunner{}})
	_, err := b.BuildTemplate(context.Background(), cdkJSON, nil, "CDKStack")
	if !errors.Is(err, assets.ErrManifestNotFound) {
		t.Fatalf("want ErrManifestNotFound, got %v", err)
	}
}

func TestCommandBuilderMalformedTemplate(t *testing.T) {
	appDir := t.TempDir()
	cdkJSON := filepath.Join(appDir, "cdk.json")
	if err := os.WriteFile(cdkJSON, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	runner.onRun = func(cmd execx.Command) error {
		dir := synthOutputDir(t, cmd)
		writeSynthOutput(t, dir, "CDKStack", map[string]any{})
		return os.WriteFile(filepath.Join(dir, "CDKStack.template.json"), []byte("{broken"), 0o644)
	}

	b := NewCommandBuilder(Options{Session: testSession(), Runner: runner})
	_, err := b.BuildTemplate(context.Background(), cdkJSON, nil, "CDKStack")
	if err == nil || !strings.Contains(err.Error(), "parse synthesized template") {
		t.Fatalf("want template parse error, got %v", err)
	}
}

func TestCommandBuilderCustomCommands(t *testing.T) {
	appDir := t.TempDir()
	cdkJSON := filepath.Join(appDir, "cdk.json")
	if err := os.WriteFile(cdkJSON, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	runner.onRun = func(cmd execx.Command) error {
		if len(runner.calls) == 1 {
			writeSynthOutput(t, synthOutputDir(t, cmd), "CDKStack", map[string]any{}, "bundle.zip")
		}
		return nil
	}
	b := NewCommandBuilder(Options{
		Session:        testSession(),
		Runner:         runner,
		SynthCommand:   []string{"pnpm", "exec", "cdk"},
		PublishCommand: []string{"pnpm", "exec", "cdk-assets"},
	})
	if _, err := b.BuildTemplate(context.Background(), cdkJSON, nil, "CDKStack"); err != nil {
		t.Fatalf("BuildTemplate: %v", err)
	}
	if got := strings.Join(runner.calls[0].Args[:3], " "); got != "pnpm exec cdk" {
		t.Fatalf("synth prefix=%q", got)
	}
	if got := strings.Join(runner.calls[1].Args[:3], " "); got != "pnpm exec cdk-assets" {
		t.Fatalf("publish prefix=%q", got)
	}
}
