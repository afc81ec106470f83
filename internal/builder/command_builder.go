// File: internal/builder/command_builder.go
// Brief: Out-of-process synthesis via the toolchain CLI.

package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/example/cdkforge/internal/assets"
	"github.com/example/cdkforge/internal/awsenv"
	"github.com/example/cdkforge/internal/execx"
)

// CommandBuilder synthesizes by shelling out to the toolchain CLI, for
// stacks whose definition is not written in Go. Output lands in a scoped
// temporary directory that is removed on every exit path.
type CommandBuilder struct {
	core
	synthCmd []string
}

// NewCommandBuilder returns the out-of-process variant.
func NewCommandBuilder(opts Options) *CommandBuilder {
	synthCmd := opts.SynthCommand
	if len(synthCmd) == 0 {
		synthCmd = DefaultSynthCommand
	}
	return &CommandBuilder{core: newCore(opts), synthCmd: synthCmd}
}

// BuildTemplate runs `<synth> synth <stack> -o <tmpdir> k=v...` from the
// directory containing cdkJSONPath, publishes assets when needed, then reads
// back the synthesized template.
//
// TODO: validate the containing-directory assumption against monorepo
// layouts where cdk.json does not sit next to the app entry point.
func (b *CommandBuilder) BuildTemplate(ctx context.Context, cdkJSONPath string, cdkContext map[string]string, stackLogicalID string) (map[string]any, error) {
	outputDir, err := os.MkdirTemp("", "cdkforge-synth-")
	if err != nil {
		return nil, fmt.Errorf("create synthesis output directory: %w", err)
	}
	defer os.RemoveAll(outputDir)

	appDir, err := filepath.Abs(filepath.Dir(cdkJSONPath))
	if err != nil {
		return nil, fmt.Errorf("resolve app directory for %s: %w", cdkJSONPath, err)
	}

	s := &commandSynthesis{
		b:              b,
		appDir:         appDir,
		outputDir:      outputDir,
		cdkContext:     cdkContext,
		stackLogicalID: stackLogicalID,
	}
	return b.build(ctx, s, stackLogicalID)
}

type commandSynthesis struct {
	b              *CommandBuilder
	appDir         string
	outputDir      string
	cdkContext     map[string]string
	stackLogicalID string
}

func (s *commandSynthesis) synthesize(ctx context.Context) error {
	b := s.b
	env, err := awsenv.Derive(ctx, b.ambient(), b.sess)
	if err != nil {
		return err
	}
	args := append(append([]string(nil), b.synthCmd...), "synth", s.stackLogicalID, "-o", s.outputDir)
	args = append(args, flattenContext(s.cdkContext)...)

	b.log.Debugf("synthesizing stack %s from %s", s.stackLogicalID, s.appDir)
	return b.runner.Run(ctx, execx.Command{Args: args, Env: env, Dir: s.appDir})
}

func (s *commandSynthesis) locateManifest() (manifestRef, error) {
	path := filepath.Join(s.outputDir, s.stackLogicalID+".assets.json")
	m, err := assets.Load(path)
	if err != nil {
		return manifestRef{}, err
	}
	return manifestRef{path: path, manifest: m}, nil
}

func (s *commandSynthesis) extractTemplate() (map[string]any, error) {
	path := filepath.Join(s.outputDir, assets.TemplateFileName(s.stackLogicalID))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synthesized template %s: %w", path, err)
	}
	var template map[string]any
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("parse synthesized template %s: %w", path, err)
	}
	return template, nil
}

// flattenContext renders context pairs as k=v synth arguments in a stable
// order.
func flattenContext(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, m[k]))
	}
	return out
}
