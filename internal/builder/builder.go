// File: internal/builder/builder.go
// Brief: Shared synthesize/publish/extract pipeline for all build variants.

// Package builder turns a CDK stack definition into a CloudFormation
// template. Three variants share one lifecycle: synthesize the stack, publish
// its assets when the asset manifest holds more than the template itself, and
// extract the rendered template. Every failure aborts the build; retry policy
// belongs to the calling deployment tool.
package builder

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/example/cdkforge/internal/assets"
	"github.com/example/cdkforge/internal/awsenv"
	"github.com/example/cdkforge/internal/execx"
)

// StackLogicalID is the fixed name under which the in-process variants
// synthesize their single stack.
const StackLogicalID = "CDKStack"

// Default command prefixes for the external toolchain and its asset
// publishing companion.
var (
	DefaultSynthCommand   = []string{"npx", "cdk"}
	DefaultPublishCommand = []string{"npx", "cdk-assets"}
)

// Options wires the collaborators every build variant needs.
type Options struct {
	// Log receives pipeline progress. Defaults to a no-op logger.
	Log *zap.SugaredLogger
	// Session yields the credentials bridged into toolchain subprocesses.
	Session awsenv.Session
	// Runner executes toolchain subprocesses.
	Runner execx.Runner
	// Environ is the ambient environment the credential bridge starts from.
	// Nil means the process environment, read fresh per publish.
	Environ []string
	// SynthCommand overrides the synth command prefix (out-of-process only).
	SynthCommand []string
	// PublishCommand overrides the asset publish command prefix.
	PublishCommand []string
}

// core holds the collaborators and publish logic shared by all variants.
type core struct {
	log        *zap.SugaredLogger
	sess       awsenv.Session
	runner     execx.Runner
	environ    []string
	publishCmd []string
}

func newCore(opts Options) core {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	publishCmd := opts.PublishCommand
	if len(publishCmd) == 0 {
		publishCmd = DefaultPublishCommand
	}
	return core{
		log:        log,
		sess:       opts.Session,
		runner:     opts.Runner,
		environ:    opts.Environ,
		publishCmd: publishCmd,
	}
}

func (c *core) ambient() []string {
	if c.environ != nil {
		return c.environ
	}
	return os.Environ()
}

// manifestRef identifies a located asset manifest: its parsed contents plus
// the path the publish tool is pointed at.
type manifestRef struct {
	path     string
	manifest *assets.Manifest
}

// synthesis is the variant-specific part of a build. Implementations differ
// only in how they synthesize and where they read artifacts from.
type synthesis interface {
	synthesize(ctx context.Context) error
	locateManifest() (manifestRef, error)
	extractTemplate() (map[string]any, error)
}

// build drives one synthesis through the shared lifecycle. Strictly
// sequential; the first error aborts with no partial result.
func (c *core) build(ctx context.Context, s synthesis, stackLogicalID string) (map[string]any, error) {
	if err := s.synthesize(ctx); err != nil {
		return nil, err
	}
	ref, err := s.locateManifest()
	if err != nil {
		return nil, err
	}
	if err := c.publishIfNeeded(ctx, ref, stackLogicalID); err != nil {
		return nil, err
	}
	return s.extractTemplate()
}

func (c *core) publishIfNeeded(ctx context.Context, ref manifestRef, stackLogicalID string) error {
	if ref.manifest.OnlyTemplateAsset(stackLogicalID) {
		// The deployment tool already uploads the template itself when
		// configured to; there is nothing else to push.
		c.log.Debug("only asset is template; skipping asset upload")
		return nil
	}
	env, err := awsenv.Derive(ctx, c.ambient(), c.sess)
	if err != nil {
		return err
	}
	c.log.Info("publishing CDK assets")
	c.log.Debugf("assets manifest file: %s", ref.path)
	args := append(append([]string(nil), c.publishCmd...), "-v", "publish", "--path", ref.path)
	return c.runner.Run(ctx, execx.Command{Args: args, Env: env})
}
