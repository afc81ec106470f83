// File: internal/builder/app_builder.go
// Brief: In-process synthesis via the toolchain's programmatic entry point.

package builder

import (
	"context"
	"fmt"

	"github.com/example/cdkforge/internal/assets"
	"github.com/example/cdkforge/internal/cdk"
)

// AppBuilder synthesizes a stack in-process through a cdk.App, holding the
// resulting cloud assembly entirely in memory. The default form relies on the
// toolchain's bootstrapped output addressing; NewBootstraplessBuilder swaps
// in a caller-configured synthesizer so assets stay relocatable.
type AppBuilder struct {
	core
	newApp cdk.AppFactory

	// set only by NewBootstraplessBuilder
	newSynthesizer cdk.SynthesizerFactory
	synthConfig    map[string]any
}

// NewAppBuilder returns the bootstrapped in-process variant.
func NewAppBuilder(opts Options, newApp cdk.AppFactory) *AppBuilder {
	return &AppBuilder{core: newCore(opts), newApp: newApp}
}

// NewBootstraplessBuilder returns the in-process variant that addresses
// generated assets through a synthesizer built from config, so deployment
// does not require a fixed bootstrap environment. Config problems surface as
// an *InvalidConfigError when the build runs, before any subprocess spawns.
func NewBootstraplessBuilder(opts Options, newApp cdk.AppFactory, newSynthesizer cdk.SynthesizerFactory, config map[string]any) *AppBuilder {
	b := NewAppBuilder(opts, newApp)
	b.newSynthesizer = newSynthesizer
	b.synthConfig = config
	return b
}

// BuildTemplate synthesizes the caller's stack under StackLogicalID,
// publishes assets when needed, and returns the rendered template.
func (b *AppBuilder) BuildTemplate(ctx context.Context, stack cdk.StackFactory, cdkContext cdk.Context, userData any) (map[string]any, error) {
	s := &appSynthesis{b: b, stack: stack, cdkContext: cdkContext, userData: userData}
	return b.build(ctx, s, StackLogicalID)
}

type appSynthesis struct {
	b          *AppBuilder
	stack      cdk.StackFactory
	cdkContext cdk.Context
	userData   any

	assembly *cdk.CloudAssembly
}

func (s *appSynthesis) synthesize(ctx context.Context) error {
	b := s.b
	b.log.Debug("synthesizing CDK stack")
	b.log.Debugf("CDK context: %v", s.cdkContext)

	var opts cdk.StackOptions
	if b.newSynthesizer != nil {
		synth, err := b.newSynthesizer(b.synthConfig)
		if err != nil {
			return &InvalidConfigError{Err: err}
		}
		opts.Synthesizer = synth
	}

	app := b.newApp(s.cdkContext)
	if err := s.stack(app, StackLogicalID, s.userData, opts); err != nil {
		return fmt.Errorf("instantiate stack %s: %w", StackLogicalID, err)
	}
	asm, err := app.Synth()
	if err != nil {
		return fmt.Errorf("synthesize cloud assembly: %w", err)
	}
	s.assembly = asm
	return nil
}

func (s *appSynthesis) locateManifest() (manifestRef, error) {
	art, ok := s.assembly.AssetManifest()
	if !ok {
		return manifestRef{}, assets.ErrManifestNotFound
	}
	return manifestRef{path: art.File, manifest: art.Manifest}, nil
}

func (s *appSynthesis) extractTemplate() (map[string]any, error) {
	stk, ok := s.assembly.StackByName(StackLogicalID)
	if !ok {
		return nil, fmt.Errorf("stack %q not found in cloud assembly", StackLogicalID)
	}
	return stk.Template, nil
}
