// File: internal/cdk/cdk.go
// Brief: Surface of the CDK programmatic toolchain driven by the builders.

// Package cdk models the slice of the AWS CDK toolchain the build pipeline
// drives when synthesis happens in-process. The real toolchain is an external
// collaborator: callers bind these interfaces to their CDK app, and the
// builders stay testable against fakes.
package cdk

// Context carries the key/value pairs passed to the toolchain to
// parameterize a synthesis, such as account or region hints. Immutable for
// the duration of a build; may be empty.
type Context map[string]string

// App is the toolchain's programmatic entry point: stacks are instantiated
// inside it, and Synth renders them into a cloud assembly.
type App interface {
	Synth() (*CloudAssembly, error)
}

// AppFactory constructs a fresh App for one build with the given synthesis
// context. Each build gets its own App; assemblies are never shared.
type AppFactory func(ctx Context) App

// StackOptions carries optional per-stack synthesis settings.
type StackOptions struct {
	// Synthesizer, when non-nil, replaces the toolchain's default output
	// addressing so generated assets do not require a fixed bootstrap
	// environment.
	Synthesizer Synthesizer
}

// StackFactory is the caller-supplied stack definition: invoked once per
// build to instantiate the stack inside app under logicalID, carrying the
// caller's opaque user data.
type StackFactory func(app App, logicalID string, userData any, opts StackOptions) error

// Synthesizer is an opaque output-addressing strategy object. The build
// pipeline hands it to the stack factory without inspecting it.
type Synthesizer any

// SynthesizerFactory builds a Synthesizer from caller-supplied settings.
// Returning an error marks the settings invalid; the build reports that as a
// configuration problem rather than a toolchain failure.
type SynthesizerFactory func(config map[string]any) (Synthesizer, error)
