// File: cmd/cdkforge/build.go
// Brief: 'cdkforge build' — out-of-process synthesis of a CDK app.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/cdkforge/internal/awsenv"
	"github.com/example/cdkforge/internal/builder"
	"github.com/example/cdkforge/internal/execx"
	"github.com/example/cdkforge/internal/logging"
)

type buildCLIOptions struct {
	cdkJSONPath    string
	stack          string
	contextPairs   []string
	profile        string
	region         string
	roleARN        string
	synthCommand   string
	publishCommand string
	outputPath     string
	settingsFile   string
	logLevel       string
}

// buildSettings is the optional YAML settings file; explicit flags win over
// file values.
type buildSettings struct {
	Path           string            `yaml:"path"`
	Stack          string            `yaml:"stack"`
	Context        map[string]string `yaml:"context"`
	Profile        string            `yaml:"profile"`
	Region         string            `yaml:"region"`
	RoleARN        string            `yaml:"roleArn"`
	SynthCommand   string            `yaml:"synthCommand"`
	PublishCommand string            `yaml:"publishCommand"`
}

func newBuildCommand() *cobra.Command {
	opts := &buildCLIOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Synthesize a stack's template, publishing CDK assets when needed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.cdkJSONPath, "path", "cdk.json", "Path to the CDK app's cdk.json; synthesis runs from its directory")
	fs.StringVar(&opts.stack, "stack", "", "Logical ID of the stack to synthesize")
	fs.StringArrayVarP(&opts.contextPairs, "context", "c", nil, "CDK context value as key=value (repeat for multiple)")
	fs.StringVar(&opts.profile, "profile", "", "AWS shared-config profile to resolve credentials from")
	fs.StringVar(&opts.region, "region", "", "AWS region for the build (defaults to the profile's region)")
	fs.StringVar(&opts.roleARN, "role-arn", "", "IAM role to assume for synthesis and asset publishing")
	fs.StringVar(&opts.synthCommand, "synth-command", "", "Override the synth command prefix (default \"npx cdk\")")
	fs.StringVar(&opts.publishCommand, "publish-command", "", "Override the asset publish command prefix (default \"npx cdk-assets\")")
	fs.StringVarP(&opts.outputPath, "output", "o", "-", "Write the template JSON here ('-' for stdout)")
	fs.StringVar(&opts.settingsFile, "settings", "", "YAML settings file supplying defaults for the flags above")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log verbosity: debug, info, warn, or error")
	return cmd
}

func runBuild(cmd *cobra.Command, opts *buildCLIOptions) error {
	ctx := cmd.Context()

	settings, err := loadBuildSettings(opts.settingsFile)
	if err != nil {
		return err
	}
	applySettings(opts, settings)

	if strings.TrimSpace(opts.stack) == "" {
		return fmt.Errorf("--stack is required")
	}
	cdkContext, err := parseContextPairs(opts.contextPairs)
	if err != nil {
		return err
	}
	if settings != nil {
		for k, v := range settings.Context {
			if _, set := cdkContext[k]; !set {
				cdkContext[k] = v
			}
		}
	}
	synthCmd, err := parseCommandPrefix("--synth-command", opts.synthCommand)
	if err != nil {
		return err
	}
	publishCmd, err := parseCommandPrefix("--publish-command", opts.publishCommand)
	if err != nil {
		return err
	}

	log, err := logging.New(opts.logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	sess, err := awsenv.NewSession(ctx, awsenv.SessionOptions{
		Profile: opts.profile,
		Region:  opts.region,
		RoleARN: opts.roleARN,
	})
	if err != nil {
		return err
	}

	b := builder.NewCommandBuilder(builder.Options{
		Log:            log,
		Session:        sess,
		Runner:         execx.NewRunner(cmd.ErrOrStderr()),
		SynthCommand:   synthCmd,
		PublishCommand: publishCmd,
	})
	template, err := b.BuildTemplate(ctx, opts.cdkJSONPath, cdkContext, opts.stack)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	data = append(data, '\n')
	if opts.outputPath == "-" || opts.outputPath == "" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(opts.outputPath, data, 0o644); err != nil {
			return fmt.Errorf("write template to %s: %w", opts.outputPath, err)
		}
	}
	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "Synthesized %s\n", opts.stack)
	return nil
}

func loadBuildSettings(path string) (*buildSettings, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file %s: %w", path, err)
	}
	var s buildSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return &s, nil
}

func applySettings(opts *buildCLIOptions, s *buildSettings) {
	if s == nil {
		return
	}
	if opts.cdkJSONPath == "cdk.json" && s.Path != "" {
		opts.cdkJSONPath = s.Path
	}
	if opts.stack == "" {
		opts.stack = s.Stack
	}
	if opts.profile == "" {
		opts.profile = s.Profile
	}
	if opts.region == "" {
		opts.region = s.Region
	}
	if opts.roleARN == "" {
		opts.roleARN = s.RoleARN
	}
	if opts.synthCommand == "" {
		opts.synthCommand = s.SynthCommand
	}
	if opts.publishCommand == "" {
		opts.publishCommand = s.PublishCommand
	}
}

func parseContextPairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, val, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --context value %q (expected key=value)", p)
		}
		out[key] = val
	}
	return out, nil
}

func parseCommandPrefix(flag, raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	args, err := shellwords.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", flag, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s must contain at least one argument", flag)
	}
	return args, nil
}
