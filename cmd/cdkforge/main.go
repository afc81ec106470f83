// main.go bootstraps cdkforge: it builds the root Cobra command, wires viper
// flag/env binding, and executes with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/cdkforge/internal/builder"
	"github.com/example/cdkforge/internal/execx"
	"github.com/example/cdkforge/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cdkforge",
		Short: "Synthesize CloudFormation templates from CDK apps",
		Long: `cdkforge drives the AWS CDK toolchain to synthesize a CloudFormation
template for a single stack, publishes any CDK assets the stack produces, and
prints the resulting template as JSON.

The synthesis subprocess runs with the same AWS identity cdkforge resolves for
itself (profile, region, optionally an assumed role), so asset uploads land in
the right account without extra configuration.`,
		Example: `  # Synthesize a stack from the app in the current directory
  cdkforge build --stack CDKStack

  # Synthesize with context values and an assumed role
  cdkforge build --stack Network --context env=prod --role-arn arn:aws:iam::123456789012:role/deployer

  # Check whether a manifest needs an asset publish step
  cdkforge assets inspect --path cdk.out/CDKStack.assets.json --stack CDKStack`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	buildCmd := newBuildCommand()
	assetsCmd := newAssetsCommand()
	cmd.AddCommand(buildCmd, assetsCmd, newVersionCommand())
	bindViper(buildCmd, assetsCmd)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cdkforge version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
		},
	}
}

func bindViper(commands ...*cobra.Command) {
	if len(commands) == 0 {
		return
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("CDKFORGE")
	v.AutomaticEnv()

	cobra.OnInitialize(func() {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		for _, cmd := range commands {
			cmd.Flags().VisitAll(func(f *pflag.Flag) {
				if f.Changed {
					return
				}
				if !v.IsSet(f.Name) {
					return
				}
				val := fmt.Sprintf("%v", v.Get(f.Name))
				if val != "" {
					_ = f.Value.Set(val)
				}
			})
		}
	})
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	var xerr *execx.ExitError
	var cfgErr *builder.InvalidConfigError
	switch {
	case errors.As(err, &xerr):
		message = fmt.Sprintf("%s\nHint: toolchain output above usually names the failing construct; the build is not retried.", err)
	case errors.As(err, &cfgErr):
		message = fmt.Sprintf("%s\nHint: fix the synthesizer settings before retrying; no subprocess was started.", err)
	case errors.Is(err, context.Canceled):
		message = "interrupted"
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}
