// File: cmd/cdkforge/assets.go
// Brief: 'cdkforge assets inspect' — classify an asset manifest on disk.

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/cdkforge/internal/assets"
)

func newAssetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Work with CDK asset manifests",
	}
	cmd.AddCommand(newAssetsInspectCommand())
	return cmd
}

func newAssetsInspectCommand() *cobra.Command {
	var path string
	var stack string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Report whether a manifest needs an asset publish step",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(path) == "" {
				return fmt.Errorf("--path is required")
			}
			if strings.TrimSpace(stack) == "" {
				return fmt.Errorf("--stack is required")
			}
			m, err := assets.Load(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "files: %d, docker images: %d\n", len(m.Files), len(m.DockerImages))
			if m.OnlyTemplateAsset(stack) {
				color.New(color.FgGreen).Fprintln(out, "template-only: no asset publish needed")
			} else {
				color.New(color.FgYellow).Fprintln(out, "has assets: publish required before deploy")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Path to the <stack>.assets.json manifest")
	cmd.Flags().StringVar(&stack, "stack", "", "Logical ID of the stack the manifest belongs to")
	return cmd
}
