// cmd/crow-eye/main.go
//
// Entry point for the crow-eye CLI.
//
//	crow-eye init              create .crow-eye/ with a default config.yaml
//	crow-eye run               headless run, one block of output per tick
//	crow-eye tui               interactive board
//	crow-eye reports           list saved run reports

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	projectDir string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "crow-eye",
		Short:         "Crow swarm threat detection simulation",
		Long:          `Simulates a swarm of crows that search a field for threats, share what they find and vote on whether to call the rangers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.projectDir, "project", "", "project directory holding .crow-eye/ (default: working directory)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug-level structured logging")

	root.AddCommand(
		newInitCmd(opts),
		newRunCmd(opts),
		newTUICmd(opts),
		newReportsCmd(opts),
	)
	return root
}

func (o *rootOptions) resolveProjectDir() (string, error) {
	if o.projectDir != "" {
		return o.projectDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cwd, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
