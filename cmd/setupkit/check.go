package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fyind/setupkit/pkg/setup/builder"
	"github.com/fyind/setupkit/pkg/setup/manifest"
)

var checkCmd = &cobra.Command{
	Use:   "check <manifest>",
	Short: "Validate a manifest without building",
	Long: `Check parses the manifest, runs every validation the build would, and
resolves the file rules against the source tree. It reports all problems
at once rather than stopping at the first.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, args []string) error {
	manifestPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve manifest path: %w", err)
	}

	m, err := manifest.ParseFile(manifestPath)
	if err != nil {
		return err
	}
	if err := manifest.Validate(m); err != nil {
		return err
	}

	resolved, err := builder.ResolveRules(filepath.Dir(manifestPath), m.Files)
	if err != nil {
		return err
	}

	printInfo("%s: OK (%d files, %d shortcuts, %d tasks)",
		filepath.Base(manifestPath), len(resolved), len(m.Icons), len(m.Tasks))
	return nil
}
