package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fyind/setupkit/pkg/setup/payload"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <installer>",
	Short: "List the contents of a built installer",
	Long: `Inspect reads the install plan embedded in a built installer and prints
what it would place: application metadata, every file with its size, the
shortcuts, and the optional tasks.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolP("json", "j", false, "output the raw install plan as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	archive, err := payload.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(archive.Plan)
	}

	plan := archive.Plan
	fmt.Printf("%s %s\n", plan.AppName, plan.AppVersion)
	fmt.Printf("  build:       %s\n", plan.BuildID)
	fmt.Printf("  install dir: %s\n", plan.DefaultDirName)
	fmt.Printf("  group:       %s\n", plan.DefaultGroupName)
	fmt.Printf("  compression: %s\n", plan.Compression)
	fmt.Printf("  total size:  %s\n", humanize.Bytes(uint64(plan.TotalSize)))

	fmt.Printf("\nFiles (%d):\n", len(plan.Files))
	for _, f := range plan.Files {
		flags := ""
		if f.IgnoreVersion {
			flags = "  [ignoreversion]"
		}
		fmt.Printf("  %-10s %s%s\n", humanize.Bytes(uint64(f.Size)), f.Target, flags)
	}

	if len(plan.Shortcuts) > 0 {
		fmt.Printf("\nShortcuts (%d):\n", len(plan.Shortcuts))
		for _, s := range plan.Shortcuts {
			gate := ""
			if len(s.Tasks) > 0 {
				gate = fmt.Sprintf("  (tasks: %s)", strings.Join(s.Tasks, ", "))
			}
			fmt.Printf("  %s -> %s%s\n", s.Name, s.Target, gate)
		}
	}

	if len(plan.Tasks) > 0 {
		fmt.Printf("\nTasks (%d):\n", len(plan.Tasks))
		for _, task := range plan.Tasks {
			fmt.Printf("  %-16s %s\n", task.Name, task.Description)
		}
	}

	info, err := os.Stat(args[0])
	if err == nil {
		fmt.Printf("\nArtifact: %s (%s)\n", filepath.Base(args[0]), humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
