// Package main is the setupkit installer stub. The builder appends an
// install payload to a copy of this executable; at run time the stub reads
// the plan back out of its own binary and installs it, either through an
// interactive wizard or silently. A copy of the stub placed into the
// install directory as unins000 acts as the uninstaller.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyind/setupkit/pkg/setup/installer"
	"github.com/fyind/setupkit/pkg/setup/logging"
	"github.com/fyind/setupkit/pkg/setup/payload"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		target        = flag.String("target", "", "install directory (enables silent mode)")
		acceptLicense = flag.Bool("accept-license", false, "accept the license agreement (silent mode)")
		tasks         = flag.String("tasks", "", "comma-separated optional tasks to enable (silent mode)")
		uninstall     = flag.Bool("uninstall", false, "uninstall instead of installing")
	)
	flag.Parse()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate own executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("locate own executable: %w", err)
	}

	// The install transcript goes to a temp file; the wizard owns the
	// terminal, so nothing may write to stderr while it runs.
	_ = logging.Init(logging.Config{
		Level: "info",
		Path:  filepath.Join(os.TempDir(), "setupkit-install.log"),
		Quiet: true,
	})
	defer func() { _ = logging.Close() }()

	if *uninstall || installer.IsUninstallerInvocation(exe) {
		return runUninstall(exe)
	}

	archive, err := payload.Open(exe)
	if errors.Is(err, payload.ErrNoPayload) {
		return errors.New("this executable carries no install payload; it must be built with setupkit")
	}
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	if *target != "" {
		return runSilent(archive, exe, silentOptions{
			target:        *target,
			acceptLicense: *acceptLicense,
			tasks:         splitTasks(*tasks),
		})
	}
	return runWizard(archive, exe)
}

// runUninstall removes a previous installation, driven by the receipt in
// the directory the uninstaller sits in.
func runUninstall(exe string) error {
	installDir := filepath.Dir(exe)

	result, err := installer.Uninstall(installer.UninstallOptions{
		InstallDir: installDir,
		SkipSelf:   exe,
	})
	if err != nil {
		return err
	}

	if result.Removed == 0 {
		fmt.Println("Nothing to uninstall.")
		return nil
	}
	fmt.Printf("Uninstalled (%d items removed).\n", result.Removed)
	for _, remaining := range result.Remaining {
		fmt.Printf("Could not remove %s; delete it manually.\n", remaining)
	}
	return nil
}

// splitTasks parses the -tasks flag value.
func splitTasks(s string) []string {
	if s == "" {
		return nil
	}
	var tasks []string
	for _, task := range strings.Split(s, ",") {
		if task = strings.TrimSpace(task); task != "" {
			tasks = append(tasks, task)
		}
	}
	return tasks
}
