package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/fyind/setupkit/pkg/setup/installer"
	"github.com/fyind/setupkit/pkg/setup/payload"
)

type silentOptions struct {
	target        string
	acceptLicense bool
	tasks         []string
}

// runSilent installs without any UI. It prints one line per installed file
// and exits non-zero on failure, which makes it scriptable.
func runSilent(archive *payload.Archive, exe string, opts silentOptions) error {
	license, err := licenseText(archive)
	if err != nil {
		return err
	}
	if license != "" && !opts.acceptLicense {
		return errors.New("this installer has a license agreement; pass -accept-license to accept it")
	}

	for _, task := range opts.tasks {
		if archive.Plan.Task(task) == nil {
			return fmt.Errorf("unknown task %q", task)
		}
	}

	inst, err := installer.New(installer.Options{
		Archive:           archive,
		TargetDir:         opts.target,
		SelectedTasks:     opts.tasks,
		UninstallerSource: exe,
	})
	if err != nil {
		return err
	}
	inst.SetProgressFunc(func(s installer.Status) {
		if s.File != "" {
			fmt.Printf("  %s\n", s.File)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Installing %s %s to %s\n", archive.Plan.AppName, archive.Plan.AppVersion, opts.target)
	receipt, err := inst.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Installed %d files (%s).\n", len(receipt.Files), humanize.Bytes(uint64(archive.Plan.TotalSize)))
	return nil
}
