package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fyind/setupkit/pkg/setup/blobcache"
	"github.com/fyind/setupkit/pkg/setup/builder"
	"github.com/fyind/setupkit/pkg/setup/config"
	"github.com/fyind/setupkit/pkg/setup/logging"
	"github.com/fyind/setupkit/pkg/setup/manifest"
	"github.com/fyind/setupkit/pkg/setup/watch"
)

var buildCmd = &cobra.Command{
	Use:   "build <manifest>",
	Short: "Build an installer from a manifest",
	Long: `Build parses and validates the manifest, resolves its file rules against
the source tree, and writes a single self-extracting installer into the
output directory. The artifact is written atomically: a failed build never
leaves a partial installer behind.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringP("output-dir", "o", "", "output directory (overrides the manifest)")
	buildCmd.Flags().String("stub", "", "installer stub executable to embed the payload in")
	buildCmd.Flags().BoolP("force", "f", false, "overwrite an existing artifact of the same name")
	buildCmd.Flags().BoolP("watch", "w", false, "rebuild whenever the manifest or sources change")
	buildCmd.Flags().Bool("no-cache", false, "bypass the compressed blob cache")

	_ = viper.BindPFlag("build.output_dir", buildCmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("build.stub_path", buildCmd.Flags().Lookup("stub"))

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	manifestPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve manifest path: %w", err)
	}

	force, _ := cmd.Flags().GetBool("force")
	watchMode, _ := cmd.Flags().GetBool("watch")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	stubPath := viper.GetString("build.stub_path")
	if stubPath == "" {
		return errors.New("no installer stub configured: pass --stub or set build.stub_path")
	}
	stubPath, err = config.ExpandPath(stubPath)
	if err != nil {
		return err
	}

	var cache *blobcache.Cache
	if !noCache && viper.GetBool("cache.enabled") {
		cache, err = openCache()
		if err != nil {
			// A broken cache should not block builds.
			logging.Get("builder").Warn("blob cache unavailable", "error", err)
		} else {
			defer func() { _ = cache.Close() }()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buildOnce := func() error {
		m, err := manifest.ParseFile(manifestPath)
		if err != nil {
			return err
		}

		b, err := builder.New(builder.Options{
			Manifest:  m,
			StubPath:  stubPath,
			OutputDir: viper.GetString("build.output_dir"),
			Force:     force || watchMode,
			Cache:     cache,
		})
		if err != nil {
			return err
		}

		result, err := b.Build(ctx)
		if err != nil {
			return err
		}

		printInfo("Built %s (%s) in %s",
			result.ArtifactPath,
			humanize.Bytes(uint64(result.ArtifactSize)),
			result.Elapsed.Round(time.Millisecond))
		return nil
	}

	if err := buildOnce(); err != nil {
		if !watchMode {
			return err
		}
		// In watch mode a broken manifest is reported and retried on the
		// next change instead of exiting.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	if !watchMode {
		return nil
	}
	return runWatch(ctx, manifestPath, buildOnce)
}

// runWatch rebuilds on every debounced change to the manifest or the
// source tree until interrupted.
func runWatch(ctx context.Context, manifestPath string, buildOnce func() error) error {
	debounce, err := time.ParseDuration(viper.GetString("watch.debounce"))
	if err != nil {
		debounce = watch.DefaultDebounce
	}

	w, err := watch.New(debounce)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Watch(manifestPath); err != nil {
		return err
	}
	if err := w.Watch(filepath.Dir(manifestPath)); err != nil {
		return err
	}

	printInfo("Watching for changes (Ctrl-C to stop)")
	w.Run(ctx, func() {
		if err := buildOnce(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	})
	return nil
}

// openCache opens the shared blob cache at its configured location.
func openCache() (*blobcache.Cache, error) {
	path := viper.GetString("cache.path")
	if path == "" {
		path = config.DefaultCachePath()
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return blobcache.Open(path)
}
