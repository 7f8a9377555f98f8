package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"imageConverter/cli/batch"
	"imageConverter/cli/console"
)

const watchDebounce = 500 * time.Millisecond

func (a *App) watchCommand() *cobra.Command {
	var bf batchFlags

	cmd := &cobra.Command{
		Use:   "watch <dir> <format>",
		Short: "Convert a folder, then keep converting files as they appear",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.folderOptions(cmd, args[0], args[1], bf)
			if err != nil {
				return err
			}
			return a.watch(cmd.Context(), opts)
		},
	}
	addFolderFlags(cmd, &bf)
	return cmd
}

func (a *App) watch(ctx context.Context, opts batch.Options) error {
	reporter := console.NewReporter(a.port)
	opts.Reporter = reporter
	driver := batch.NewDriver(a.conv, a.logger)

	report, err := driver.Run(ctx, opts)
	if err != nil {
		return err
	}
	reporter.Summary(report)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(opts.InputDir); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", opts.InputDir, err)
	}
	a.logger.Info("Watching folder", zap.String("dir", opts.InputDir), zap.Stringer("format", opts.Format))
	a.port.WriteLine("Watching %s. Press Ctrl+C to stop.", opts.InputDir)

	err = watchLoop(ctx, w.Events, w.Errors, watchDebounce, a.logger, extensionMatcher(opts.Extensions),
		func(files []string) {
			reporter.Summary(driver.RunFiles(ctx, opts, files))
		})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchLoop collects created or written files that match and hands them to
// flush once no new event has arrived for delay. Files removed in the
// meantime are dropped.
func watchLoop(
	ctx context.Context,
	events <-chan fsnotify.Event,
	errs <-chan error,
	delay time.Duration,
	logger *zap.Logger,
	match func(string) bool,
	flush func([]string),
) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(delay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !match(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(delay)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", zap.Error(err))

		case <-timer.C:
			files := lo.Filter(lo.Keys(pending), func(path string, _ int) bool {
				info, err := os.Stat(path)
				return err == nil && info.Mode().IsRegular()
			})
			clear(pending)
			if len(files) == 0 {
				continue
			}
			slices.Sort(files)
			flush(files)
		}
	}
}

// extensionMatcher accepts non-hidden files whose extension is in exts.
func extensionMatcher(exts []string) func(string) bool {
	allowed := lo.SliceToMap(exts, func(e string) (string, bool) {
		return strings.ToLower(e), true
	})
	return func(path string) bool {
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") {
			return false
		}
		return allowed[strings.ToLower(filepath.Ext(base))]
	}
}
