package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// settleDelay coalesces the burst of events an editor save produces.
const settleDelay = 100 * time.Millisecond

func newWatchCmd(g *globalFlags) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-run a compiled sketch whenever the file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			useColor := ShouldUseColor(g.noColor)
			out := cmd.OutOrStdout()

			run := func(ctx context.Context) error {
				cfg, err := loadSettings(g)
				if err != nil {
					return err
				}
				f.apply(cmd, &cfg)
				prog, err := loadProgram(path)
				if err != nil {
					return err
				}
				_, err = runProgram(ctx, out, prog, cfg, runSettings{format: f.format, debug: g.debug, useColor: useColor})
				return err
			}
			return watchFile(cmd.Context(), path, run, cmd.ErrOrStderr(), useColor)
		},
	}
	f.register(cmd)
	return cmd
}

// watchFile calls run once, then again after every write to path, until ctx
// is done. Errors from run are reported to errOut and do not end the watch.
func watchFile(ctx context.Context, path string, run func(context.Context) error, errOut io.Writer, useColor bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file, so the directory is watched.
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	report := func() {
		if err := run(ctx); err != nil {
			FormatError(errOut, err, useColor)
		}
	}
	report()

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				settle.Reset(settleDelay)
			}
		case <-settle.C:
			_, _ = fmt.Fprintf(errOut, "%s %s\n", Colorize("changed:", ColorYellow, useColor), path)
			report()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}
}
