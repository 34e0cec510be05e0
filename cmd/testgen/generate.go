package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/speakeasy-api/testrecorder"
	"github.com/speakeasy-api/testrecorder/pkg/snapfile"
	"github.com/speakeasy-api/testrecorder/pkg/worker"
	"github.com/speakeasy-api/testrecorder/synth"
)

type generateFlags struct {
	out     string
	dataDir string
	jobs    int
}

func newGenerateCmd(global *globalFlags) *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate <snapshot.yaml>...",
		Short: "Generate a test file from snapshot files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, global, flags, args)
		},
	}
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "test file to write (default: stdout)")
	cmd.Flags().StringVar(&flags.dataDir, "data-dir", "", "directory for data files of large collections")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", runtime.GOMAXPROCS(0), "snapshot files read in parallel")
	return cmd
}

// outcome is the fate of one snapshot, reported in the summary.
type outcome struct {
	method  string
	arrange int
	assert  int
	err     error
}

func runGenerate(cmd *cobra.Command, global *globalFlags, flags *generateFlags, paths []string) error {
	opts, cfg, err := global.options()
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	log := newLogger(opts.LogLevel, stderr)
	defer log.Sync() //nolint:errcheck
	opts.Logger = synth.FromZap(log)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	snaps, err := readSnapshots(ctx, paths, flags.jobs)
	if err != nil {
		return err
	}

	var results []worker.Result
	w := worker.New(synth.New(opts), worker.Options{
		Logger:   log.Named("worker"),
		OnResult: func(r worker.Result) { results = append(results, r) },
	})
	for _, snap := range snaps {
		if err := w.Submit(ctx, snap); err != nil {
			w.Close()
			return err
		}
	}
	w.Close()

	file := newTestFile(opts.Package)
	var plans []*synth.TestPlan
	outcomes := make([]outcome, 0, len(results))
	for _, r := range results {
		o := outcome{method: r.Snapshot.Method.String(), err: r.Err}
		if r.Err == nil {
			if err := file.add(r.Plan); err != nil {
				log.Warn("skipping snapshot", zap.String("method", o.method), zap.Error(err))
				o.err = err
			} else {
				o.arrange, o.assert = len(r.Plan.Arrange), len(r.Plan.Assert)
				plans = append(plans, r.Plan)
			}
		}
		outcomes = append(outcomes, o)
	}
	printSummary(stderr, outcomes)
	if len(plans) == 0 {
		return errors.New("no test could be generated")
	}

	src, err := file.source(time.Now())
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), flags.out, src); err != nil {
		return err
	}

	dataDir := flags.dataDir
	if dataDir == "" && cfg != nil {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		dataDir = "."
	}
	return writeDataFiles(dataDir, plans, log)
}

// readSnapshots decodes the files concurrently, keeping their order.
func readSnapshots(ctx context.Context, paths []string, jobs int) ([]*testrecorder.Snapshot, error) {
	perFile := make([][]*testrecorder.Snapshot, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			snaps, err := snapfile.ReadFile(p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			perFile[i] = snaps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []*testrecorder.Snapshot
	for _, snaps := range perFile {
		all = append(all, snaps...)
	}
	return all, nil
}

func writeOutput(stdout io.Writer, path string, src []byte) error {
	if path == "" {
		_, err := stdout.Write(src)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, src, 0o644)
}

func writeDataFiles(root string, plans []*synth.TestPlan, log *zap.Logger) error {
	for _, plan := range plans {
		for _, f := range plan.Files {
			dir := filepath.Join(root, f.Dir)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(dir, f.Name)
			if err := os.WriteFile(path, f.Content, 0o644); err != nil {
				return err
			}
			log.Debug("wrote data file", zap.String("path", path), zap.Int("bytes", len(f.Content)))
		}
	}
	return nil
}

// printSummary writes one aligned row per snapshot.
func printSummary(w io.Writer, outcomes []outcome) {
	rows := [][]string{{"METHOD", "ARRANGE", "ASSERT", "STATUS"}}
	for _, o := range outcomes {
		status := "ok"
		if o.err != nil {
			status = "skipped: " + o.err.Error()
		}
		rows = append(rows, []string{o.method, strconv.Itoa(o.arrange), strconv.Itoa(o.assert), status})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row[:len(row)-1] {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	bold := isTerminal(w)
	for n, row := range rows {
		line := ""
		for i, cell := range row {
			if i < len(row)-1 {
				cell = runewidth.FillRight(cell, widths[i]+2)
			}
			line += cell
		}
		if n == 0 && bold {
			line = "\x1b[1m" + line + "\x1b[0m"
		}
		fmt.Fprintln(w, line)
	}
}
