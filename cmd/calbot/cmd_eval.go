package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/calypso-lang/calypso-bot/core"
	"github.com/calypso-lang/calypso-bot/pipeline"
	"github.com/calypso-lang/calypso-bot/render"
	"github.com/calypso-lang/calypso-bot/sysf"
	"github.com/calypso-lang/calypso-bot/watch"
)

var (
	evalStage string
	evalWidth int
)

var evalCmd = &cobra.Command{
	Use:   "eval [term]",
	Short: "Run a term through the pipeline locally",
	Long: `Parses, resolves and infers the type of a term without connecting to
Discord. The term is read from standard input when no argument is given.

Example:
  calbot eval --stage resolve '\x. x'`,
	RunE: runEval,
}

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Re-run the pipeline whenever a term file changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

// local is a pipeline backed by its own actor system.
type local struct {
	sys  core.ActorSystem
	pipe *pipeline.Pipeline
}

func newLocal(width int, log *zap.Logger) (*local, error) {
	sys := core.NewActorSystem(core.WithLogger(log))
	svc, err := render.New(sys, render.WithWidth(width), render.WithLogger(log))
	if err != nil {
		return nil, err
	}
	pipe, err := pipeline.New(sysf.Engine{}, svc, log)
	if err != nil {
		return nil, err
	}
	return &local{sys: sys, pipe: pipe}, nil
}

func (l *local) close() {
	if err := l.sys.Shutdown(context.Background()); err != nil {
		logger.Warn("actor system shutdown failed", zap.Error(err))
	}
}

// run prints every completed section to out. Reports go to errOut.
func (l *local) run(ctx context.Context, out, errOut io.Writer, raw string, depth pipeline.Depth) error {
	rep := pipeline.ReporterFunc(func(_ context.Context, r pipeline.Report) error {
		return printSection(errOut, r)
	})
	res, err := l.pipe.Run(ctx, rep, raw, depth)
	if res != nil {
		for _, s := range res.Sections {
			if perr := printSection(out, s); perr != nil {
				return perr
			}
		}
	}
	return err
}

func printSection(w io.Writer, s pipeline.Section) error {
	_, err := fmt.Fprintf(w, "%s:\n%s\n", s.Title, indent(s.Body))
	return err
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

func runEval(cmd *cobra.Command, args []string) error {
	depth, err := pipeline.ParseDepth(evalStage)
	if err != nil {
		return err
	}

	raw := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read term: %w", err)
		}
		raw = string(data)
	}

	l, err := newLocal(evalWidth, logger)
	if err != nil {
		return err
	}
	defer l.close()

	return l.run(commandContext(cmd), cmd.OutOrStdout(), cmd.ErrOrStderr(), raw, depth)
}

func runWatch(cmd *cobra.Command, args []string) error {
	depth, err := pipeline.ParseDepth(evalStage)
	if err != nil {
		return err
	}
	path := args[0]

	l, err := newLocal(evalWidth, logger)
	if err != nil {
		return err
	}
	defer l.close()

	w, err := watch.New(path, watch.WithLogger(logger))
	if err != nil {
		return err
	}
	defer w.Close()

	ctx := commandContext(cmd)
	once := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("failed to read term file", zap.String("file", path), zap.Error(err))
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "--- %s\n", path)
		if err := l.run(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), string(data), depth); err != nil && !pipeline.Reported(err) {
			logger.Warn("pipeline failed", zap.Error(err))
		}
	}

	once()
	return w.Run(ctx, once)
}

// commandContext is the command's context, which main cancels on SIGINT or
// SIGTERM.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
