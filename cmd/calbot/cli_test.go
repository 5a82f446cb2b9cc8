package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/calypso-lang/calypso-bot/pipeline"
)

// syncBuffer is a bytes.Buffer safe for the watch goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func evalCommand(stage string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	logger = zap.NewNop()
	evalStage, evalWidth = stage, 80

	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}

func TestEvalCmdParse(t *testing.T) {
	cmd, out, _ := evalCommand("parse")
	if err := runEval(cmd, []string{`\x.`, "x"}); err != nil {
		t.Fatalf("runEval failed: %v", err)
	}
	if got, want := out.String(), "Parsed Term:\n  λx. x\n"; got != want {
		t.Errorf("Unexpected output\n got %q\nwant %q", got, want)
	}
}

func TestEvalCmdInfer(t *testing.T) {
	cmd, out, _ := evalCommand("infer")
	if err := runEval(cmd, []string{`\x y. x`}); err != nil {
		t.Fatalf("runEval failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{"Parsed Term:\n", "Resolved Term:\n", "Inferred Type:\n  ∀a b. a → b → a\n", "TyCtxt:\n", "TyCtxt {"} {
		if !strings.Contains(got, want) {
			t.Errorf("Output missing %q:\n%s", want, got)
		}
	}
}

func TestEvalCmdReadsStdin(t *testing.T) {
	cmd, out, _ := evalCommand("resolve")
	cmd.SetIn(strings.NewReader("```\n\\x. x\n```\n"))
	if err := runEval(cmd, nil); err != nil {
		t.Fatalf("runEval failed: %v", err)
	}
	if !strings.Contains(out.String(), "Resolved Term:\n  λx#0. x#0\n") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}
}

func TestEvalCmdSyntaxError(t *testing.T) {
	cmd, out, errOut := evalCommand("infer")
	err := runEval(cmd, []string{`\x`})
	if !pipeline.Reported(err) {
		t.Fatalf("Expected a reported error, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no sections, got %q", out.String())
	}
	if !strings.HasPrefix(errOut.String(), "Syntax Error:\n") {
		t.Errorf("Expected syntax error report, got %q", errOut.String())
	}
}

func TestEvalCmdResolutionErrorKeepsParsedTerm(t *testing.T) {
	cmd, out, errOut := evalCommand("infer")
	err := runEval(cmd, []string{`\x. y`})
	if !errors.Is(err, pipeline.ErrResolution) {
		t.Fatalf("Expected ErrResolution, got %v", err)
	}
	if got, want := out.String(), "Parsed Term:\n  λx. y\n"; got != want {
		t.Errorf("Unexpected output\n got %q\nwant %q", got, want)
	}
	if !strings.HasPrefix(errOut.String(), "Resolution Error:\n") {
		t.Errorf("Expected resolution error report, got %q", errOut.String())
	}
}

func TestEvalCmdBadStage(t *testing.T) {
	cmd, _, _ := evalCommand("evaluate")
	if err := runEval(cmd, []string{`\x. x`}); err == nil {
		t.Error("Expected an error for an unknown stage")
	}
}

func TestWatchCmd(t *testing.T) {
	logger = zap.NewNop()
	evalStage, evalWidth = "parse", 80

	path := filepath.Join(t.TempDir(), "term.sysf")
	if err := os.WriteFile(path, []byte(`\x. x`), 0o644); err != nil {
		t.Fatal(err)
	}

	out := &syncBuffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- runWatch(cmd, []string{path}) }()

	waitFor := func(want string) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for !strings.Contains(out.String(), want) {
			if time.Now().After(deadline) {
				t.Fatalf("Timed out waiting for %q, output:\n%s", want, out.String())
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	waitFor("λx. x")
	if err := os.WriteFile(path, []byte(`\y. y`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor("λy. y")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runWatch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch did not stop")
	}
}

func TestRunRequiresConfigForWatch(t *testing.T) {
	watchConfig, configPath = true, ""
	defer func() { watchConfig = false }()

	if err := runBot(&cobra.Command{}, nil); err != errWatchNeedsFile {
		t.Errorf("Expected errWatchNeedsFile, got %v", err)
	}
}
