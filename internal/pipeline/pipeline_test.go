package pipeline

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

type recordStage struct {
	name string
	seen *[]string
	err  error
}

func (s recordStage) Process(ctx *PipelineContext) *PipelineContext {
	*s.seen = append(*s.seen, s.name)
	ctx.AddError(s.err)
	return ctx
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name     string
		failAt   int
		expected []string
	}{
		{"no failure", -1, []string{"a", "b", "c"}},
		{"first fails", 0, []string{"a"}},
		{"middle fails", 1, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []string
			stages := make([]Processor, 3)
			for i, name := range []string{"a", "b", "c"} {
				stage := recordStage{name: name, seen: &seen}
				if i == tt.failAt {
					stage.err = errors.New(name + " failed")
				}
				stages[i] = stage
			}

			ctx := New(stages...).WithLogger(quietLogger()).Run(NewPipelineContext("src"))
			if len(seen) != len(tt.expected) {
				t.Fatalf("ran %v, want %v", seen, tt.expected)
			}
			for i := range seen {
				if seen[i] != tt.expected[i] {
					t.Errorf("stage %d: got %s, want %s", i, seen[i], tt.expected[i])
				}
			}
			if ctx.Failed() != (tt.failAt >= 0) {
				t.Errorf("Failed: %v", ctx.Failed())
			}
		})
	}
}

func TestContextErrors(t *testing.T) {
	ctx := NewPipelineContext("")
	ctx.AddError(nil)
	if ctx.Failed() || ctx.Err() != nil {
		t.Fatal("nil error recorded")
	}

	sentinel := errors.New("boom")
	ctx.AddError(sentinel)
	ctx.AddError(errors.New("second"))
	if !errors.Is(ctx.Err(), sentinel) {
		t.Errorf("Err() lost the recorded error: %v", ctx.Err())
	}
}

func TestSourceReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.lox")
	if err := os.WriteFile(path, []byte("print 1;"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := SourceReader{}.Process(&PipelineContext{FilePath: path})
	if ctx.Failed() || ctx.SourceCode != "print 1;" {
		t.Errorf("read %q, errors %v", ctx.SourceCode, ctx.Errors)
	}

	inline := SourceReader{}.Process(&PipelineContext{SourceCode: "inline", FilePath: path})
	if inline.SourceCode != "inline" {
		t.Error("reader replaced inline source")
	}

	missing := SourceReader{}.Process(&PipelineContext{FilePath: filepath.Join(dir, "absent.lox")})
	if !missing.Failed() || !IsIOError(missing.Err()) {
		t.Errorf("missing file: %v", missing.Errors)
	}
}
