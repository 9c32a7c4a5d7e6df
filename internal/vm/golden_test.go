package vm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ffcd00/tlox/internal/config"
)

// TestGoldenScripts runs every testdata/*.lox script that has a .want file
// and compares stdout followed by stderr with it.
func TestGoldenScripts(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*"+config.SourceFileExt))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Skip("no scripts in testdata")
	}

	for _, path := range paths {
		path := path
		wantFile := config.TrimSourceExt(path) + ".want"
		if _, err := os.Stat(wantFile); err != nil {
			continue
		}

		t.Run(filepath.Base(config.TrimSourceExt(path)), func(t *testing.T) {
			source, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read source: %v", err)
			}
			wantBytes, err := os.ReadFile(wantFile)
			if err != nil {
				t.Fatalf("read want: %v", err)
			}

			stdout, stderr, _ := interpret(t, string(source))

			var parts []string
			if s := strings.TrimSpace(stdout); s != "" {
				parts = append(parts, s)
			}
			if s := strings.TrimSpace(stderr); s != "" {
				parts = append(parts, s)
			}
			got := strings.Join(parts, "\n")
			want := strings.TrimSpace(strings.ReplaceAll(string(wantBytes), "\r\n", "\n"))

			if got != want {
				t.Errorf("output mismatch:\n--- want ---\n%s\n--- got ---\n%s", want, got)
			}
		})
	}
}
