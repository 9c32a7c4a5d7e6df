package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Options is the top-level lox.yaml configuration.
type Options struct {
	// TraceExecution logs every instruction with the value stack before it
	// runs. Only visible when LogLevel is "trace".
	TraceExecution bool `yaml:"trace_execution"`

	// PrintCode logs the disassembly of every function the compiler
	// finishes. Only visible when LogLevel is "debug" or lower.
	PrintCode bool `yaml:"print_code"`

	// LogLevel is a logrus level name. Defaults to "warn".
	LogLevel string `yaml:"log_level,omitempty"`

	// MaxFrames bounds the call depth; exceeding it is a "Stack overflow"
	// runtime error. Defaults to DefaultFramesMax.
	MaxFrames int `yaml:"max_frames,omitempty"`

	// HistoryFile is where the REPL keeps its line history. Relative paths
	// resolve against the user's home directory. Empty disables history.
	HistoryFile string `yaml:"history_file,omitempty"`
}

// DefaultOptions returns the options used when no lox.yaml is found.
func DefaultOptions() *Options {
	opts := &Options{}
	opts.setDefaults()
	return opts
}

// LoadConfig reads and parses a lox.yaml file.
func LoadConfig(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses lox.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Options, error) {
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	opts.setDefaults()
	if err := opts.validate(path); err != nil {
		return nil, err
	}
	return &opts, nil
}

// FindConfig searches for lox.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the config file and nil error if found,
// or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// Resolve picks the options for a run: the file named by LOX_CONFIG if set,
// otherwise the nearest lox.yaml above dir, otherwise the defaults.
func Resolve(dir string) (*Options, error) {
	if path := os.Getenv(ConfigEnvVar); path != "" {
		return LoadConfig(path)
	}
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return DefaultOptions(), nil
	}
	return LoadConfig(path)
}

// Level returns the parsed logrus level.
func (o *Options) Level() logrus.Level {
	level, err := logrus.ParseLevel(o.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

func (o *Options) setDefaults() {
	if o.LogLevel == "" {
		o.LogLevel = "warn"
	}
	if o.MaxFrames == 0 {
		o.MaxFrames = DefaultFramesMax
	}
}

// validate checks the configuration for semantic errors.
func (o *Options) validate(path string) error {
	if o.MaxFrames < 1 || o.MaxFrames > MaxFramesLimit {
		return fmt.Errorf("%s: max_frames must be between 1 and %d, got %d", path, MaxFramesLimit, o.MaxFrames)
	}
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("%s: log_level: %w", path, err)
	}
	return nil
}
