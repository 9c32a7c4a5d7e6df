package config

import "strings"

const SourceFileExt = ".lox"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".lox"}

// TrimSourceExt removes a recognized source extension from a path.
func TrimSourceExt(path string) string {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}

// UINT8Count bounds everything addressed by a single operand byte: locals
// per function, upvalues per closure, parameters, arguments and constants.
const UINT8Count = 256

// Call stack limits
const (
	DefaultFramesMax = 64
	MaxFramesLimit   = 4096
)

// ScriptName is how the implicit top-level function shows up in traces.
const ScriptName = "script"

// Process exit codes (sysexits.h)
const (
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

// ConfigFileName is the per-project options file looked up by FindConfig.
const ConfigFileName = "lox.yaml"

// ConfigEnvVar overrides the options file location.
const ConfigEnvVar = "LOX_CONFIG"
