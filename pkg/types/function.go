package types

import (
	"time"
)

// Language identifies the variant of an uploaded function artifact.
type Language string

const (
	// LanguageJS is plain JavaScript, runnable as uploaded.
	LanguageJS Language = "js"
	// LanguageTS is TypeScript, which requires a compile step before it
	// can be executed.
	LanguageTS Language = "ts"
)

// Ext returns the source file extension for the language.
func (l Language) Ext() string {
	return "." + string(l)
}

// FunctionArtifact is the stored metadata for one uploaded function.
// At most one source file and one compiled output exist per name; the
// per-function environment map is persisted separately as a
// <name>.env file.
type FunctionArtifact struct {
	Name         string            `json:"name"`
	Language     Language          `json:"language"`
	SourcePath   string            `json:"source_path"`
	CompiledPath string            `json:"compiled_path,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Compiled reports whether the artifact has a compiled output on disk.
func (a *FunctionArtifact) Compiled() bool {
	return a.CompiledPath != ""
}
