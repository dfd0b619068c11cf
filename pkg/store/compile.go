package store

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pyrestack/pyre/internal/config"
	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
)

// Compiler runs the external TypeScript toolchain to turn a .ts source
// file into runnable CommonJS output.
type Compiler struct {
	command string
	args    []string
	outDir  string
}

// NewCompiler builds a Compiler from config. Output lands in outDir as
// <basename>.js.
func NewCompiler(cfg config.CompilerConfig, outDir string) *Compiler {
	return &Compiler{
		command: cfg.Command,
		args:    cfg.Args,
		outDir:  outDir,
	}
}

// Compile compiles srcPath and returns the compiled output path. On
// failure the captured diagnostics travel in the error detail; the
// caller decides whether the source is rolled back.
func (c *Compiler) Compile(srcPath string) (string, error) {
	if err := os.MkdirAll(c.outDir, 0755); err != nil {
		return "", pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "failed to create compile output directory", err)
	}

	args := append(append([]string{}, c.args...), "--outDir", c.outDir, srcPath)
	cmd := exec.Command(c.command, args...)

	// tsc writes diagnostics to stdout; capture both streams together.
	var diag bytes.Buffer
	cmd.Stdout = &diag
	cmd.Stderr = &diag

	if err := cmd.Run(); err != nil {
		return "", pyreerrors.Wrap(pyreerrors.DomainCompile, pyreerrors.CodeCompileFailed, "compilation failed", err).
			WithDetail(diag.String())
	}

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	outPath := filepath.Join(c.outDir, base+".js")
	if _, err := os.Stat(outPath); err != nil {
		return "", pyreerrors.Wrap(pyreerrors.DomainCompile, pyreerrors.CodeCompileFailed, "compiler produced no output", err).
			WithDetail(diag.String())
	}

	return outPath, nil
}
