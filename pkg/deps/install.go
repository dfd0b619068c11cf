package deps

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/pyrestack/pyre/internal/config"
	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
)

// Installer provisions isolated per-function dependency directories by
// running the package manager's install command.
type Installer struct {
	command string
	args    []string
	depsDir string
	logger  *zap.SugaredLogger
}

// NewInstaller builds an Installer from config. Each function gets
// <depsDir>/<name>/ with its own manifest and node_modules.
func NewInstaller(cfg config.InstallerConfig, depsDir string, logger *zap.SugaredLogger) *Installer {
	return &Installer{
		command: cfg.Command,
		args:    cfg.Args,
		depsDir: depsDir,
		logger:  logger,
	}
}

// packageManifest is the descriptor written into the install dir.
type packageManifest struct {
	Name         string            `json:"name"`
	Private      bool              `json:"private"`
	Dependencies map[string]string `json:"dependencies"`
}

// Install provisions the dependency directory for a function and runs
// the package manager there, streaming its output. A nonzero install
// exit is tolerated as long as node_modules materialized; warning-only
// failures are common with npm.
func (in *Installer) Install(ctx context.Context, name string, deps map[string]string) (string, error) {
	installDir := filepath.Join(in.depsDir, name)
	if err := os.MkdirAll(installDir, 0755); err != nil {
		return "", pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "failed to create dependency directory", err).WithFunction(name)
	}

	manifest, err := json.MarshalIndent(packageManifest{
		Name:         name + "-deps",
		Private:      true,
		Dependencies: deps,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(installDir, "package.json"), manifest, 0644); err != nil {
		return "", pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "failed to write dependency manifest", err).WithFunction(name)
	}

	if len(deps) == 0 {
		return installDir, nil
	}

	cmd := exec.CommandContext(ctx, in.command, in.args...)
	cmd.Dir = installDir

	// Stream installer output through the logger while keeping a copy
	// for the error detail.
	var captured bytes.Buffer
	stream := &zapio.Writer{Log: in.logger.Desugar().Named("installer"), Level: zapcore.InfoLevel}
	defer stream.Close()
	cmd.Stdout = io.MultiWriter(&captured, stream)
	cmd.Stderr = io.MultiWriter(&captured, stream)

	runErr := cmd.Run()
	if runErr != nil {
		if _, statErr := os.Stat(filepath.Join(installDir, "node_modules")); statErr == nil {
			in.logger.Warnw("installer exited nonzero but dependencies materialized", "function", name, "error", runErr)
			return installDir, nil
		}
		return "", pyreerrors.Wrap(pyreerrors.DomainDependency, pyreerrors.CodeInstallFailed, "dependency install failed", runErr).
			WithFunction(name).
			WithDetail(captured.String())
	}

	return installDir, nil
}

// NodeModulesDir returns the per-function module resolution root the
// engine prepends to the child's search path.
func (in *Installer) NodeModulesDir(name string) string {
	return filepath.Join(in.depsDir, name, "node_modules")
}
