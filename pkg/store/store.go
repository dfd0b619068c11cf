// Package store persists function artifacts: source files, compiled
// output, per-function environment files, and the badger-backed
// metadata index.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pyrestack/pyre/internal/config"
	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
	"github.com/pyrestack/pyre/pkg/types"
)

// Store is the artifact store. One source file and at most one
// compiled output exist per function name; deleting a function removes
// both plus its environment file and index record.
type Store struct {
	functionsDir string
	envDir       string
	depsDir      string
	index        *Index
	compiler     *Compiler
	logger       *zap.SugaredLogger
}

// New creates a Store rooted at the configured paths, creating the
// directories if needed.
func New(cfg *config.Config, index *Index, logger *zap.SugaredLogger) (*Store, error) {
	for _, dir := range []string{cfg.Paths.FunctionsDir, cfg.Paths.CompiledDir, cfg.Paths.EnvDir, cfg.Paths.DepsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "failed to create store directory", err)
		}
	}

	return &Store{
		functionsDir: cfg.Paths.FunctionsDir,
		envDir:       cfg.Paths.EnvDir,
		depsDir:      cfg.Paths.DepsDir,
		index:        index,
		compiler:     NewCompiler(cfg.Compiler, cfg.Paths.CompiledDir),
		logger:       logger,
	}, nil
}

// validateName rejects function names that would escape the store's
// directories once joined into a path.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return pyreerrors.New(pyreerrors.DomainValidation, pyreerrors.CodeInvalidName,
			fmt.Sprintf("invalid function name %q", name))
	}
	return nil
}

// List returns metadata for every stored function.
func (s *Store) List() ([]types.FunctionArtifact, error) {
	return s.index.List()
}

// Get returns metadata for one function.
func (s *Store) Get(name string) (*types.FunctionArtifact, error) {
	return s.index.Get(name)
}

// Add stores an uploaded source file. The extension selects the
// language variant; anything other than .js or .ts is rejected before
// anything touches disk. TypeScript is compiled immediately: on
// compile failure the uploaded source is removed and the compilation
// error (with captured diagnostics) propagates.
func (s *Store) Add(name string, src []byte, ext string) (*types.FunctionArtifact, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	var language types.Language
	switch ext {
	case ".js":
		language = types.LanguageJS
	case ".ts":
		language = types.LanguageTS
	default:
		return nil, pyreerrors.New(pyreerrors.DomainValidation, pyreerrors.CodeUnsupportedExtension,
			fmt.Sprintf("unsupported extension %q (expected .js or .ts)", ext)).WithFunction(name)
	}

	// Re-uploading under a new variant must not leave the old files
	// behind.
	if existing, err := s.index.Get(name); err == nil && existing.Language != language {
		s.removeFiles(existing)
	}

	srcPath := filepath.Join(s.functionsDir, name+ext)
	if err := os.WriteFile(srcPath, src, 0644); err != nil {
		return nil, pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "failed to write source file", err).WithFunction(name)
	}

	artifact := &types.FunctionArtifact{
		Name:       name,
		Language:   language,
		SourcePath: srcPath,
	}

	if language == types.LanguageTS {
		compiledPath, err := s.compiler.Compile(srcPath)
		if err != nil {
			// Roll back the upload so a broken source never lingers.
			if rmErr := os.Remove(srcPath); rmErr != nil {
				s.logger.Warnw("failed to remove source after compile failure", "function", name, "error", rmErr)
			}
			return nil, err
		}
		artifact.CompiledPath = compiledPath
	}

	if err := s.index.Put(artifact); err != nil {
		return nil, err
	}

	s.logger.Infow("function stored", "function", name, "language", language)
	return artifact, nil
}

// Compile runs the external compiler toolchain over srcPath and
// returns the output path.
func (s *Store) Compile(srcPath string) (string, error) {
	return s.compiler.Compile(srcPath)
}

// Runnable resolves the path to execute for a function: the compiled
// output when one exists, compiling on demand for TypeScript sources
// that have none yet, or the source itself for JavaScript.
func (s *Store) Runnable(name string) (string, error) {
	artifact, err := s.index.Get(name)
	if err != nil {
		return "", err
	}

	if artifact.Language == types.LanguageJS {
		return artifact.SourcePath, nil
	}

	if artifact.CompiledPath != "" {
		if _, err := os.Stat(artifact.CompiledPath); err == nil {
			return artifact.CompiledPath, nil
		}
	}

	compiledPath, err := s.compiler.Compile(artifact.SourcePath)
	if err != nil {
		return "", err
	}
	// Recording the compiled path is a cache update: when the index is
	// read-only (daemon holds the lock) the invocation still proceeds
	// and the next resolution recompiles.
	artifact.CompiledPath = compiledPath
	if err := s.index.Put(artifact); err != nil {
		s.logger.Warnw("failed to record compiled output", "function", artifact.Name, "error", err)
	}
	return compiledPath, nil
}

// SetDependencies records the resolved dependency manifest on the
// artifact's index entry.
func (s *Store) SetDependencies(name string, deps map[string]string) error {
	artifact, err := s.index.Get(name)
	if err != nil {
		return err
	}
	artifact.Dependencies = deps
	return s.index.Put(artifact)
}

// Delete removes a function's source, compiled output, environment
// file, dependency directory, and index record. Deleting an absent
// function is a no-op.
func (s *Store) Delete(name string) error {
	artifact, err := s.index.Get(name)
	if err != nil {
		if pyreerrors.Is(err, pyreerrors.DomainExecution, pyreerrors.CodeFunctionNotFound) {
			return nil
		}
		return err
	}

	s.removeFiles(artifact)
	if err := os.Remove(s.envPath(name)); err != nil && !os.IsNotExist(err) {
		s.logger.Warnw("failed to remove env file", "function", name, "error", err)
	}
	// The installed node_modules tree goes too; a later re-upload under
	// the same name starts from a clean install.
	if err := os.RemoveAll(filepath.Join(s.depsDir, name)); err != nil {
		s.logger.Warnw("failed to remove dependency directory", "function", name, "error", err)
	}

	if err := s.index.Delete(name); err != nil {
		return err
	}

	s.logger.Infow("function deleted", "function", name)
	return nil
}

// Env reads the persisted environment map for a function. A missing
// env file yields an empty map.
func (s *Store) Env(name string) (map[string]string, error) {
	data, err := os.ReadFile(s.envPath(name))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeReadFailed, "failed to read env file", err).WithFunction(name)
	}
	return parseEnv(string(data)), nil
}

// SetEnv persists the environment map for a function, replacing any
// previous contents.
func (s *Store) SetEnv(name string, env map[string]string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.WriteFile(s.envPath(name), []byte(formatEnv(env)), 0644); err != nil {
		return pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "failed to write env file", err).WithFunction(name)
	}
	return nil
}

func (s *Store) envPath(name string) string {
	return filepath.Join(s.envDir, name+".env")
}

func (s *Store) removeFiles(artifact *types.FunctionArtifact) {
	for _, path := range []string{artifact.SourcePath, artifact.CompiledPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warnw("failed to remove artifact file", "function", artifact.Name, "path", path, "error", err)
		}
	}
}
