package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrestack/pyre/internal/config"
	"github.com/pyrestack/pyre/internal/logging"
	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
	"github.com/pyrestack/pyre/pkg/types"
)

func setupStore(t *testing.T) (*Store, string) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "store-test-*")
	require.NoError(t, err, "failed to create temp directory")
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	cfg := config.DefaultConfig()
	cfg.Paths.DataDir = tmpDir
	cfg.Paths.FunctionsDir = filepath.Join(tmpDir, "functions")
	cfg.Paths.CompiledDir = filepath.Join(tmpDir, "compiled")
	cfg.Paths.EnvDir = filepath.Join(tmpDir, "env")
	cfg.Paths.DepsDir = filepath.Join(tmpDir, "deps")

	index, err := OpenIndex(tmpDir)
	require.NoError(t, err, "failed to open index")
	t.Cleanup(func() { index.Close() })

	st, err := New(cfg, index, logging.NewNopLogger())
	require.NoError(t, err, "failed to create store")

	return st, tmpDir
}

func TestAdd(t *testing.T) {
	st, _ := setupStore(t)

	t.Run("javascript upload", func(t *testing.T) {
		artifact, err := st.Add("greet", []byte(`module.exports = () => "hi";`), ".js")
		require.NoError(t, err)
		assert.Equal(t, types.LanguageJS, artifact.Language)
		assert.FileExists(t, artifact.SourcePath)
		assert.Empty(t, artifact.CompiledPath)
	})

	t.Run("unsupported extension rejected before storage", func(t *testing.T) {
		_, err := st.Add("bad", []byte("print('no')"), ".py")
		require.Error(t, err)
		assert.True(t, pyreerrors.Is(err, pyreerrors.DomainValidation, pyreerrors.CodeUnsupportedExtension))

		_, err = st.Get("bad")
		assert.Error(t, err, "rejected upload must not be indexed")
	})

	t.Run("path traversal in name rejected", func(t *testing.T) {
		for _, name := range []string{"../../escape", "sub/dir", `back\slash`, "..", "", "."} {
			_, err := st.Add(name, []byte("module.exports = () => 1;"), ".js")
			require.Error(t, err, "name %q must be rejected", name)
			assert.True(t, pyreerrors.Is(err, pyreerrors.DomainValidation, pyreerrors.CodeInvalidName))
		}
	})
}

func TestList(t *testing.T) {
	st, _ := setupStore(t)

	_, err := st.Add("alpha", []byte("module.exports = () => 1;"), ".js")
	require.NoError(t, err)
	_, err = st.Add("beta", []byte("module.exports = () => 2;"), ".js")
	require.NoError(t, err)

	artifacts, err := st.List()
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	names := []string{artifacts[0].Name, artifacts[1].Name}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}

func TestRunnable(t *testing.T) {
	st, _ := setupStore(t)

	artifact, err := st.Add("greet", []byte("module.exports = () => 1;"), ".js")
	require.NoError(t, err)

	t.Run("javascript runs its source", func(t *testing.T) {
		path, err := st.Runnable("greet")
		require.NoError(t, err)
		assert.Equal(t, artifact.SourcePath, path)
	})

	t.Run("missing function", func(t *testing.T) {
		_, err := st.Runnable("nope")
		require.Error(t, err)
		assert.True(t, pyreerrors.Is(err, pyreerrors.DomainExecution, pyreerrors.CodeFunctionNotFound))
	})
}

func TestDelete(t *testing.T) {
	st, tmpDir := setupStore(t)

	artifact, err := st.Add("victim", []byte("module.exports = () => 1;"), ".js")
	require.NoError(t, err)
	require.NoError(t, st.SetEnv("victim", map[string]string{"A": "1"}))
	envPath := st.envPath("victim")
	require.FileExists(t, envPath)

	// Simulate an installed dependency tree for the function.
	depsDir := filepath.Join(tmpDir, "deps", "victim")
	require.NoError(t, os.MkdirAll(filepath.Join(depsDir, "node_modules", "left-pad"), 0755))

	require.NoError(t, st.Delete("victim"))

	assert.NoFileExists(t, artifact.SourcePath)
	assert.NoFileExists(t, envPath)
	assert.NoDirExists(t, depsDir, "dependency directory must go with the function")
	_, err = st.Get("victim")
	assert.Error(t, err)

	t.Run("delete is idempotent", func(t *testing.T) {
		assert.NoError(t, st.Delete("victim"))
		assert.NoError(t, st.Delete("never-existed"))
	})
}

func TestEnv(t *testing.T) {
	st, _ := setupStore(t)

	t.Run("missing env file yields empty map", func(t *testing.T) {
		env, err := st.Env("greet")
		require.NoError(t, err)
		assert.Empty(t, env)
	})

	t.Run("round trip", func(t *testing.T) {
		want := map[string]string{
			"GREETING": "hello",
			"URL":      "a=b=c",
		}
		require.NoError(t, st.SetEnv("greet", want))

		got, err := st.Env("greet")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("set replaces previous contents", func(t *testing.T) {
		require.NoError(t, st.SetEnv("greet", map[string]string{"ONLY": "this"}))

		got, err := st.Env("greet")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"ONLY": "this"}, got)
	})

	t.Run("path traversal in name rejected", func(t *testing.T) {
		err := st.SetEnv("../outside", map[string]string{"A": "1"})
		require.Error(t, err)
		assert.True(t, pyreerrors.Is(err, pyreerrors.DomainValidation, pyreerrors.CodeInvalidName))
	})
}

func TestSetDependencies(t *testing.T) {
	st, _ := setupStore(t)

	_, err := st.Add("greet", []byte(`const axios = require("axios");`), ".js")
	require.NoError(t, err)

	deps := map[string]string{"axios": "latest"}
	require.NoError(t, st.SetDependencies("greet", deps))

	artifact, err := st.Get("greet")
	require.NoError(t, err)
	assert.Equal(t, deps, artifact.Dependencies)
}
