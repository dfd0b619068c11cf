package engine

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrestack/pyre/internal/config"
	"github.com/pyrestack/pyre/internal/logging"
	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
	"github.com/pyrestack/pyre/pkg/types"
)

// fakeArtifacts serves runnable paths and env maps from memory.
type fakeArtifacts struct {
	runnables map[string]string
	envs      map[string]map[string]string
}

func (f *fakeArtifacts) Runnable(name string) (string, error) {
	path, ok := f.runnables[name]
	if !ok {
		return "", pyreerrors.New(pyreerrors.DomainExecution, pyreerrors.CodeFunctionNotFound, "function not found").WithFunction(name)
	}
	return path, nil
}

func (f *fakeArtifacts) Env(name string) (map[string]string, error) {
	return f.envs[name], nil
}

type fakeDeps struct{ dir string }

func (f *fakeDeps) NodeModulesDir(string) string { return f.dir }

func setupEngine(t *testing.T, timeout time.Duration, sources map[string]string) (*Engine, *fakeArtifacts) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "engine-test-*")
	require.NoError(t, err, "failed to create temp directory")
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	artifacts := &fakeArtifacts{
		runnables: make(map[string]string),
		envs:      make(map[string]map[string]string),
	}
	for name, source := range sources {
		path := filepath.Join(tmpDir, name+".js")
		require.NoError(t, os.WriteFile(path, []byte(source), 0644))
		artifacts.runnables[name] = path
	}

	cfg := config.DefaultConfig().Engine
	cfg.DefaultTimeout = timeout
	return New(artifacts, &fakeDeps{}, cfg, logging.NewNopLogger()), artifacts
}

func requireNode(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node not available")
	}
}

func TestInvokeMissingFunction(t *testing.T) {
	eng, _ := setupEngine(t, 5*time.Second, nil)

	result := eng.Invoke(context.Background(), "ghost", nil, nil)
	assert.False(t, result.Success)
	assert.Equal(t, types.ExitCodeError, result.ExitCode)
	assert.Contains(t, result.Error, "function not found: ghost")
}

func TestInvokeInvalidPayload(t *testing.T) {
	eng, _ := setupEngine(t, 5*time.Second, map[string]string{
		"greet": `module.exports = () => "hi";`,
	})

	result := eng.Invoke(context.Background(), "greet", json.RawMessage("{not json"), nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid input payload")
}

func TestInvokeReturnValue(t *testing.T) {
	requireNode(t)

	eng, _ := setupEngine(t, 10*time.Second, map[string]string{
		"sync":  `module.exports = (input) => ({ doubled: input.n * 2 });`,
		"async": `module.exports = async () => "done";`,
		"void":  `module.exports = () => {};`,
	})

	t.Run("synchronous return value", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "sync", json.RawMessage(`{"n": 21}`), nil)
		require.True(t, result.Success, "error: %s", result.Error)
		assert.Equal(t, 0, result.ExitCode)
		assert.JSONEq(t, `{"doubled":42}`, string(result.Value))
	})

	t.Run("awaited promise value", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "async", nil, nil)
		require.True(t, result.Success, "error: %s", result.Error)
		assert.JSONEq(t, `"done"`, string(result.Value))
	})

	t.Run("undefined becomes null", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "void", nil, nil)
		require.True(t, result.Success, "error: %s", result.Error)
		assert.Equal(t, "null", string(result.Value))
	})
}

func TestInvokeEntryPointOrder(t *testing.T) {
	requireNode(t)

	eng, _ := setupEngine(t, 10*time.Second, map[string]string{
		"handler": `exports.handler = () => "from handler";`,
		"main":    `exports.main = () => "from main";`,
		"both": `exports.handler = () => "from handler";
exports.main = () => "from main";`,
		"none": `module.exports = { value: 42 };`,
	})

	t.Run("handler export", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "handler", nil, nil)
		require.True(t, result.Success, "error: %s", result.Error)
		assert.JSONEq(t, `"from handler"`, string(result.Value))
	})

	t.Run("main export", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "main", nil, nil)
		require.True(t, result.Success, "error: %s", result.Error)
		assert.JSONEq(t, `"from main"`, string(result.Value))
	})

	t.Run("handler preferred over main", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "both", nil, nil)
		require.True(t, result.Success, "error: %s", result.Error)
		assert.JSONEq(t, `"from handler"`, string(result.Value))
	})

	t.Run("no entry point fails", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "none", nil, nil)
		assert.False(t, result.Success)
		assert.Equal(t, 1, result.ExitCode)
		assert.Contains(t, result.Error, "no invocable entry point")
	})
}

func TestInvokeLogsSeparatedFromValue(t *testing.T) {
	requireNode(t)

	eng, _ := setupEngine(t, 10*time.Second, map[string]string{
		"chatty": `module.exports = () => {
  console.log("step one");
  console.log("step two");
  return { ok: true };
};`,
	})

	result := eng.Invoke(context.Background(), "chatty", nil, nil)
	require.True(t, result.Success, "error: %s", result.Error)
	assert.JSONEq(t, `{"ok":true}`, string(result.Value))
	assert.Equal(t, "step one\nstep two", result.Output)
}

func TestInvokeExitCodePassthrough(t *testing.T) {
	requireNode(t)

	eng, _ := setupEngine(t, 10*time.Second, map[string]string{
		"quitter": `module.exports = () => { process.exit(7); };`,
		"thrower": `module.exports = () => { throw new Error("boom"); };`,
	})

	t.Run("explicit exit code preserved", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "quitter", nil, nil)
		assert.False(t, result.Success)
		assert.Equal(t, 7, result.ExitCode)
		assert.Nil(t, result.Value)
	})

	t.Run("thrown error reported on stderr", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "thrower", nil, nil)
		assert.False(t, result.Success)
		assert.Equal(t, 1, result.ExitCode)
		assert.Contains(t, result.Error, "boom")
	})
}

func TestInvokeTimeout(t *testing.T) {
	requireNode(t)

	eng, _ := setupEngine(t, 2*time.Second, map[string]string{
		"sleeper": `module.exports = () => new Promise(() => {});`,
	})

	before := bootstrapLeftovers(t, "sleeper")

	result := eng.Invoke(context.Background(), "sleeper", nil, nil)
	assert.False(t, result.Success)
	assert.Equal(t, types.ExitCodeTimeout, result.ExitCode)
	assert.Contains(t, result.Error, "timed out")

	assert.Equal(t, before, bootstrapLeftovers(t, "sleeper"), "timed-out invocation must clean up its launcher")
}

func bootstrapLeftovers(t *testing.T, name string) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "pyre-"+name+"-*.js"))
	require.NoError(t, err)
	return len(matches)
}

func TestInvokeEnvLayering(t *testing.T) {
	requireNode(t)

	eng, artifacts := setupEngine(t, 10*time.Second, map[string]string{
		"env": `module.exports = () => ({
  caller: process.env.CALLER_ONLY || null,
  persisted: process.env.PERSISTED_ONLY || null,
  contested: process.env.CONTESTED || null,
});`,
	})
	artifacts.envs["env"] = map[string]string{
		"PERSISTED_ONLY": "from-file",
		"CONTESTED":      "file-wins",
	}

	callerEnv := map[string]string{
		"CALLER_ONLY": "from-caller",
		"CONTESTED":   "caller-loses",
	}

	result := eng.Invoke(context.Background(), "env", nil, callerEnv)
	require.True(t, result.Success, "error: %s", result.Error)
	assert.JSONEq(t, `{"caller":"from-caller","persisted":"from-file","contested":"file-wins"}`, string(result.Value))
}

func TestInvokePayloadDelivery(t *testing.T) {
	requireNode(t)

	eng, _ := setupEngine(t, 10*time.Second, map[string]string{
		"echo":    `module.exports = (input) => input;`,
		"nullish": `module.exports = (input) => input === null;`,
	})

	t.Run("payload decoded and passed as argument", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "echo", json.RawMessage(`{ "name": "pyre", "n": 3 }`), nil)
		require.True(t, result.Success, "error: %s", result.Error)
		assert.JSONEq(t, `{"name":"pyre","n":3}`, string(result.Value))
	})

	t.Run("absent payload arrives as null", func(t *testing.T) {
		result := eng.Invoke(context.Background(), "nullish", nil, nil)
		require.True(t, result.Success, "error: %s", result.Error)
		assert.Equal(t, "true", string(result.Value))
	})
}

func TestMergeEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/root", "CONTESTED=base"}
	caller := map[string]string{"CALLER": "1", "CONTESTED": "caller"}
	persisted := map[string]string{"PERSISTED": "1", "CONTESTED": "persisted"}

	env := mergeEnv(base, caller, persisted)

	assert.Contains(t, env, "PATH=/usr/bin")
	assert.Contains(t, env, "HOME=/root")
	assert.Contains(t, env, "CALLER=1")
	assert.Contains(t, env, "PERSISTED=1")
	assert.Contains(t, env, "CONTESTED=persisted")
	assert.NotContains(t, env, "CONTESTED=base")
	assert.NotContains(t, env, "CONTESTED=caller")
}

func TestCompactJSON(t *testing.T) {
	compact, err := compactJSON(json.RawMessage("{ \"a\": 1,\n  \"b\": [1, 2] }"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":[1,2]}`, compact)

	compact, err = compactJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "", compact)

	_, err = compactJSON(json.RawMessage("{bad"))
	assert.Error(t, err)
}
