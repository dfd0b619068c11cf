// Package engine runs one function invocation to completion inside an
// isolated node child process, enforcing a wall-clock timeout and
// returning a structured result.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pyrestack/pyre/internal/config"
	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
	"github.com/pyrestack/pyre/pkg/types"
)

// ArtifactSource resolves runnable artifacts and their persisted
// environment. Satisfied by *store.Store.
type ArtifactSource interface {
	Runnable(name string) (string, error)
	Env(name string) (map[string]string, error)
}

// DepsLocator locates the per-function module resolution root.
// Satisfied by *deps.Installer.
type DepsLocator interface {
	NodeModulesDir(name string) string
}

// Engine executes functions. Every invocation gets a fresh child
// process; there is no pooling and no ordering between concurrent
// invocations, even of the same function.
type Engine struct {
	artifacts      ArtifactSource
	deps           DepsLocator
	nodeBinary     string
	defaultTimeout time.Duration
	logger         *zap.SugaredLogger
	logStore       *InvocationLogStore
}

// New creates an Engine.
func New(artifacts ArtifactSource, deps DepsLocator, cfg config.EngineConfig, logger *zap.SugaredLogger) *Engine {
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	capacity := cfg.LogStoreCapacity
	if capacity <= 0 {
		capacity = 1000
	}

	return &Engine{
		artifacts:      artifacts,
		deps:           deps,
		nodeBinary:     cfg.NodeBinary,
		defaultTimeout: timeout,
		logger:         logger,
		logStore:       NewInvocationLogStore(capacity),
	}
}

// LogStore exposes the per-function invocation logs.
func (e *Engine) LogStore() *InvocationLogStore {
	return e.logStore
}

// Invoke runs one invocation through resolve, prepare, spawn, await,
// finalize. Failures are folded into the returned result — execution
// errors are never raised to the caller, so a failing invocation can
// never destabilize the controller or other in-flight invocations.
func (e *Engine) Invoke(ctx context.Context, name string, payload json.RawMessage, callerEnv map[string]string) *types.ExecutionResult {
	e.logStore.Add(name, zapcore.InfoLevel, fmt.Sprintf("invocation started (payload: %d bytes)", len(payload)))
	start := time.Now()

	result := e.invoke(ctx, name, payload, callerEnv)

	level := zapcore.InfoLevel
	if !result.Success {
		level = zapcore.ErrorLevel
	}
	e.logStore.Add(name, level, fmt.Sprintf("invocation finished (exit: %d, duration: %v)", result.ExitCode, time.Since(start)))
	return result
}

func (e *Engine) invoke(ctx context.Context, name string, payload json.RawMessage, callerEnv map[string]string) *types.ExecutionResult {
	// Resolve. A TypeScript artifact without compiled output is
	// compiled here, before any process is spawned.
	runnable, err := e.artifacts.Runnable(name)
	if err != nil {
		e.logger.Warnw("artifact resolution failed", "function", name, "error", err)
		return e.failure(name, resolveErrorMessage(name, err))
	}

	// Prepare.
	compactPayload, err := compactJSON(payload)
	if err != nil {
		return e.failure(name, fmt.Sprintf("invalid input payload: %v", err))
	}

	bs, err := writeBootstrap(name, runnable, e.deps.NodeModulesDir(name))
	if err != nil {
		e.logger.Errorw("bootstrap synthesis failed", "function", name, "error", err)
		return e.failure(name, fmt.Sprintf("failed to prepare invocation: %v", err))
	}
	// The bootstrap script never outlives the invocation, whatever the
	// outcome.
	defer os.Remove(bs.Path)

	fnEnv, err := e.artifacts.Env(name)
	if err != nil {
		e.logger.Errorw("failed to read function env", "function", name, "error", err)
		return e.failure(name, fmt.Sprintf("failed to read function environment: %v", err))
	}

	env := mergeEnv(os.Environ(), callerEnv, fnEnv)
	if compactPayload != "" {
		env = append(env, PayloadEnvVar+"="+compactPayload)
	}

	// Spawn.
	cmd := exec.Command(e.nodeBinary, bs.Path)
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		e.logger.Errorw("failed to spawn runtime", "function", name, "error", err)
		return e.failure(name, fmt.Sprintf("failed to spawn runtime: %v", err))
	}

	// Await: race the child's exit against the wall clock.
	waitCtx, cancel := context.WithTimeout(ctx, e.defaultTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var exitCode int
	select {
	case waitErr := <-done:
		exitCode = exitCodeOf(waitErr)
	case <-waitCtx.Done():
		if err := cmd.Process.Kill(); err != nil {
			e.logger.Errorw("failed to kill timed-out process", "function", name, "error", err)
		}
		<-done
		errMsg := fmt.Sprintf("execution timed out after %v", e.defaultTimeout)
		e.logger.Warnw("invocation timed out", "function", name, "timeout", e.defaultTimeout)
		return &types.ExecutionResult{
			Success:  false,
			Output:   stdout.String(),
			Error:    errMsg,
			ExitCode: types.ExitCodeTimeout,
		}
	}

	// Finalize: recover the framed result from the interleaved stdout.
	value, output := splitResult(stdout.String(), bs.BeginSentinel, bs.EndSentinel)

	return &types.ExecutionResult{
		Success:  exitCode == 0,
		Output:   output,
		Error:    strings.TrimRight(stderr.String(), "\n"),
		ExitCode: exitCode,
		Value:    value,
	}
}

func (e *Engine) failure(name, msg string) *types.ExecutionResult {
	e.logStore.Add(name, zapcore.ErrorLevel, msg)
	return types.NewExecutionError(msg)
}

func resolveErrorMessage(name string, err error) string {
	if pyreerrors.Is(err, pyreerrors.DomainExecution, pyreerrors.CodeFunctionNotFound) {
		return fmt.Sprintf("function not found: %s", name)
	}
	var de *pyreerrors.DomainError
	if errors.As(err, &de) && de.ErrDomain == pyreerrors.DomainCompile && de.Detail != "" {
		return fmt.Sprintf("%v\n%s", err, de.Detail)
	}
	return err.Error()
}

// compactJSON canonicalizes the payload to its compact encoding, the
// form the bootstrap decodes.
func compactJSON(payload json.RawMessage) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// mergeEnv layers environments left to right: process defaults, then
// caller-supplied variables, then persisted per-function variables.
// Later layers strictly override earlier ones.
func mergeEnv(base []string, layers ...map[string]string) []string {
	merged := make(map[string]string, len(base))
	order := make([]string, 0, len(base))

	set := func(k, v string) {
		if _, seen := merged[k]; !seen {
			order = append(order, k)
		}
		merged[k] = v
	}

	for _, kv := range base {
		if k, v, found := strings.Cut(kv, "="); found {
			set(k, v)
		}
	}
	for _, layer := range layers {
		for k, v := range layer {
			set(k, v)
		}
	}

	env := make([]string, 0, len(order))
	for _, k := range order {
		env = append(env, k+"="+merged[k])
	}
	return env
}

func exitCodeOf(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return types.ExitCodeError
}
