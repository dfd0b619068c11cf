package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
)

// PayloadEnvVar carries the compact-JSON input payload into the child
// process.
const PayloadEnvVar = "PYRE_PAYLOAD"

// bootstrap is one synthesized launcher script. The path and sentinel
// markers are keyed by a per-invocation uuid so concurrent invocations
// of the same function never collide.
type bootstrap struct {
	Path          string
	BeginSentinel string
	EndSentinel   string
}

// The launcher: prepends the per-function node_modules to the module
// search path (global resolution stays as fallback), loads the
// artifact, picks the first invocable of default export / handler /
// main, decodes the payload from PYRE_PAYLOAD, awaits the returned
// value, and frames the JSON-encoded result between the sentinel
// lines. A thrown error or a missing entry point exits nonzero.
const bootstrapTemplate = `(async () => {
  const path = require("path");
  const fs = require("fs");
  const { Module } = require("module");
  const depsDir = %q;
  if (depsDir && fs.existsSync(depsDir)) {
    process.env.NODE_PATH = depsDir + path.delimiter + (process.env.NODE_PATH || "");
    Module._initPaths();
  }
  const mod = require(%q);
  const candidates = [];
  if (typeof mod === "function") candidates.push(mod);
  if (mod && typeof mod === "object") candidates.push(mod.default, mod.handler, mod.main);
  const entry = candidates.find((fn) => typeof fn === "function");
  if (!entry) {
    console.error("no invocable entry point: tried default export, handler, main");
    process.exit(1);
  }
  let input = null;
  const raw = process.env[%q];
  if (raw) input = JSON.parse(raw);
  const value = await entry(input);
  console.log(%q);
  console.log(JSON.stringify(value === undefined ? null : value));
  console.log(%q);
})().catch((err) => {
  console.error(err && err.stack ? err.stack : String(err));
  process.exit(1);
});
`

// writeBootstrap synthesizes the launcher for one invocation and
// writes it to a uuid-keyed temp path. The caller removes it when the
// invocation finishes, success or not.
func writeBootstrap(name, runnablePath, nodeModulesDir string) (*bootstrap, error) {
	id := uuid.NewString()
	bs := &bootstrap{
		Path:          filepath.Join(os.TempDir(), fmt.Sprintf("pyre-%s-%s.js", name, id)),
		BeginSentinel: fmt.Sprintf("----pyre:result:begin:%s----", id),
		EndSentinel:   fmt.Sprintf("----pyre:result:end:%s----", id),
	}

	script := fmt.Sprintf(bootstrapTemplate,
		nodeModulesDir,
		runnablePath,
		PayloadEnvVar,
		bs.BeginSentinel,
		bs.EndSentinel,
	)

	if err := os.WriteFile(bs.Path, []byte(script), 0644); err != nil {
		return nil, pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "failed to write bootstrap script", err).WithFunction(name)
	}
	return bs, nil
}
