package scheduler

import (
	"encoding/json"
	"os"
	"path/filepath"

	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
	"github.com/pyrestack/pyre/pkg/types"
)

// scheduleFile persists the ordered schedule list as a JSON array,
// rewritten in full on every mutation. Disk is the source of truth:
// the in-memory timer registry is always reconstructable from the
// persisted active flags.
type scheduleFile struct {
	path string
}

func newScheduleFile(path string) *scheduleFile {
	return &scheduleFile{path: path}
}

// Load reads the persisted list, creating an empty file on first run.
func (f *scheduleFile) Load() ([]types.Schedule, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		if err := f.Save([]types.Schedule{}); err != nil {
			return nil, err
		}
		return []types.Schedule{}, nil
	}
	if err != nil {
		return nil, pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeReadFailed, "failed to read schedule file", err)
	}

	var schedules []types.Schedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeReadFailed, "failed to parse schedule file", err)
	}
	return schedules, nil
}

// Save rewrites the whole list. Safe only under the single-process
// assumption; mutations are serialized by the scheduler.
func (f *scheduleFile) Save(schedules []types.Schedule) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "failed to create schedule directory", err)
	}

	data, err := json.MarshalIndent(schedules, "", "  ")
	if err != nil {
		return pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "failed to encode schedules", err)
	}
	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "failed to write schedule file", err)
	}
	return nil
}
