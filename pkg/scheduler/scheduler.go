// Package scheduler maintains persisted schedule records, arms and
// disarms cron timers, and invokes the execution engine on each fire.
package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
	"github.com/pyrestack/pyre/pkg/types"
)

// Invoker runs one function invocation. Satisfied by *engine.Engine.
type Invoker interface {
	Invoke(ctx context.Context, name string, payload json.RawMessage, callerEnv map[string]string) *types.ExecutionResult
}

// Scheduler owns the timer registry. Disk is written before the
// registry's observable effect changes, so a crash mid-mutation never
// leaves an armed timer unreflected in the persisted list.
type Scheduler struct {
	mu       sync.Mutex
	file     *scheduleFile
	invoker  Invoker
	logger   *zap.SugaredLogger
	validate *validator.Validate
	runner   *cron.Cron
	entries  map[int64]cron.EntryID
	lastID   int64
}

// New creates a Scheduler persisting to path.
func New(path string, invoker Invoker, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		file:     newScheduleFile(path),
		invoker:  invoker,
		logger:   logger,
		validate: validator.New(),
		runner:   cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		entries:  make(map[int64]cron.EntryID),
	}
}

// Validate rejects malformed five-field cron expressions.
func Validate(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return pyreerrors.Wrap(pyreerrors.DomainValidation, pyreerrors.CodeInvalidCron, "invalid cron expression", err)
	}
	return nil
}

// Start reconstructs the timer registry from the persisted list,
// arming only active records, and starts the runner. Nothing besides
// the file is consulted.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedules, err := s.file.Load()
	if err != nil {
		return err
	}

	for _, sched := range schedules {
		if sched.ID > s.lastID {
			s.lastID = sched.ID
		}
		if !sched.Active {
			continue
		}
		if err := s.arm(sched); err != nil {
			// A bad persisted expression must not block startup.
			s.logger.Errorw("failed to arm schedule", "schedule_id", sched.ID, "error", err)
		}
	}

	s.runner.Start()
	s.logger.Infow("scheduler started", "schedules", len(schedules), "armed", len(s.entries))
	return nil
}

// Stop halts the runner. Already-running ticks finish on their own.
func (s *Scheduler) Stop() {
	s.runner.Stop()
	s.logger.Info("scheduler stopped")
}

// List returns the persisted schedules in order.
func (s *Scheduler) List() ([]types.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Load()
}

// Armed reports whether a live timer exists for the schedule.
func (s *Scheduler) Armed(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Add validates the spec, assigns a monotonic id, persists the record,
// and arms it when active.
func (s *Scheduler) Add(spec types.ScheduleSpec) (*types.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate.Struct(spec); err != nil {
		return nil, pyreerrors.Wrap(pyreerrors.DomainValidation, pyreerrors.CodeInvalidSpec, "invalid schedule", err)
	}
	if err := Validate(spec.CronExpression); err != nil {
		return nil, err
	}

	schedules, err := s.file.Load()
	if err != nil {
		return nil, err
	}
	// Seed the id watermark from the persisted records: short-lived CLI
	// processes never call Start, and the new id must still land past
	// everything already on disk.
	for _, existing := range schedules {
		if existing.ID > s.lastID {
			s.lastID = existing.ID
		}
	}

	sched := types.Schedule{
		ID:             s.nextID(),
		FunctionName:   spec.FunctionName,
		CronExpression: spec.CronExpression,
		Active:         spec.Active,
		Input:          spec.Input,
		Description:    spec.Description,
	}
	schedules = append(schedules, sched)
	if err := s.file.Save(schedules); err != nil {
		return nil, err
	}

	if sched.Active {
		if err := s.arm(sched); err != nil {
			return nil, err
		}
	}
	return &sched, nil
}

// Update deactivates the live timer, rewrites the persisted record,
// and re-arms it when the result is still active.
func (s *Scheduler) Update(id int64, spec types.ScheduleSpec) (*types.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate.Struct(spec); err != nil {
		return nil, pyreerrors.Wrap(pyreerrors.DomainValidation, pyreerrors.CodeInvalidSpec, "invalid schedule", err)
	}
	if err := Validate(spec.CronExpression); err != nil {
		return nil, err
	}

	s.disarm(id)

	schedules, err := s.file.Load()
	if err != nil {
		return nil, err
	}

	var updated *types.Schedule
	for i := range schedules {
		if schedules[i].ID != id {
			continue
		}
		schedules[i].FunctionName = spec.FunctionName
		schedules[i].CronExpression = spec.CronExpression
		schedules[i].Active = spec.Active
		schedules[i].Input = spec.Input
		schedules[i].Description = spec.Description
		updated = &schedules[i]
		break
	}
	if updated == nil {
		return nil, pyreerrors.ErrScheduleNotFound
	}

	if err := s.file.Save(schedules); err != nil {
		return nil, err
	}

	if updated.Active {
		if err := s.arm(*updated); err != nil {
			return nil, err
		}
	}
	result := *updated
	return &result, nil
}

// Delete disarms the timer and removes the record. The record may
// reference an already-deleted function; the schedule itself is
// independent.
func (s *Scheduler) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarm(id)

	schedules, err := s.file.Load()
	if err != nil {
		return err
	}

	kept := schedules[:0]
	for _, sched := range schedules {
		if sched.ID != id {
			kept = append(kept, sched)
		}
	}
	return s.file.Save(kept)
}

// Activate flips the persisted flag and arms the timer. A no-op when
// the timer is already armed.
func (s *Scheduler) Activate(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, armed := s.entries[id]; armed {
		return nil
	}

	schedules, err := s.file.Load()
	if err != nil {
		return err
	}

	var target *types.Schedule
	for i := range schedules {
		if schedules[i].ID == id {
			schedules[i].Active = true
			target = &schedules[i]
			break
		}
	}
	if target == nil {
		return pyreerrors.ErrScheduleNotFound
	}

	if err := Validate(target.CronExpression); err != nil {
		return err
	}
	// Disk first, then the registry.
	if err := s.file.Save(schedules); err != nil {
		return err
	}
	return s.arm(*target)
}

// Deactivate flips the persisted flag and stops the timer. Idempotent
// when no timer is armed.
func (s *Scheduler) Deactivate(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedules, err := s.file.Load()
	if err != nil {
		return err
	}

	found := false
	for i := range schedules {
		if schedules[i].ID == id {
			schedules[i].Active = false
			found = true
			break
		}
	}
	if !found {
		return pyreerrors.ErrScheduleNotFound
	}

	if err := s.file.Save(schedules); err != nil {
		return err
	}
	s.disarm(id)
	return nil
}

// arm registers a live timer. Caller holds the lock.
func (s *Scheduler) arm(sched types.Schedule) error {
	entryID, err := s.runner.AddFunc(sched.CronExpression, func() {
		s.tick(sched)
	})
	if err != nil {
		return pyreerrors.Wrap(pyreerrors.DomainValidation, pyreerrors.CodeInvalidCron, "failed to arm schedule", err)
	}
	s.entries[sched.ID] = entryID
	return nil
}

// disarm stops and forgets the timer if present. Caller holds the lock.
func (s *Scheduler) disarm(id int64) {
	if entryID, ok := s.entries[id]; ok {
		s.runner.Remove(entryID)
		delete(s.entries, id)
	}
}

// tick runs one scheduled invocation. Failures are logged and never
// disarm the entry: a schedule tolerates failed ticks indefinitely,
// including a dangling function reference.
func (s *Scheduler) tick(sched types.Schedule) {
	start := time.Now()
	result := s.invoker.Invoke(context.Background(), sched.FunctionName, sched.Input, nil)
	if !result.Success {
		s.logger.Warnw("scheduled invocation failed",
			"schedule_id", sched.ID,
			"function", sched.FunctionName,
			"exit_code", result.ExitCode,
			"error", result.Error,
			"duration", time.Since(start))
		return
	}
	s.logger.Infow("scheduled invocation finished",
		"schedule_id", sched.ID,
		"function", sched.FunctionName,
		"duration", time.Since(start))
}

// nextID derives a monotonic id from the creation time, bumping past
// the last issued id when two creations land in the same millisecond.
func (s *Scheduler) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// cronLogger adapts zap to the cron.Logger interface used by the
// recovery chain.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Infow(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
