// internal/tools/task_manager.go
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/xkilldash9x/droidpilot/internal/clock"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const maxTaskHistory = 10

// Task is one entry of a batch: which tool to run and with what.
type Task struct {
	Tool   string `json:"tool" yaml:"tool"`
	Params Params `json:"params,omitempty" yaml:"params,omitempty"`
	// StopOnFailure overrides the configured default when set.
	StopOnFailure *bool `json:"stop_on_failure,omitempty" yaml:"stop_on_failure,omitempty"`
	// WaitAfter overrides the configured pause before the next task when set.
	WaitAfter *time.Duration `json:"wait_after,omitempty" yaml:"wait_after,omitempty"`
}

// TaskRecord is a finished task.
type TaskRecord struct {
	ID        string    `json:"id"`
	Tool      string    `json:"tool"`
	Params    Params    `json:"params,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Result    Result    `json:"result"`
}

// Summary counts the outcomes of a batch.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize counts records by outcome.
func Summarize(records []TaskRecord) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if r.Result.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// TaskManager runs tools from a registry, launching their required app first.
type TaskManager struct {
	registry *Registry
	env      *Env
	cfg      config.TasksConfig
	clock    clock.Clock
	logger   *zap.Logger

	mu      sync.Mutex
	history []TaskRecord
}

// NewTaskManager creates a task manager. env.Clock defaults to the wall clock.
func NewTaskManager(registry *Registry, env *Env, cfg config.TasksConfig, logger *zap.Logger) *TaskManager {
	if env.Clock == nil {
		env.Clock = clock.New()
	}
	if env.Logger == nil {
		env.Logger = logger
	}
	env.Tasks = cfg
	return &TaskManager{
		registry: registry,
		env:      env,
		cfg:      cfg,
		clock:    env.Clock,
		logger:   logger.Named("tasks"),
	}
}

// Registry returns the tool registry.
func (m *TaskManager) Registry() *Registry { return m.registry }

// Execute runs a single task and records it.
func (m *TaskManager) Execute(ctx context.Context, task Task) TaskRecord {
	rec := TaskRecord{
		ID:        uuid.NewString(),
		Tool:      task.Tool,
		Params:    task.Params,
		StartTime: m.clock.Now(),
	}
	logger := m.logger.With(zap.String("task_id", rec.ID), zap.String("tool", task.Tool))

	rec.Result = m.run(ctx, logger, task)
	rec.EndTime = m.clock.Now()

	if rec.Result.Success {
		logger.Info("Task succeeded", zap.Duration("duration", rec.EndTime.Sub(rec.StartTime)))
	} else {
		logger.Warn("Task failed", zap.String("error", rec.Result.Error))
	}

	m.mu.Lock()
	m.history = append(m.history, rec)
	if len(m.history) > maxTaskHistory {
		m.history = m.history[len(m.history)-maxTaskHistory:]
	}
	m.mu.Unlock()
	return rec
}

func (m *TaskManager) run(ctx context.Context, logger *zap.Logger, task Task) (result Result) {
	if task.Tool == "" {
		return Result{Success: false, Error: "no tool specified"}
	}
	reg, err := m.registry.Get(task.Tool)
	if err != nil {
		return Failed(err)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic during tool execution", zap.Any("panic_value", r), zap.Stack("stack"))
			result = Result{Success: false, Error: fmt.Sprintf("tool panic: %v", r)}
		}
	}()

	if app := reg.Descriptor.RequiredApp; app != "" {
		if m.env.Launcher == nil {
			return Result{Success: false, Error: fmt.Sprintf("tool %s requires app %s but no launcher is configured", task.Tool, app)}
		}
		logger.Info("Launching required app", zap.String("app", app))
		if _, err := m.env.Launcher.Launch(ctx, app); err != nil {
			return Failed(fmt.Errorf("failed to launch required app %s: %w", app, err))
		}
	}

	tool := reg.Factory(m.env)
	logger.Debug("Setting up tool")
	if err := tool.Setup(ctx); err != nil {
		return Failed(fmt.Errorf("tool setup failed: %w", err))
	}
	defer func() {
		logger.Debug("Cleaning up tool")
		if err := tool.Cleanup(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Tool cleanup failed", zap.Error(err))
		}
	}()

	params := task.Params
	if params == nil {
		params = Params{}
	}
	logger.Debug("Running tool")
	res, err := tool.Run(ctx, params)
	if err != nil {
		return Failed(err)
	}
	return res
}

// Schedule runs tasks in order, pausing between them. It stops early on a
// failure when the task (or the configuration) asks to, or when ctx is done.
func (m *TaskManager) Schedule(ctx context.Context, tasks []Task) []TaskRecord {
	records := make([]TaskRecord, 0, len(tasks))
	for i, task := range tasks {
		if ctx.Err() != nil {
			m.logger.Warn("Batch cancelled", zap.Int("remaining", len(tasks)-i))
			break
		}
		m.logger.Info("Executing task", zap.Int("index", i), zap.String("tool", task.Tool), zap.Any("params", task.Params))
		rec := m.Execute(ctx, task)
		records = append(records, rec)

		stop := m.cfg.StopOnFailure
		if task.StopOnFailure != nil {
			stop = *task.StopOnFailure
		}
		if !rec.Result.Success && stop {
			m.logger.Warn("Task failed, stopping the batch", zap.String("tool", task.Tool))
			break
		}

		if i == len(tasks)-1 {
			break
		}
		wait := m.cfg.WaitAfter
		if task.WaitAfter != nil {
			wait = *task.WaitAfter
		}
		if wait > 0 {
			if err := m.clock.Sleep(ctx, wait); err != nil {
				break
			}
		}
	}
	return records
}

// SaveResults writes records as indented JSON into dir and returns the file path.
func (m *TaskManager) SaveResults(records []TaskRecord, dir string) (string, error) {
	if dir == "" {
		dir = m.cfg.OutputDir
	}
	dir, err := config.ExpandPath(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	payload := struct {
		RunID   string       `json:"run_id"`
		SavedAt time.Time    `json:"saved_at"`
		Summary Summary      `json:"summary"`
		Results []TaskRecord `json:"results"`
	}{
		RunID:   uuid.NewString(),
		SavedAt: m.clock.Now(),
		Summary: Summarize(records),
		Results: records,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode task results: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("task_results_%s_%s.json", payload.SavedAt.UTC().Format("20060102T150405"), payload.RunID[:8]))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write task results: %w", err)
	}
	m.logger.Info("Task results saved", zap.String("path", path), zap.Int("tasks", len(records)))
	return path, nil
}

// History returns the most recent task records, oldest first.
func (m *TaskManager) History() []TaskRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TaskRecord(nil), m.history...)
}

// LoadTasks reads a batch file. JSON and YAML are both accepted.
func LoadTasks(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	var tasks []Task
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}
	for i, t := range tasks {
		if t.Tool == "" {
			return nil, fmt.Errorf("batch task %d has no tool", i)
		}
	}
	return tasks, nil
}
