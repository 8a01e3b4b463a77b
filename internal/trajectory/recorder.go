package trajectory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flemzord/sweagent/internal/provider"
)

// ErrDecode is returned by Load when a file is not a trajectory document.
var ErrDecode = errors.New("trajectory: invalid trajectory file")

// DefaultDir is where trajectories land when no path is given.
const DefaultDir = "trajectories"

// DefaultPath returns the timestamped path used when no explicit path is
// configured, relative to dir.
func DefaultPath(dir string, now time.Time) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, "trajectory_"+now.Format("20060102_150405")+".json")
}

// Recorder accumulates a Trajectory and rewrites its file after every
// record. It is safe for concurrent use.
type Recorder struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	data  Trajectory
	start time.Time
}

// New creates a recorder writing to path. An empty path selects
// DefaultPath under DefaultDir.
func New(path string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		logger: logger.With("component", "trajectory"),
		now:    time.Now,
	}
	if path == "" {
		path = DefaultPath(DefaultDir, r.now())
	}
	r.path = path
	r.data = Trajectory{LLMInteractions: []LLMInteraction{}, AgentSteps: []AgentStep{}}
	return r
}

// Path returns the file the recorder writes to.
func (r *Recorder) Path() string {
	return r.path
}

// Start resets the trajectory for a new task and writes it.
func (r *Recorder) Start(task, providerName, model string, maxSteps int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.start = r.now()
	started := r.start
	r.data.Task = task
	r.data.StartTime = &started
	r.data.Provider = providerName
	r.data.Model = model
	r.data.MaxSteps = maxSteps
	r.data.LLMInteractions = []LLMInteraction{}
	r.data.AgentSteps = []AgentStep{}
	r.saveLocked()
}

// RecordLLMInteraction appends one model call.
func (r *Recorder) RecordLLMInteraction(msgs []provider.LLMMessage, resp provider.CompletionResponse, providerName, model string, toolNames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var available []string
	if len(toolNames) > 0 {
		available = append([]string(nil), toolNames...)
	}
	r.data.LLMInteractions = append(r.data.LLMInteractions, LLMInteraction{
		Timestamp:      r.now(),
		Provider:       providerName,
		Model:          model,
		InputMessages:  messages(msgs),
		Response:       interactionResponse(resp),
		ToolsAvailable: available,
	})
	r.saveLocked()
}

// RecordStep appends one agent step.
func (r *Recorder) RecordStep(step StepRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data.AgentSteps = append(r.data.AgentSteps, AgentStep{
		StepNumber:  step.StepNumber,
		Timestamp:   r.now(),
		State:       step.State,
		LLMMessages: messages(step.Messages),
		LLMResponse: stepResponse(step.Response),
		ToolCalls:   toolCalls(step.ToolCalls),
		ToolResults: toolResults(step.ToolResults),
		Reflection:  optional(step.Reflection),
		Error:       optional(step.Error),
	})
	r.saveLocked()
}

// Finalize stamps the outcome and writes the file a last time. An empty
// finalResult is stored as null.
func (r *Recorder) Finalize(success bool, finalResult string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := r.now()
	r.data.EndTime = &end
	r.data.Success = success
	r.data.FinalResult = optional(finalResult)
	if !r.start.IsZero() {
		r.data.ExecutionTime = end.Sub(r.start).Seconds()
	}
	r.saveLocked()
}

// Snapshot returns the current document encoded as indented JSON.
func (r *Recorder) Snapshot() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return encode(r.data)
}

// Save writes the current document.
func (r *Recorder) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeLocked()
}

// saveLocked writes the document and logs, rather than returns, failures.
func (r *Recorder) saveLocked() {
	if err := r.writeLocked(); err != nil {
		r.logger.Warn("failed to save trajectory", "path", r.path, "error", err)
	}
}

// writeLocked replaces the file atomically through a sibling temp file.
func (r *Recorder) writeLocked() error {
	raw, err := encode(r.data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("trajectory: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("trajectory: creating temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("trajectory: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("trajectory: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("trajectory: replacing %s: %w", r.path, err)
	}
	return nil
}

func encode(t Trajectory) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("trajectory: encoding: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reads a trajectory file back.
func Load(path string) (*Trajectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trajectory: reading %s: %w", path, err)
	}
	var t Trajectory
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return &t, nil
}
