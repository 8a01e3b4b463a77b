// Package thinking implements the sequentialthinking tool. The tool keeps
// a history of the model's thoughts and named branches; its output is a
// status summary the model uses to pace its reasoning.
package thinking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flemzord/sweagent/internal/tool"
)

// Name is the tool name exposed to the model.
const Name = "sequentialthinking"

const description = `A detailed tool for dynamic and reflective problem-solving through thoughts.
This tool helps analyze problems through a flexible thinking process that can adapt and evolve.
Each thought can build on, question, or revise previous insights as understanding deepens.

When to use this tool:
- Breaking down complex problems into steps
- Planning and design with room for revision
- Analysis that might need course correction
- Problems where the full scope might not be clear initially
- Problems that require a multi-step solution
- Tasks that need to maintain context over multiple steps
- Situations where irrelevant information needs to be filtered out

Key features:
- You can adjust total_thoughts up or down as you progress
- You can question or revise previous thoughts
- You can add more thoughts even after reaching what seemed like the end
- You can express uncertainty and explore alternative approaches
- Not every thought needs to build linearly - you can branch or backtrack
- Generates a solution hypothesis
- Verifies the hypothesis based on the Chain of Thought steps
- Repeats the process until satisfied
- Provides a correct answer

Parameters explained:
- thought: Your current thinking step, which can include:
* Regular analytical steps
* Revisions of previous thoughts
* Questions about previous decisions
* Realizations about needing more analysis
* Changes in approach
* Hypothesis generation
* Hypothesis verification
- next_thought_needed: True if you need more thinking, even if at what seemed like the end
- thought_number: Current number in sequence (can go beyond initial total if needed)
- total_thoughts: Current estimate of thoughts needed (can be adjusted up/down)
- is_revision: A boolean indicating if this thought revises previous thinking
- revises_thought: If is_revision is true, which thought number is being reconsidered
- branch_from_thought: If branching, which thought number is the branching point
- branch_id: Identifier for the current branch (if any)
- needs_more_thoughts: If reaching end but realizing more thoughts needed

You should:
1. Start with an initial estimate of needed thoughts, but be ready to adjust
2. Feel free to question or revise previous thoughts
3. Don't hesitate to add more thoughts if needed, even at the "end"
4. Express uncertainty when present
5. Mark thoughts that revise previous thinking or branch into new paths
6. Ignore information that is irrelevant to the current step
7. Generate a solution hypothesis when appropriate
8. Verify the hypothesis based on the Chain of Thought steps
9. Repeat the process until satisfied with the solution
10. Provide a single, ideally correct answer as the final output
11. Only set next_thought_needed to false when truly done and a satisfactory answer is reached`

// Thought is one validated thinking step.
type Thought struct {
	Thought           string
	ThoughtNumber     int
	TotalThoughts     int
	NextThoughtNeeded bool
	IsRevision        *bool
	RevisesThought    int
	BranchFromThought int
	BranchID          string
	NeedsMoreThoughts *bool
}

// status is the JSON summary returned to the model. Field order is the
// order the model sees.
type status struct {
	ThoughtNumber        int      `json:"thought_number"`
	TotalThoughts        int      `json:"total_thoughts"`
	NextThoughtNeeded    bool     `json:"next_thought_needed"`
	Branches             []string `json:"branches"`
	ThoughtHistoryLength int      `json:"thought_history_length"`
}

type failure struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// Tool records thoughts across calls. It is safe for concurrent use.
type Tool struct {
	tool.Base
	logger *slog.Logger

	mu          sync.Mutex
	history     []Thought
	branches    map[string][]Thought
	branchOrder []string
}

// New creates the sequential thinking tool.
func New(opts tool.Options) *Tool {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{
		Base: tool.Base{
			ToolName:        Name,
			ToolDescription: description,
			ToolParameters: []tool.Parameter{
				{Name: "thought", Type: []string{"string"}, Description: "Your current thinking step", Required: true},
				{Name: "next_thought_needed", Type: []string{"boolean"}, Description: "Whether another thought step is needed", Required: true},
				{Name: "thought_number", Type: []string{"integer"}, Description: "Current thought number. Minimum value is 1.", Required: true},
				{Name: "total_thoughts", Type: []string{"integer"}, Description: "Estimated total thoughts needed. Minimum value is 1.", Required: true},
				{Name: "is_revision", Type: []string{"boolean"}, Description: "Whether this revises previous thinking"},
				{Name: "revises_thought", Type: []string{"integer"}, Description: "Which thought is being reconsidered. Minimum value is 1."},
				{Name: "branch_from_thought", Type: []string{"integer"}, Description: "Branching point thought number. Minimum value is 1."},
				{Name: "branch_id", Type: []string{"string"}, Description: "Branch identifier"},
				{Name: "needs_more_thoughts", Type: []string{"boolean"}, Description: "If more thoughts are needed"},
			},
		},
		logger:   logger.With("component", "tool.thinking"),
		branches: make(map[string][]Thought),
	}
}

// Execute implements tool.Tool.
func (t *Tool) Execute(_ context.Context, args map[string]any) (tool.ExecResult, error) {
	th, err := Validate(args)
	if err != nil {
		details, _ := json.MarshalIndent(failure{Error: err.Error(), Status: "failed"}, "", "  ")
		return tool.Failure(fmt.Sprintf("Sequential thinking failed: %s\n\nDetails:\n%s", err, details)), nil
	}

	if th.ThoughtNumber > th.TotalThoughts {
		th.TotalThoughts = th.ThoughtNumber
	}

	t.mu.Lock()
	t.history = append(t.history, th)
	if th.BranchFromThought > 0 && th.BranchID != "" {
		if _, ok := t.branches[th.BranchID]; !ok {
			t.branchOrder = append(t.branchOrder, th.BranchID)
		}
		t.branches[th.BranchID] = append(t.branches[th.BranchID], th)
	}
	st := status{
		ThoughtNumber:        th.ThoughtNumber,
		TotalThoughts:        th.TotalThoughts,
		NextThoughtNeeded:    th.NextThoughtNeeded,
		Branches:             append([]string{}, t.branchOrder...),
		ThoughtHistoryLength: len(t.history),
	}
	t.mu.Unlock()

	t.logger.Debug("thought recorded", "rendered", Format(th))

	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return tool.ExecResult{}, err
	}
	return tool.Success("Sequential thinking step completed.\n\nStatus:\n" + string(out)), nil
}

// History returns a copy of the recorded thoughts.
func (t *Tool) History() []Thought {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Thought(nil), t.history...)
}

// Validate checks raw tool arguments and builds a Thought.
func Validate(args map[string]any) (Thought, error) {
	var th Thought

	thought, ok := tool.String(args, "thought")
	if !ok {
		return th, errors.New("Invalid thought: must be a string")
	}
	number, ok := tool.Int(args, "thought_number")
	if !ok {
		return th, errors.New("Invalid thought_number: must be a number")
	}
	total, ok := tool.Int(args, "total_thoughts")
	if !ok {
		return th, errors.New("Invalid total_thoughts: must be a number")
	}
	next, ok := tool.Bool(args, "next_thought_needed")
	if !ok {
		return th, errors.New("Invalid next_thought_needed: must be a boolean")
	}
	if number < 1 {
		return th, errors.New("thought_number must be at least 1")
	}
	if total < 1 {
		return th, errors.New("total_thoughts must be at least 1")
	}

	revises, err := optionalPositive(args, "revises_thought")
	if err != nil {
		return th, err
	}
	branchFrom, err := optionalPositive(args, "branch_from_thought")
	if err != nil {
		return th, err
	}

	th = Thought{
		Thought:           thought,
		ThoughtNumber:     number,
		TotalThoughts:     total,
		NextThoughtNeeded: next,
		RevisesThought:    revises,
		BranchFromThought: branchFrom,
	}
	if tool.Has(args, "is_revision") {
		b := truthy(args["is_revision"])
		th.IsRevision = &b
	}
	if tool.Has(args, "branch_id") {
		th.BranchID = fmt.Sprint(args["branch_id"])
	}
	if tool.Has(args, "needs_more_thoughts") {
		b := truthy(args["needs_more_thoughts"])
		th.NeedsMoreThoughts = &b
	}
	return th, nil
}

// optionalPositive reads an optional thought reference. Missing, null and
// zero all mean "not set".
func optionalPositive(args map[string]any, key string) (int, error) {
	if !tool.Has(args, key) {
		return 0, nil
	}
	n, ok := tool.Int(args, key)
	if ok && n == 0 {
		return 0, nil
	}
	if !ok || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != ""
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return v != nil
	}
}

// Format renders a thought inside a box for log output.
func Format(th Thought) string {
	var prefix, detail string
	switch {
	case th.IsRevision != nil && *th.IsRevision:
		prefix = "🔄 Revision"
		detail = fmt.Sprintf(" (revising thought %d)", th.RevisesThought)
	case th.BranchFromThought > 0:
		prefix = "🌿 Branch"
		detail = fmt.Sprintf(" (from thought %d, ID: %s)", th.BranchFromThought, th.BranchID)
	default:
		prefix = "💭 Thought"
	}

	header := fmt.Sprintf("%s %d/%d%s", prefix, th.ThoughtNumber, th.TotalThoughts, detail)
	width := max(utf8.RuneCountInString(header), utf8.RuneCountInString(th.Thought)) + 4
	border := strings.Repeat("─", width)

	return "\n┌" + border + "┐\n" +
		"│ " + ljust(header, width-2) + " │\n" +
		"├" + border + "┤\n" +
		"│ " + ljust(th.Thought, width-2) + " │\n" +
		"└" + border + "┘"
}

func ljust(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// Interface guard.
var _ tool.Tool = (*Tool)(nil)
