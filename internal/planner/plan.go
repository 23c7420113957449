package planner

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tumi8/insalata-go/internal/diff"
	"github.com/tumi8/insalata-go/internal/metrics"
)

// DefaultSearch is the search configuration the source hands to
// fast-downward unconditionally; operators have never needed to change it.
const DefaultSearch = `eager_greedy(ff(), preferred=ff())`

// Step is one entry of an ordered reconciliation plan: an action name paired
// with the global IDs of the objects it takes as parameters, in the order
// the planner emitted them.
type Step struct {
	Action  string
	Objects []string
}

// Options configures one planner invocation.
type Options struct {
	// PlannerPath is the fast-downward-compatible solver binary.
	PlannerPath string
	// DomainFile is the PDDL domain description fixed for this system.
	DomainFile string
	// WorkDir holds the transient problem/plan files; cleaned up after use.
	WorkDir string
	// Search overrides DefaultSearch when non-empty.
	Search string
	// Environment labels PlannerFailuresTotal; empty is reported as "unknown".
	Environment string
}

// Run writes result as a PDDL problem, invokes the external solver, and
// parses its plan file into an ordered list of Steps. A nil, nil return
// means the solver considered the goal unreachable or already satisfied.
func Run(ctx context.Context, log *slog.Logger, result *diff.Result, opts Options) ([]Step, error) {
	if log == nil {
		log = slog.Default()
	}
	search := opts.Search
	if search == "" {
		search = DefaultSearch
	}

	id := uuid.New().String()
	problemPath := filepath.Join(opts.WorkDir, "problem_"+id)
	planPath := filepath.Join(opts.WorkDir, "plan_"+id)

	f, err := os.Create(problemPath)
	if err != nil {
		return nil, fmt.Errorf("planner: create problem file: %w", err)
	}
	writeErr := WriteProblem(f, problemPath, result)
	closeErr := f.Close()
	if writeErr != nil {
		return nil, fmt.Errorf("planner: write problem file: %w", writeErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("planner: close problem file: %w", closeErr)
	}

	env := opts.Environment
	if env == "" {
		env = "unknown"
	}

	log.Info("running planner", "problem", problemPath)
	cmd := exec.CommandContext(ctx, opts.PlannerPath,
		"--plan-file", planPath,
		opts.DomainFile, problemPath,
		"--search", search,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Warn("planner exited with an error", "error", err, "output", string(out))
		metrics.PlannerFailuresTotal.WithLabelValues(env).Inc()
	}

	defer os.Remove(problemPath)

	if _, err := os.Stat(planPath); err != nil {
		log.Info("no plan found")
		metrics.PlannerFailuresTotal.WithLabelValues(env).Inc()
		return nil, nil
	}
	defer os.Remove(planPath)

	log.Info("plan found")
	return (FastDownwardParser{}).Parse(planPath)
}

// FastDownwardParser reads a fast-downward plan file: one "(action obj1
// obj2 ...)" line per step, with a trailing cost comment line to discard.
type FastDownwardParser struct{}

// Parse turns planFile into an ordered list of Steps.
func (FastDownwardParser) Parse(planFile string) ([]Step, error) {
	f, err := os.Open(planFile)
	if err != nil {
		return nil, fmt.Errorf("planner: open plan file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("planner: read plan file: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil
	}
	// the final line is a "; cost = N" comment, not a step.
	lines = lines[:len(lines)-1]

	steps := make([]Step, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimPrefix(strings.TrimSpace(line), "(")
		line = strings.TrimSuffix(line, ")")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		steps = append(steps, Step{
			Action:  strings.ToLower(fields[0]),
			Objects: fields[1:],
		})
	}
	return steps, nil
}
