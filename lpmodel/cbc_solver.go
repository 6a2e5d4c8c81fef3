// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lpmodel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/golang/glog"
)

// SolutionEps is the tolerance applied to solver-returned values. Values
// within SolutionEps of an integer are treated as that integer, and
// constraint checks allow a SolutionEps slack. Solver output is
// floating-point; never compare it exactly.
const SolutionEps = 1e-6

// ErrInfeasible holds the error when the solver proves no feasible point exists.
var ErrInfeasible = errors.New("model is infeasible")

// ErrSolverUnavailable holds the error when the external solver cannot be invoked.
var ErrSolverUnavailable = errors.New("solver unavailable")

// Status is the normalized outcome of a solve.
type Status int

const (
	// StatusOptimal means the solver proved the returned solution optimal.
	StatusOptimal Status = iota
	// StatusTimeLimit means the time budget expired; the solution holds the
	// best incumbent found, which may still be acceptable to the caller.
	StatusTimeLimit
	// StatusInfeasible means no feasible point exists for the constraint set.
	StatusInfeasible
	// StatusError means the solver failed in a way that is not a statement
	// about the model (crash, unparseable output).
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusTimeLimit:
		return "time_limit_reached"
	case StatusInfeasible:
		return "infeasible"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Solution holds the outcome of one solve: the normalized status, the
// objective value, and the solved value of every variable. A Solution is
// immutable once produced.
type Solution struct {
	status    Status
	objective float64
	values    []float64
}

// NewSolution builds a Solution from explicit values, indexed by variable
// creation order. It exists so extraction logic can be exercised on recorded
// or hand-built solver outcomes.
func NewSolution(status Status, objective float64, values []float64) *Solution {
	return &Solution{status: status, objective: objective, values: append([]float64(nil), values...)}
}

// Status returns the normalized solve status.
func (s *Solution) Status() Status {
	return s.status
}

// Objective returns the objective value at the solution.
func (s *Solution) Objective() float64 {
	return s.objective
}

// HasValues reports whether the solution carries variable values. Optimal
// and time-limit solutions do; infeasible ones do not.
func (s *Solution) HasValues() bool {
	return s.status == StatusOptimal || s.status == StatusTimeLimit
}

// Value returns the solved value of the variable.
func (s *Solution) Value(v Var) float64 {
	return s.values[v.ind]
}

// RoundedValue returns the solved value of the variable, snapped to the
// nearest integer when it is within SolutionEps of one.
func (s *Solution) RoundedValue(v Var) float64 {
	val := s.values[v.ind]
	if r := math.Round(val); math.Abs(val-r) <= SolutionEps {
		return r
	}
	return val
}

// BooleanValue returns the solved value of a binary variable as a bool.
func (s *Solution) BooleanValue(v Var) bool {
	return s.RoundedValue(v) >= 0.5
}

// SolutionValue evaluates the LinearArgument `la` at the solution.
func SolutionValue(s *Solution, la LinearArgument) float64 {
	return la.evaluateSolutionValue(s)
}

// SolveParameters configures one solver invocation. The zero value solves
// with no time limit using the `cbc` binary found on PATH.
type SolveParameters struct {
	// TimeLimit bounds the solve. Zero means no limit; callers solving
	// NP-hard models must set one.
	TimeLimit time.Duration
	// Verbose forwards the solver log to stderr.
	Verbose bool
	// SolverPath overrides the solver binary. Defaults to "cbc".
	SolverPath string
}

func (p SolveParameters) solverPath() string {
	if p.SolverPath != "" {
		return p.SolverPath
	}
	return "cbc"
}

// Solve runs the COIN-OR CBC solver on the model and returns the normalized
// Solution. The model is written to a temporary LP-format file, the solver
// runs as a subprocess bounded by the configured time limit, and the
// solution file is read back. Infeasibility and time-limit expiry are
// reported through the Solution status, not as errors; Solve returns an
// error only when the solver cannot be invoked or its output cannot be
// understood.
func Solve(m *Model, params SolveParameters) (*Solution, error) {
	solver := params.solverPath()
	if _, err := exec.LookPath(solver); err != nil {
		return nil, fmt.Errorf("model %q: %w: %v", m.name, ErrSolverUnavailable, err)
	}

	dir, err := os.MkdirTemp("", "lpmodel-cbc-")
	if err != nil {
		return nil, fmt.Errorf("model %q: creating solver workspace: %v", m.name, err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	f, err := os.Create(lpPath)
	if err != nil {
		return nil, fmt.Errorf("model %q: writing LP file: %v", m.name, err)
	}
	if err := m.writeLP(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("model %q: writing LP file: %v", m.name, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("model %q: writing LP file: %v", m.name, err)
	}

	args := []string{lpPath}
	if params.TimeLimit > 0 {
		secs := int(math.Ceil(params.TimeLimit.Seconds()))
		args = append(args, "sec", strconv.Itoa(secs))
	}
	args = append(args, "branch", "printingOptions", "all", "solution", solPath)

	log.V(1).Infof("model %q: %d vars (%d binary), %d constraints; invoking %s",
		m.name, m.NumVars(), m.NumBinaries(), m.NumConstraints(), solver)
	cmd := exec.Command(solver, args...)
	if params.Verbose {
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("model %q: %w: cbc run failed: %v", m.name, ErrSolverUnavailable, err)
	}

	sf, err := os.Open(solPath)
	if err != nil {
		return nil, fmt.Errorf("model %q: reading solution file: %v", m.name, err)
	}
	defer sf.Close()

	sol, err := m.parseSolution(sf)
	if err != nil {
		return nil, fmt.Errorf("model %q: %v", m.name, err)
	}
	log.V(1).Infof("model %q: status %v, objective %v", m.name, sol.status, sol.objective)
	return sol, nil
}

// wireName is the positional name a variable carries in solver files. It is
// generated for the file exchange only; identity stays in the VarKey and is
// never recovered from the name.
func wireName(ind VarIndex) string {
	return fmt.Sprintf("x%d", ind)
}

func formatCoeff(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

// writeTerms writes "+ c x" / "- c x" term sequences in LP syntax.
func writeTerms(w io.Writer, terms []varCoeff) error {
	for i, t := range terms {
		sign := "+"
		c := t.coeff
		if c < 0 {
			sign = "-"
			c = -c
		}
		sep := " "
		if i == 0 {
			sep = ""
		}
		if _, err := fmt.Fprintf(w, "%s%s %s %s", sep, sign, formatCoeff(c), wireName(t.ind)); err != nil {
			return err
		}
	}
	return nil
}

// writeLP serializes the model in CPLEX LP text format. The objective
// constant offset is not representable in the file; it is added back when
// the solution is parsed.
func (m *Model) writeLP(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ %s\n", m.name)
	fmt.Fprintln(bw, "Minimize")
	fmt.Fprint(bw, "obj: ")
	if len(m.objTerms) == 0 {
		// A constant objective still needs one term for the parser.
		fmt.Fprintf(bw, "0 %s", wireName(0))
	} else if err := writeTerms(bw, m.objTerms); err != nil {
		return err
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Subject To")
	for i, c := range m.constraints {
		if len(c.terms) == 0 {
			// Fully folded constraint: decide it here, the solver cannot.
			if trivialHolds(c) {
				continue
			}
			return fmt.Errorf("constraint %s is trivially infeasible: 0 %v %v", m.constraintName(ConstrIndex(i)), c.sense, c.rhs)
		}
		fmt.Fprintf(bw, "%s: ", m.constraintName(ConstrIndex(i)))
		if err := writeTerms(bw, c.terms); err != nil {
			return err
		}
		fmt.Fprintf(bw, " %s %s\n", c.sense, formatCoeff(c.rhs))
	}
	binaries := false
	for ind, d := range m.domains {
		if d == Binary {
			if !binaries {
				fmt.Fprintln(bw, "Binaries")
				binaries = true
			}
			fmt.Fprintln(bw, wireName(VarIndex(ind)))
		}
	}
	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

func trivialHolds(c constraintData) bool {
	switch c.sense {
	case Equal:
		return math.Abs(c.rhs) <= SolutionEps
	default:
		return c.rhs >= -SolutionEps
	}
}

// parseSolution reads a CBC solution file. The first line carries the
// status and objective ("Optimal - objective value 56.00000000"); the
// remaining lines are "<row> <name> <value> <reduced cost>" per variable,
// prefixed with "**" when the solver flags the row.
func (m *Model) parseSolution(r io.Reader) (*Solution, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading solver output: %v", err)
		}
		return nil, errors.New("empty solver output")
	}
	header := strings.TrimSpace(scanner.Text())
	status, err := normalizeStatus(header)
	if err != nil {
		return nil, err
	}

	sol := &Solution{status: status, values: make([]float64, len(m.keys))}
	if !sol.HasValues() {
		return sol, nil
	}

	names := make(map[string]VarIndex, len(m.keys))
	for i := range m.keys {
		names[wireName(VarIndex(i))] = VarIndex(i)
	}
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "**"))
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		ind, ok := names[fields[1]]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad value for %s in solver output: %v", fields[1], err)
		}
		sol.values[ind] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading solver output: %v", err)
	}

	// Recompute the objective from the values so the constant offset dropped
	// by the LP format is included.
	for _, t := range m.objTerms {
		sol.objective += sol.values[t.ind] * t.coeff
	}
	sol.objective += m.objOffset
	return sol, nil
}

// normalizeStatus maps a CBC status line onto the four-state taxonomy.
func normalizeStatus(header string) (Status, error) {
	lower := strings.ToLower(header)
	switch {
	case strings.HasPrefix(lower, "optimal"):
		return StatusOptimal, nil
	case strings.HasPrefix(lower, "stopped on time"):
		return StatusTimeLimit, nil
	case strings.Contains(lower, "infeasible"):
		return StatusInfeasible, nil
	default:
		return StatusError, fmt.Errorf("unrecognized solver status %q", header)
	}
}
