// Package milp holds a solver-agnostic mixed-integer linear program in the
// flat row layout the Gurobi C API uses (index and value slices per row), the
// Solver interface the concrete engines implement, and the status taxonomy
// they report through.
package milp

import (
	"errors"
	"fmt"
	"math"
)

// Column types. The values match the Gurobi C API characters.
const (
	CONTINUOUS int8 = 'C'
	BINARY     int8 = 'B'
	INTEGER    int8 = 'I'
)

// Row senses. The values match the Gurobi C API characters.
const (
	LESS_EQUAL    int8 = '<'
	GREATER_EQUAL int8 = '>'
	EQUAL         int8 = '='
)

var (
	// ErrInfeasible is returned when the solver proves no feasible assignment exists.
	ErrInfeasible = errors.New("model is infeasible")

	// ErrUnbounded is returned when the objective can decrease without limit.
	ErrUnbounded = errors.New("model is unbounded")

	// ErrNumerical covers solver-internal failures such as ill-conditioned rows.
	ErrNumerical = errors.New("numerical failure in solver")

	// ErrNoSolution is returned when a limit was hit before any incumbent was found.
	ErrNoSolution = errors.New("solver stopped without a solution")

	// ErrInvalidProblem indicates inconsistent column or row data.
	ErrInvalidProblem = errors.New("invalid problem")
)

type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
	StatusUnbounded
	StatusInfOrUnbd
	StatusTimeLimit
	StatusNodeLimit
	StatusNumeric
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusUnbounded:
		return "UNBOUNDED"
	case StatusInfOrUnbd:
		return "INF_OR_UNBD"
	case StatusTimeLimit:
		return "TIME_LIMIT"
	case StatusNodeLimit:
		return "NODE_LIMIT"
	case StatusNumeric:
		return "NUMERIC"
	}
	return "UNKNOWN"
}

// Constr is one row: sum(Val[k] * x[Ind[k]]) Sense Rhs.
type Constr struct {
	Ind   []int32
	Val   []float64
	Sense int8
	Rhs   float64
	Name  string
}

// Problem is always a minimisation.
type Problem struct {
	Name     string
	ColNames []string
	ColTypes []int8
	Obj      []float64
	LB       []float64
	UB       []float64
	Constrs  []Constr
}

// NewProblem allocates n continuous columns with bounds [0, +Inf) and zero cost.
func NewProblem(name string, n int) *Problem {
	p := &Problem{
		Name:     name,
		ColNames: make([]string, n),
		ColTypes: make([]int8, n),
		Obj:      make([]float64, n),
		LB:       make([]float64, n),
		UB:       make([]float64, n),
	}
	for i := 0; i < n; i++ {
		p.ColTypes[i] = CONTINUOUS
		p.UB[i] = math.Inf(1)
	}
	return p
}

func (p *Problem) NumCols() int {
	return len(p.Obj)
}

func (p *Problem) NumRows() int {
	return len(p.Constrs)
}

// SetBinary marks column i binary and clamps its bounds into [0, 1].
func (p *Problem) SetBinary(i int) {
	p.ColTypes[i] = BINARY
	p.LB[i] = math.Max(p.LB[i], 0)
	p.UB[i] = math.Min(p.UB[i], 1)
}

func (p *Problem) AddConstr(ind []int32, val []float64, sense int8, rhs float64, name string) {
	p.Constrs = append(p.Constrs, Constr{Ind: ind, Val: val, Sense: sense, Rhs: rhs, Name: name})
}

// IsInteger reports whether column i must take an integral value.
func (p *Problem) IsInteger(i int) bool {
	return p.ColTypes[i] == BINARY || p.ColTypes[i] == INTEGER
}

// ObjValue evaluates the objective at x.
func (p *Problem) ObjValue(x []float64) float64 {
	v := 0.0
	for i, c := range p.Obj {
		v += c * x[i]
	}
	return v
}

// Validate checks slice lengths, bounds and row indices.
func (p *Problem) Validate() error {
	n := len(p.Obj)
	if len(p.ColNames) != n || len(p.ColTypes) != n || len(p.LB) != n || len(p.UB) != n {
		return fmt.Errorf("%w: column slices disagree on length %d", ErrInvalidProblem, n)
	}
	for i := 0; i < n; i++ {
		if math.IsInf(p.LB[i], -1) || math.IsNaN(p.LB[i]) {
			return fmt.Errorf("%w: column %s needs a finite lower bound", ErrInvalidProblem, p.ColNames[i])
		}
	}
	for _, c := range p.Constrs {
		if len(c.Ind) != len(c.Val) {
			return fmt.Errorf("%w: row %s has %d indices and %d values", ErrInvalidProblem, c.Name, len(c.Ind), len(c.Val))
		}
		switch c.Sense {
		case LESS_EQUAL, GREATER_EQUAL, EQUAL:
		default:
			return fmt.Errorf("%w: row %s has unknown sense %q", ErrInvalidProblem, c.Name, c.Sense)
		}
		for _, j := range c.Ind {
			if j < 0 || int(j) >= n {
				return fmt.Errorf("%w: row %s references column %d of %d", ErrInvalidProblem, c.Name, j, n)
			}
		}
	}
	return nil
}

// Violation returns the largest row or bound violation of x.
func (p *Problem) Violation(x []float64) float64 {
	worst := 0.0
	for i := range p.Obj {
		worst = math.Max(worst, p.LB[i]-x[i])
		worst = math.Max(worst, x[i]-p.UB[i])
	}
	for _, c := range p.Constrs {
		lhs := 0.0
		for k, j := range c.Ind {
			lhs += c.Val[k] * x[j]
		}
		switch c.Sense {
		case LESS_EQUAL:
			worst = math.Max(worst, lhs-c.Rhs)
		case GREATER_EQUAL:
			worst = math.Max(worst, c.Rhs-lhs)
		case EQUAL:
			worst = math.Max(worst, math.Abs(lhs-c.Rhs))
		}
	}
	return worst
}

type Result struct {
	Status Status
	Obj    float64
	Bound  float64
	X      []float64
	Nodes  int
}

// HasSolution reports whether X holds a feasible assignment.
func (r Result) HasSolution() bool {
	return r.X != nil && (r.Status == StatusOptimal || r.Status == StatusFeasible ||
		r.Status == StatusTimeLimit || r.Status == StatusNodeLimit)
}

// Solver is implemented by every engine the model can be handed to.
type Solver interface {
	Solve(p *Problem) (Result, error)
}

// StatusError maps a result without a usable solution to its sentinel error.
func StatusError(r Result) error {
	if r.HasSolution() {
		return nil
	}
	switch r.Status {
	case StatusInfeasible, StatusInfOrUnbd:
		return fmt.Errorf("%w: status %s", ErrInfeasible, r.Status)
	case StatusUnbounded:
		return fmt.Errorf("%w: status %s", ErrUnbounded, r.Status)
	case StatusTimeLimit, StatusNodeLimit:
		return fmt.Errorf("%w: status %s", ErrNoSolution, r.Status)
	}
	return fmt.Errorf("%w: status %s", ErrNumerical, r.Status)
}
