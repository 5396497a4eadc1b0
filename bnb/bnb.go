// Package bnb is a pure-Go LP-based branch-and-bound solver for milp.Problem.
//
// LP relaxations are solved with gonum's simplex in standard form. Every
// bound and row gets its own slack column, which keeps the constraint matrix
// at full row rank as gonum requires. The tableau is dense, so the solver is
// meant for small instances and for tests that must run without a native
// MILP engine.
package bnb

import (
	"errors"
	"fmt"
	"math"
	"time"

	"git.solver4all.com/azaryc2s/mtdlb/logging"
	"git.solver4all.com/azaryc2s/mtdlb/milp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Options controls the search. Zero values mean no limit.
type Options struct {
	TimeLimit time.Duration
	NodeLimit int
	// IntTol is the distance from an integer below which a value counts as integral.
	IntTol float64
	// GapTol prunes nodes whose relaxation is not better than the incumbent by more than this.
	GapTol float64
	// LPTol is handed to the simplex.
	LPTol float64
}

type Option func(*Options)

func WithTimeLimit(d time.Duration) Option {
	return func(o *Options) { o.TimeLimit = d }
}

func WithNodeLimit(n int) Option {
	return func(o *Options) { o.NodeLimit = n }
}

func WithIntTol(tol float64) Option {
	return func(o *Options) { o.IntTol = tol }
}

func WithGapTol(tol float64) Option {
	return func(o *Options) { o.GapTol = tol }
}

type Solver struct {
	opts Options
}

// New returns a solver with IntTol 1e-6, GapTol 1e-12 and LPTol 1e-10 unless overridden.
func New(opts ...Option) *Solver {
	o := Options{IntTol: 1e-6, GapTol: 1e-12, LPTol: 1e-10}
	for _, opt := range opts {
		opt(&o)
	}
	return &Solver{opts: o}
}

func (s *Solver) Name() string {
	return "BNB"
}

type node struct {
	lb, ub []float64
	depth  int
}

type relaxation struct {
	status milp.Status
	obj    float64
	x      []float64
}

func (s *Solver) Solve(p *milp.Problem) (milp.Result, error) {
	if err := p.Validate(); err != nil {
		return milp.Result{}, err
	}
	start := time.Now()
	n := p.NumCols()
	root := node{lb: append([]float64(nil), p.LB...), ub: append([]float64(nil), p.UB...)}
	for i := 0; i < n; i++ {
		if p.IsInteger(i) {
			root.lb[i] = math.Ceil(root.lb[i] - s.opts.IntTol)
			root.ub[i] = math.Floor(root.ub[i] + s.opts.IntTol)
		}
	}

	var (
		incumbent []float64
		best      = math.Inf(1)
		nodes     int
		stopped   milp.Status
	)
	stack := []node{root}
	for len(stack) > 0 {
		if s.opts.TimeLimit > 0 && time.Since(start) > s.opts.TimeLimit {
			stopped = milp.StatusTimeLimit
			break
		}
		if s.opts.NodeLimit > 0 && nodes >= s.opts.NodeLimit {
			stopped = milp.StatusNodeLimit
			break
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		rel, err := s.relax(p, cur.lb, cur.ub)
		if err != nil {
			return milp.Result{Status: milp.StatusNumeric, Nodes: nodes}, err
		}
		switch rel.status {
		case milp.StatusInfeasible:
			logging.Log(4, "bnb node %d (depth %d) infeasible", nodes, cur.depth)
			continue
		case milp.StatusUnbounded:
			if nodes == 1 {
				return milp.Result{Status: milp.StatusUnbounded, Nodes: nodes}, nil
			}
			continue
		}
		if rel.obj >= best-s.opts.GapTol {
			continue
		}

		j := s.branchColumn(p, rel.x)
		if j < 0 {
			x, obj := s.polish(p, rel.x)
			if obj < best-s.opts.GapTol {
				logging.Log(3, "bnb found incumbent %.9g at node %d", obj, nodes)
				best = obj
				incumbent = x
			}
			continue
		}

		f := math.Floor(rel.x[j])
		down := node{lb: cur.lb, ub: append([]float64(nil), cur.ub...), depth: cur.depth + 1}
		down.ub[j] = f
		up := node{lb: append([]float64(nil), cur.lb...), ub: cur.ub, depth: cur.depth + 1}
		up.lb[j] = f + 1
		stack = append(stack, down, up)
	}

	res := milp.Result{Nodes: nodes, X: incumbent}
	switch {
	case stopped != milp.StatusUnknown:
		res.Status = stopped
		res.Obj = best
		res.Bound = math.Inf(-1)
	case incumbent == nil:
		res.Status = milp.StatusInfeasible
	default:
		res.Status = milp.StatusOptimal
		res.Obj = best
		res.Bound = best
	}
	logging.Log(2, "bnb finished with status %s after %d nodes in %s", res.Status, nodes, time.Since(start))
	return res, nil
}

// branchColumn returns the most fractional integer column, or -1 if x is integral.
func (s *Solver) branchColumn(p *milp.Problem, x []float64) int {
	col, worst := -1, s.opts.IntTol
	for i := range x {
		if !p.IsInteger(i) {
			continue
		}
		frac := x[i] - math.Floor(x[i])
		d := math.Min(frac, 1-frac)
		if d > worst {
			col, worst = i, d
		}
	}
	return col
}

// polish rounds the integer columns and re-solves the continuous part with them fixed.
func (s *Solver) polish(p *milp.Problem, x []float64) ([]float64, float64) {
	lb := append([]float64(nil), p.LB...)
	ub := append([]float64(nil), p.UB...)
	for i := range x {
		if p.IsInteger(i) {
			v := math.Round(x[i])
			lb[i], ub[i] = v, v
		}
	}
	rel, err := s.relax(p, lb, ub)
	if err != nil || rel.status != milp.StatusOptimal {
		return x, p.ObjValue(x)
	}
	return rel.x, rel.obj
}

// relax solves the LP relaxation of p under the given column bounds.
func (s *Solver) relax(p *milp.Problem, lb, ub []float64) (relaxation, error) {
	n := p.NumCols()
	free := make([]int, n)
	var cols []int
	for i := 0; i < n; i++ {
		if ub[i] < lb[i]-s.opts.IntTol {
			return relaxation{status: milp.StatusInfeasible}, nil
		}
		if ub[i]-lb[i] > 1e-12 {
			free[i] = len(cols)
			cols = append(cols, i)
		} else {
			free[i] = -1
		}
	}
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		if free[i] < 0 {
			x[i] = lb[i]
		}
	}

	type row struct {
		coef  map[int]float64
		sense int8
		rhs   float64
	}
	var rows []row
	used := make([]bool, len(cols))
	for _, c := range p.Constrs {
		r := row{coef: make(map[int]float64), sense: c.Sense, rhs: c.Rhs}
		for k, j := range c.Ind {
			r.rhs -= c.Val[k] * lb[j]
			if f := free[j]; f >= 0 && c.Val[k] != 0 {
				r.coef[f] += c.Val[k]
			}
		}
		for f, v := range r.coef {
			if v == 0 {
				delete(r.coef, f)
			} else {
				used[f] = true
			}
		}
		if len(r.coef) == 0 {
			if !constantHolds(r.sense, r.rhs, 1e-9) {
				return relaxation{status: milp.StatusInfeasible}, nil
			}
			continue
		}
		if r.sense == milp.EQUAL {
			rows = append(rows, row{coef: r.coef, sense: milp.LESS_EQUAL, rhs: r.rhs})
			rows = append(rows, row{coef: r.coef, sense: milp.GREATER_EQUAL, rhs: r.rhs})
			continue
		}
		rows = append(rows, r)
	}
	for f, i := range cols {
		if !math.IsInf(ub[i], 1) {
			rows = append(rows, row{coef: map[int]float64{f: 1}, sense: milp.LESS_EQUAL, rhs: ub[i] - lb[i]})
			used[f] = true
		}
	}

	// Columns that appear nowhere sit at their lower bound unless they improve the objective forever.
	for f, i := range cols {
		if !used[f] && p.Obj[i] < 0 {
			return relaxation{status: milp.StatusUnbounded}, nil
		}
	}

	if len(rows) > 0 {
		m := len(rows)
		width := len(cols) + m
		a := mat.NewDense(m, width, nil)
		b := make([]float64, m)
		c := make([]float64, width)
		for f, i := range cols {
			c[f] = p.Obj[i]
		}
		for r, rw := range rows {
			sign := 1.0
			if rw.rhs < 0 {
				sign = -1
			}
			for f, v := range rw.coef {
				a.Set(r, f, sign*v)
			}
			slack := 1.0
			if rw.sense == milp.GREATER_EQUAL {
				slack = -1
			}
			a.Set(r, len(cols)+r, sign*slack)
			b[r] = sign * rw.rhs
		}
		// gonum rejects all-zero columns.
		a, c = dropUnused(a, c, used)
		_, y, err := lp.Simplex(c, a, b, s.opts.LPTol, nil)
		if err != nil {
			switch {
			case errors.Is(err, lp.ErrInfeasible):
				return relaxation{status: milp.StatusInfeasible}, nil
			case errors.Is(err, lp.ErrUnbounded):
				return relaxation{status: milp.StatusUnbounded}, nil
			}
			return relaxation{}, fmt.Errorf("%w: %v", milp.ErrNumerical, err)
		}
		k := 0
		for f, i := range cols {
			if !used[f] {
				x[i] = lb[i]
				continue
			}
			x[i] = lb[i] + y[k]
			k++
		}
	} else {
		for _, i := range cols {
			x[i] = lb[i]
		}
	}
	return relaxation{status: milp.StatusOptimal, obj: p.ObjValue(x), x: x}, nil
}

// dropUnused removes structural columns flagged unused; slack columns are kept.
func dropUnused(a *mat.Dense, c []float64, used []bool) (*mat.Dense, []float64) {
	all := true
	for _, u := range used {
		all = all && u
	}
	if all {
		return a, c
	}
	m, width := a.Dims()
	var keep []int
	for j := 0; j < width; j++ {
		if j >= len(used) || used[j] {
			keep = append(keep, j)
		}
	}
	na := mat.NewDense(m, len(keep), nil)
	nc := make([]float64, len(keep))
	for k, j := range keep {
		nc[k] = c[j]
		for r := 0; r < m; r++ {
			na.Set(r, k, a.At(r, j))
		}
	}
	return na, nc
}

func constantHolds(sense int8, rhs, tol float64) bool {
	switch sense {
	case milp.LESS_EQUAL:
		return 0 <= rhs+tol
	case milp.GREATER_EQUAL:
		return 0 >= rhs-tol
	}
	return math.Abs(rhs) <= tol
}
