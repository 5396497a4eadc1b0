// Package grb hands a milp.Problem to Gurobi through the gorobi C API binding.
package grb

import (
	"fmt"

	"git.solver4all.com/azaryc2s/gorobi/gurobi"
	"git.solver4all.com/azaryc2s/mtdlb/logging"
	"git.solver4all.com/azaryc2s/mtdlb/milp"
)

// Gurobi status codes the binding does not name.
const (
	statusInfeasible = 3
	statusUnbounded  = 5
	statusNodeLimit  = 8
	statusNumeric    = 12
	statusSubopt     = 13
)

type Options struct {
	// LogFile is passed to the environment. Gurobi appends to it.
	LogFile string
	// TimeLimit in seconds, no limit when <= 0.
	TimeLimit float64
	// Threads, Gurobi's default when <= 0.
	Threads int
	// LPFile, when set, receives Gurobi's own export of the loaded model.
	LPFile string
	Quiet  bool
}

type Solver struct {
	opts Options
}

func New(opts Options) *Solver {
	if opts.LogFile == "" {
		opts.LogFile = "mtdlb_gurobi.log"
	}
	return &Solver{opts: opts}
}

func (s *Solver) Name() string {
	return "GUROBI"
}

func (s *Solver) Solve(p *milp.Problem) (milp.Result, error) {
	if err := p.Validate(); err != nil {
		return milp.Result{}, err
	}
	env, err := gurobi.LoadEnv(s.opts.LogFile)
	if err != nil {
		return milp.Result{}, fmt.Errorf("loading gurobi environment: %w", err)
	}
	defer env.Free()
	if s.opts.Quiet {
		env.SetIntParam("LogToConsole", int32(0))
	}
	if s.opts.Threads > 0 {
		if err = env.SetIntParam(gurobi.INT_PAR_THREADS, int32(s.opts.Threads)); err != nil {
			return milp.Result{}, err
		}
	}
	if s.opts.TimeLimit > 0 {
		if err = env.SetDblParam("TimeLimit", s.opts.TimeLimit); err != nil {
			return milp.Result{}, err
		}
	}
	threads, _ := env.GetIntParam(gurobi.INT_PAR_THREADS)
	logging.Log(3, "Gurobi environment loaded with Threads=%d, TimeLimit=%g", threads, s.opts.TimeLimit)

	n := p.NumCols()
	model, err := env.NewModel(p.Name, int32(n), p.Obj, p.LB, p.UB, p.ColTypes, p.ColNames)
	if err != nil {
		return milp.Result{}, err
	}
	defer model.Free()
	if err = model.SetIntAttr(gurobi.INT_ATTR_MODELSENSE, gurobi.MINIMIZE); err != nil {
		return milp.Result{}, err
	}
	for _, c := range p.Constrs {
		if err = model.AddConstr(c.Ind, c.Val, c.Sense, c.Rhs, c.Name); err != nil {
			return milp.Result{}, fmt.Errorf("adding row %s: %w", c.Name, err)
		}
	}
	if s.opts.LPFile != "" {
		if err = model.Write(s.opts.LPFile); err != nil {
			return milp.Result{}, err
		}
	}

	if err = model.Optimize(); err != nil {
		return milp.Result{}, err
	}
	return capture(model, n)
}

func capture(model *gurobi.Model, n int) (milp.Result, error) {
	optimstatus, err := model.GetIntAttr(gurobi.INT_ATTR_STATUS)
	if err != nil {
		return milp.Result{}, fmt.Errorf("couldn't retrieve optimization status: %w", err)
	}
	res := milp.Result{Status: mapStatus(optimstatus)}
	solcount, err := model.GetIntAttr(gurobi.INT_ATTR_SOLCOUNT)
	if err != nil {
		return res, err
	}
	if solcount == 0 {
		logging.Log(2, "Gurobi stopped with status %s and no solution", res.Status)
		return res, nil
	}
	if res.Status == milp.StatusUnknown {
		res.Status = milp.StatusFeasible
	}
	if res.Obj, err = model.GetDblAttr(gurobi.DBL_ATTR_OBJVAL); err != nil {
		return res, fmt.Errorf("couldn't retrieve the obj-value: %w", err)
	}
	if res.Bound, err = model.GetDblAttr(gurobi.DBL_ATTR_OBJBOUND); err != nil {
		logging.Log(1, "Couldn't retrieve the lower-bound-value: %s", err.Error())
		res.Bound = res.Obj
	}
	if res.X, err = model.GetDblAttrArray(gurobi.DBL_ATTR_X, 0, int32(n)); err != nil {
		return res, err
	}
	return res, nil
}

func mapStatus(optimstatus int32) milp.Status {
	switch optimstatus {
	case gurobi.OPTIMAL:
		return milp.StatusOptimal
	case gurobi.INF_OR_UNBD:
		return milp.StatusInfOrUnbd
	case gurobi.TIME_LIMIT:
		return milp.StatusTimeLimit
	case statusInfeasible:
		return milp.StatusInfeasible
	case statusUnbounded:
		return milp.StatusUnbounded
	case statusNodeLimit:
		return milp.StatusNodeLimit
	case statusNumeric:
		return milp.StatusNumeric
	case statusSubopt:
		return milp.StatusFeasible
	}
	return milp.StatusUnknown
}
