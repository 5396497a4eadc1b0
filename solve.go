package mtdlb

import (
	"fmt"
	"time"

	"git.solver4all.com/azaryc2s/mtdlb/logging"
	"git.solver4all.com/azaryc2s/mtdlb/milp"
)

// Solve selects the flagged models, builds the formulation, hands it to the
// solver and extracts the schedule. Infeasible, unbounded and failed solves
// come back as errors wrapping the milp sentinels and carry no schedule.
func Solve(inst *MTDLBInstance, flags []int, solver milp.Solver, cfg Config) (MTDLBSolution, MTDLBModel, error) {
	selected, err := inst.SelectModels(flags)
	if err != nil {
		return MTDLBSolution{}, MTDLBModel{}, err
	}
	model, err := CreateMTDLBModel(inst, selected, cfg)
	if err != nil {
		return MTDLBSolution{}, MTDLBModel{}, err
	}
	sol, err := SolveModel(&model, solver)
	return sol, model, err
}

// SolveModel runs an already built formulation.
func SolveModel(model *MTDLBModel, solver milp.Solver) (MTDLBSolution, error) {
	name := "unknown"
	if n, ok := solver.(interface{ Name() string }); ok {
		name = n.Name()
	}
	logging.Log(2, "Solving %s with %s: %d variables, %d constraints", model.Problem.Name, name, model.Problem.NumCols(), model.Problem.NumRows())
	startTime := time.Now()
	res, err := solver.Solve(model.Problem)
	elapsed := time.Since(startTime)
	if err != nil {
		return MTDLBSolution{Solver: name, Time: elapsed.String(), Seconds: elapsed.Seconds()}, fmt.Errorf("solver %s: %w", name, err)
	}
	logging.Log(2, "\n---OPTIMIZATION DONE---\n")
	sol, err := model.ExtractSolution(res)
	sol.Solver = name
	sol.Time = elapsed.String()
	sol.Seconds = elapsed.Seconds()
	if err != nil {
		return sol, err
	}
	stations, index, procTime, _ := model.ObjectiveTiers(res.X)
	logging.Log(2, "Objective %.9g: stations %g, station index sum %g, processing time %g", res.Obj, stations, index, procTime)
	return sol, nil
}
