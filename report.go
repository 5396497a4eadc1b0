package mtdlb

import (
	"fmt"
	"math"
	"strings"

	"git.solver4all.com/azaryc2s/mtdlb/milp"
	"github.com/samber/lo"
)

const timeTol = 1e-6

// cleanValue snaps solver noise such as 6.9999999997 back to 7.
func cleanValue(v float64) float64 {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		return 0
	}
	return r
}

// ExtractSolution maps the solved columns back to the station summary and the
// per-model task schedule. A result without a solution is refused so that
// infeasible or failed runs never read variable values.
func (model *MTDLBModel) ExtractSolution(res milp.Result) (MTDLBSolution, error) {
	if err := milp.StatusError(res); err != nil {
		return MTDLBSolution{Status: res.Status.String()}, err
	}
	x := res.X
	if len(x) != model.VarCount {
		return MTDLBSolution{}, fmt.Errorf("%w: solution has %d values for %d variables", milp.ErrNumerical, len(x), model.VarCount)
	}
	sol := MTDLBSolution{
		Obj:      res.Obj,
		LBound:   res.Bound,
		Optimal:  res.Status == milp.StatusOptimal,
		Status:   res.Status.String(),
		Selected: lo.Map(model.Models, func(pm *ProductModel, _ int) int { return pm.ID }),
	}

	if math.IsInf(sol.LBound, 0) || math.IsNaN(sol.LBound) {
		// JSON has no infinities
		sol.LBound = 0
	}

	var sumF, sumG, sumU float64
	for j := 1; j <= model.Stations; j++ {
		sumF += x[model.FIndex(j)]
		sumG += x[model.GIndex(j)]
		var sides []int
		for s := 1; s <= SIDE_COUNT; s++ {
			sumU += x[model.UIndex(j, s)]
			if x[model.UIndex(j, s)] > 0.5 {
				sides = append(sides, s)
			}
		}
		if len(sides) > 0 {
			sol.Stations = append(sol.Stations, StationOpening{Station: j, Sides: sides, BothSides: x[model.FIndex(j)] > 0.5})
		}
	}
	sol.BothSides = int(math.Round(sumF))
	sol.OneSide = int(math.Round(sumG))
	sol.OpenedSides = int(math.Round(sumU))

	for _, pm := range model.Models {
		sched := ModelSchedule{Model: pm.ID, Name: pm.Name}
		for i := 1; i <= pm.NormalCount; i++ {
			if x[model.ZIndex(pm.ID, i)] <= 0.5 {
				continue
			}
			rec := TaskRecord{Model: pm.ID, Task: i, ProcessingTime: pm.Times[i]}
			for j := 1; j <= model.Stations; j++ {
				for s := 1; s <= SIDE_COUNT; s++ {
					if x[model.XIndex(pm.ID, i, j, s)] > 0.5 {
						rec.Assigned = append(rec.Assigned, StationSide{Station: j, Side: s})
					}
				}
			}
			rec.Finish = cleanValue(x[model.TFIndex(pm.ID, i)])
			rec.Start = cleanValue(rec.Finish - rec.ProcessingTime)
			sched.Tasks = append(sched.Tasks, rec)
		}
		sol.Schedules = append(sol.Schedules, sched)
	}
	return sol, nil
}

// CheckSolutionValidity re-checks a schedule against the instance data: flow
// conservation, single assignment on a feasible side, cycle time, precedence
// and overlap, and the station opening counts.
func CheckSolutionValidity(inst *MTDLBInstance, sol *MTDLBSolution) (bool, string) {
	var problems []string
	fail := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	models := make(map[int]*ProductModel, len(inst.Models))
	for i := range inst.Models {
		models[inst.Models[i].ID] = &inst.Models[i]
	}
	usedSides := make(map[StationSide]bool)

	for _, sched := range sol.Schedules {
		pm, ok := models[sched.Model]
		if !ok {
			fail("schedule references unknown model %d", sched.Model)
			continue
		}
		byTask := make(map[int]TaskRecord, len(sched.Tasks))
		for _, rec := range sched.Tasks {
			byTask[rec.Task] = rec
			if len(rec.Assigned) != 1 {
				fail("task (%d,%d) is assigned to %d station sides", rec.Model, rec.Task, len(rec.Assigned))
				continue
			}
			a := rec.Assigned[0]
			usedSides[a] = true
			if !pm.Feasible(rec.Task, a.Side) {
				fail("task (%d,%d) placed on infeasible side %d", rec.Model, rec.Task, a.Side)
			}
			if rec.Finish > inst.CycleTime+timeTol || rec.Finish < rec.ProcessingTime-timeTol {
				fail("task (%d,%d) finishes at %g outside [%g,%g]", rec.Model, rec.Task, rec.Finish, rec.ProcessingTime, inst.CycleTime)
			}
		}

		count := func(nodes []int) int {
			return lo.CountBy(nodes, func(i int) bool { _, ok := byTask[i]; return ok })
		}
		if n := count(pm.Suc[0]); n != 1 {
			fail("model %d selects %d successors of the source", pm.ID, n)
		}
		for k := 1; k < pm.ArtificialCount; k++ {
			if !pm.Junction(k) {
				continue
			}
			if count(pm.Suc[k]) != count(pm.Pre[k]) {
				fail("model %d junction %d: %d successors selected for %d predecessors", pm.ID, k, count(pm.Suc[k]), count(pm.Pre[k]))
			}
			for _, h := range pm.Pre[k] {
				for _, i := range pm.Suc[k] {
					rh, okH := byTask[h]
					ri, okI := byTask[i]
					if !okH || !okI || len(rh.Assigned) != 1 || len(ri.Assigned) != 1 {
						continue
					}
					if rh.Assigned[0].Station > ri.Assigned[0].Station {
						fail("model %d: task %d at station %d precedes task %d at station %d", pm.ID, h, rh.Assigned[0].Station, i, ri.Assigned[0].Station)
					} else if rh.Assigned[0].Station == ri.Assigned[0].Station && ri.Start < rh.Finish-timeTol {
						fail("model %d: task %d starts at %g before predecessor %d finishes at %g", pm.ID, i, ri.Start, h, rh.Finish)
					}
				}
			}
		}

		for a := 0; a < len(sched.Tasks); a++ {
			for b := a + 1; b < len(sched.Tasks); b++ {
				ra, rb := sched.Tasks[a], sched.Tasks[b]
				if len(ra.Assigned) != 1 || len(rb.Assigned) != 1 || ra.Assigned[0] != rb.Assigned[0] {
					continue
				}
				if ra.Start < rb.Finish-timeTol && rb.Start < ra.Finish-timeTol {
					fail("model %d: tasks %d [%g,%g] and %d [%g,%g] overlap at %v", pm.ID, ra.Task, ra.Start, ra.Finish, rb.Task, rb.Start, rb.Finish, ra.Assigned[0])
				}
			}
		}
	}

	if 2*sol.BothSides+sol.OneSide != sol.OpenedSides {
		fail("opened sides %d differ from 2*%d + %d", sol.OpenedSides, sol.BothSides, sol.OneSide)
	}
	opened := make(map[StationSide]bool)
	for _, st := range sol.Stations {
		if st.BothSides != (len(st.Sides) == SIDE_COUNT) {
			fail("station %d opened on %v but marked both-sides=%t", st.Station, st.Sides, st.BothSides)
		}
		for _, s := range st.Sides {
			opened[StationSide{st.Station, s}] = true
		}
	}
	for side := range usedSides {
		if !opened[side] {
			fail("station %d side %d is used but not opened", side.Station, side.Side)
		}
	}

	if len(problems) > 0 {
		return false, strings.Join(problems, "; ")
	}
	return true, ""
}
