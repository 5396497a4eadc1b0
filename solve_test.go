package mtdlb

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"reflect"
	"testing"

	"git.solver4all.com/azaryc2s/mtdlb/bnb"
	"git.solver4all.com/azaryc2s/mtdlb/milp"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func solveValid(t *testing.T, inst *MTDLBInstance, flags []int, cfg Config) MTDLBSolution {
	t.Helper()
	sol, _, err := Solve(inst, flags, bnb.New(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !sol.Optimal {
		t.Fatalf("status = %s, want OPTIMAL", sol.Status)
	}
	if ok, msg := CheckSolutionValidity(inst, &sol); !ok {
		t.Fatalf("invalid solution: %s", msg)
	}
	return sol
}

func TestSolveTwoTaskChain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LeftShift = true
	sol := solveValid(t, line(10, 1, chainModel(1, 3, 4)), []int{1}, cfg)

	if sol.BothSides != 0 || sol.OneSide != 1 || sol.OpenedSides != 1 {
		t.Errorf("stations = (%d both, %d one, %d sides), want (0, 1, 1)", sol.BothSides, sol.OneSide, sol.OpenedSides)
	}
	if sol.Solver != "BNB" {
		t.Errorf("solver = %s, want BNB", sol.Solver)
	}
	tasks := sol.Schedules[0].Tasks
	if len(tasks) != 2 {
		t.Fatalf("tasks = %v, want 2 records", tasks)
	}
	wantFinish := []float64{3, 7}
	for k, rec := range tasks {
		if len(rec.Assigned) != 1 || rec.Assigned[0] != (StationSide{1, SIDE_LEFT}) {
			t.Errorf("task %d assigned to %v, want [(1,1)]", rec.Task, rec.Assigned)
		}
		if !near(rec.Finish, wantFinish[k]) || !near(rec.Start, wantFinish[k]-rec.ProcessingTime) {
			t.Errorf("task %d runs [%g,%g], want finish %g", rec.Task, rec.Start, rec.Finish, wantFinish[k])
		}
	}
}

func TestSolveInfeasibleCycleTime(t *testing.T) {
	sol, _, err := Solve(line(2, 1, chainModel(1, 3)), []int{1}, bnb.New(), DefaultConfig())
	if !errors.Is(err, milp.ErrInfeasible) {
		t.Fatalf("err = %v, want ErrInfeasible", err)
	}
	if sol.Schedules != nil || sol.OpenedSides != 0 {
		t.Errorf("infeasible run produced a schedule: %+v", sol)
	}
}

func TestSolveOrJunctionPicksShorterTask(t *testing.T) {
	sol := solveValid(t, line(10, 1, orChoiceModel(1)), []int{1}, DefaultConfig())
	tasks := sol.Schedules[0].Tasks
	if len(tasks) != 1 || tasks[0].Task != 2 {
		t.Fatalf("tasks = %v, want only task 2", tasks)
	}
	if sol.OneSide != 1 || len(sol.Stations) != 1 || sol.Stations[0].Station != 1 {
		t.Errorf("stations = %v, want one side of station 1", sol.Stations)
	}
}

func TestSolveAndSplitDoesNotOverlap(t *testing.T) {
	sol := solveValid(t, line(10, 1, andSplitModel(1)), []int{1}, DefaultConfig())
	tasks := sol.Schedules[0].Tasks
	if len(tasks) != 3 {
		t.Fatalf("tasks = %v, want all three", tasks)
	}
	for a := 0; a < len(tasks); a++ {
		for b := a + 1; b < len(tasks); b++ {
			if tasks[a].Start < tasks[b].Finish-1e-6 && tasks[b].Start < tasks[a].Finish-1e-6 {
				t.Errorf("tasks %d and %d overlap", tasks[a].Task, tasks[b].Task)
			}
		}
	}
}

func TestSolveTwoSidedStation(t *testing.T) {
	pm := chainModel(1, 2, 2, 3)
	pm.Theta[2] = []int{SIDE_RIGHT}
	pm.Theta[3] = []int{SIDE_LEFT, SIDE_RIGHT}
	sol := solveValid(t, line(10, 2, pm), []int{1}, DefaultConfig())

	if sol.BothSides != 1 || sol.OneSide != 0 || sol.OpenedSides != 2 {
		t.Errorf("stations = (%d both, %d one, %d sides), want (1, 0, 2)", sol.BothSides, sol.OneSide, sol.OpenedSides)
	}
	if len(sol.Stations) != 1 || !sol.Stations[0].BothSides {
		t.Errorf("openings = %v, want station 1 from both sides", sol.Stations)
	}
}

func TestSolveLexicographicOrderAcrossEpsilon(t *testing.T) {
	for _, eps := range []float64{0.001, 0.01} {
		cfg := DefaultConfig()
		cfg.Epsilon = eps
		inst := line(8, 2, chainModel(1, 5, 4))
		sol, model, err := Solve(inst, []int{1}, bnb.New(), cfg)
		if err != nil {
			t.Fatalf("eps %g: %v", eps, err)
		}
		if sol.OneSide != 2 || sol.BothSides != 0 {
			t.Errorf("eps %g: stations = (%d both, %d one), want (0, 2)", eps, sol.BothSides, sol.OneSide)
		}
		x := make([]float64, model.VarCount)
		for _, st := range sol.Stations {
			for _, s := range st.Sides {
				x[model.UIndex(st.Station, s)] = 1
			}
		}
		if _, index, _, _ := model.ObjectiveTiers(x); index != 3 {
			t.Errorf("eps %g: station index sum = %g, want 3", eps, index)
		}
	}
}

func TestSolveCatalogFromFile(t *testing.T) {
	data, err := os.ReadFile("testdata/catalog.json")
	if err != nil {
		t.Fatal(err)
	}
	var inst MTDLBInstance
	if err = json.Unmarshal(data, &inst); err != nil {
		t.Fatal(err)
	}
	if err = inst.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(inst.Models) != 4 || inst.Models[3].CycleTime == nil {
		t.Fatalf("catalog decoded to %d models", len(inst.Models))
	}

	sol := solveValid(t, &inst, []int{1, 0, 0, 0}, DefaultConfig())
	if sol.OpenedSides != 1 || len(sol.Selected) != 1 || sol.Selected[0] != 1 {
		t.Errorf("solution = %+v", sol)
	}

	inst.Solution = &sol
	out, err := json.MarshalIndent(inst, "", "\t")
	if err != nil {
		t.Fatal(err)
	}
	var back MTDLBInstance
	if err = json.Unmarshal([]byte(SanitizeJsonArrayLineBreaks(string(out))), &back); err != nil {
		t.Fatal(err)
	}
	if back.Solution == nil || back.Solution.OpenedSides != 1 || len(back.Solution.Schedules[0].Tasks) != 2 {
		t.Errorf("solution lost in the written instance: %+v", back.Solution)
	}
}

func loadCatalog(t *testing.T) *MTDLBInstance {
	t.Helper()
	data, err := os.ReadFile("testdata/catalog.json")
	if err != nil {
		t.Fatal(err)
	}
	var inst MTDLBInstance
	if err = json.Unmarshal(data, &inst); err != nil {
		t.Fatal(err)
	}
	return &inst
}

func TestSolveMixedModels(t *testing.T) {
	cases := []struct {
		flags            []int
		obj              float64
		both, one, sides int
		selected         []int
		long             bool
	}{
		// chain and the short OR alternative share the left side of station 1
		{flags: []int{1, 1, 0, 0}, obj: 1 + 0.001 + 1e-6*10, both: 0, one: 1, sides: 1, selected: []int{1, 2}},
		// the two-sided model forces both sides of station 1 open for everyone
		{flags: []int{1, 0, 1, 1}, obj: 1 + 0.002 + 1e-6*23, both: 1, one: 0, sides: 2, selected: []int{1, 3, 4}, long: true},
	}
	for _, tc := range cases {
		if tc.long && testing.Short() {
			continue
		}
		inst := loadCatalog(t)
		sol := solveValid(t, inst, tc.flags, DefaultConfig())
		if math.Abs(sol.Obj-tc.obj) > 1e-7 {
			t.Errorf("%v: obj = %.9g, want %.9g", tc.flags, sol.Obj, tc.obj)
		}
		if sol.BothSides != tc.both || sol.OneSide != tc.one || sol.OpenedSides != tc.sides {
			t.Errorf("%v: stations = (%d both, %d one, %d sides), want (%d, %d, %d)",
				tc.flags, sol.BothSides, sol.OneSide, sol.OpenedSides, tc.both, tc.one, tc.sides)
		}
		if !reflect.DeepEqual(sol.Selected, tc.selected) || len(sol.Schedules) != len(tc.selected) {
			t.Errorf("%v: selected = %v with %d schedules, want %v", tc.flags, sol.Selected, len(sol.Schedules), tc.selected)
		}
		shared := make(map[StationSide]map[int]bool)
		for _, sched := range sol.Schedules {
			for _, rec := range sched.Tasks {
				a := rec.Assigned[0]
				if shared[a] == nil {
					shared[a] = make(map[int]bool)
				}
				shared[a][sched.Model] = true
			}
		}
		if len(shared[StationSide{1, SIDE_LEFT}]) < 2 {
			t.Errorf("%v: station side (1,L) serves models %v, want several", tc.flags, shared[StationSide{1, SIDE_LEFT}])
		}
	}
}
