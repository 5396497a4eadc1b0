package mtdlb

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"git.solver4all.com/azaryc2s/mtdlb/milp"
)

func TestExtractSolutionRefusesMissingSolution(t *testing.T) {
	inst := line(10, 1, chainModel(1, 3, 4))
	model, err := CreateMTDLBModel(inst, []*ProductModel{&inst.Models[0]}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err = model.ExtractSolution(milp.Result{Status: milp.StatusInfeasible}); !errors.Is(err, milp.ErrInfeasible) {
		t.Errorf("err = %v, want ErrInfeasible", err)
	}
	if _, err = model.ExtractSolution(milp.Result{Status: milp.StatusOptimal, X: []float64{1}}); !errors.Is(err, milp.ErrNumerical) {
		t.Errorf("short X: err = %v, want ErrNumerical", err)
	}
}

func handSolution() MTDLBSolution {
	return MTDLBSolution{
		OneSide:     1,
		OpenedSides: 1,
		Stations:    []StationOpening{{Station: 1, Sides: []int{SIDE_LEFT}}},
		Schedules: []ModelSchedule{{
			Model: 1,
			Name:  "chain",
			Tasks: []TaskRecord{
				{Model: 1, Task: 1, Assigned: []StationSide{{1, SIDE_LEFT}}, ProcessingTime: 3, Start: 0, Finish: 3},
				{Model: 1, Task: 2, Assigned: []StationSide{{1, SIDE_LEFT}}, ProcessingTime: 4, Start: 3, Finish: 7},
			},
		}},
	}
}

func TestCheckSolutionValidity(t *testing.T) {
	inst := line(10, 1, chainModel(1, 3, 4))
	sol := handSolution()
	if ok, msg := CheckSolutionValidity(inst, &sol); !ok {
		t.Fatalf("valid schedule rejected: %s", msg)
	}

	cases := map[string]func(*MTDLBSolution){
		"overlap": func(s *MTDLBSolution) {
			s.Schedules[0].Tasks[1].Start, s.Schedules[0].Tasks[1].Finish = 1, 5
		},
		"cycle time": func(s *MTDLBSolution) {
			s.Schedules[0].Tasks[1].Start, s.Schedules[0].Tasks[1].Finish = 8, 12
		},
		"infeasible side": func(s *MTDLBSolution) {
			s.Schedules[0].Tasks[0].Assigned[0].Side = SIDE_RIGHT
		},
		"flow": func(s *MTDLBSolution) {
			s.Schedules[0].Tasks = s.Schedules[0].Tasks[:1]
		},
		"counts": func(s *MTDLBSolution) {
			s.OpenedSides = 2
		},
		"unopened side": func(s *MTDLBSolution) {
			s.Stations = nil
		},
	}
	for name, mutate := range cases {
		sol := handSolution()
		mutate(&sol)
		if ok, _ := CheckSolutionValidity(inst, &sol); ok {
			t.Errorf("%s: broken schedule accepted", name)
		}
	}
}

func TestRender(t *testing.T) {
	sol := handSolution()
	sol.Status = "OPTIMAL"
	sol.Seconds = 0.25
	var buf bytes.Buffer
	if err := Render(&buf, &sol); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Time = 0.2500 second", "#### MODEL-01 chain ####", "(1, 1)", "[(1,L)]", "(1, 2)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "only one side") {
		t.Errorf("output lacks the one-side count:\n%s", out)
	}
}
