package mtdlb

import (
	"errors"
	"reflect"
	"testing"
)

// chainModel links the normal nodes 1..n in sequence, all on the left side.
func chainModel(id int, times ...float64) ProductModel {
	n := len(times)
	pm := ProductModel{
		ID:              id,
		Name:            "chain",
		NormalCount:     n,
		ArtificialCount: n,
		Times:           make(map[int]float64),
		Pre:             make(map[int][]int),
		Suc:             map[int][]int{0: {1}},
		Theta:           make(map[int][]int),
	}
	for i := 1; i <= n; i++ {
		pm.Times[i] = times[i-1]
		pm.Theta[i] = []int{SIDE_LEFT}
		if i < n {
			pm.Pre[i] = []int{i}
			pm.Suc[i] = []int{i + 1}
		}
	}
	return pm
}

// andSplitModel has task 1 followed by the parallel tasks 2 and 3.
func andSplitModel(id int) ProductModel {
	return ProductModel{
		ID:              id,
		Name:            "and-split",
		NormalCount:     3,
		ArtificialCount: 3,
		Times:           map[int]float64{1: 2, 2: 3, 3: 4},
		Pre:             map[int][]int{1: {1}, 2: {1}},
		Suc:             map[int][]int{0: {1}, 1: {2}, 2: {3}},
		Theta:           map[int][]int{1: {SIDE_LEFT}, 2: {SIDE_LEFT}, 3: {SIDE_LEFT}},
	}
}

// orChoiceModel lets the source pick either task 1 or task 2.
func orChoiceModel(id int) ProductModel {
	return ProductModel{
		ID:              id,
		Name:            "or-choice",
		NormalCount:     2,
		ArtificialCount: 1,
		Times:           map[int]float64{1: 5, 2: 3},
		Suc:             map[int][]int{0: {1, 2}},
		Theta:           map[int][]int{1: {SIDE_LEFT, SIDE_RIGHT}, 2: {SIDE_LEFT, SIDE_RIGHT}},
	}
}

func line(cycleTime float64, stations int, models ...ProductModel) *MTDLBInstance {
	return &MTDLBInstance{Name: "test", CycleTime: cycleTime, StationCount: stations, Models: models}
}

func TestValidateAcceptsChain(t *testing.T) {
	if err := line(10, 1, chainModel(1, 3, 4)).Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejectsMalformedData(t *testing.T) {
	cases := map[string]func(*MTDLBInstance){
		"missing theta":      func(in *MTDLBInstance) { delete(in.Models[0].Theta, 2) },
		"missing time":       func(in *MTDLBInstance) { delete(in.Models[0].Times, 1) },
		"bad side":           func(in *MTDLBInstance) { in.Models[0].Theta[1] = []int{3} },
		"missing source":     func(in *MTDLBInstance) { delete(in.Models[0].Suc, 0) },
		"task out of range":  func(in *MTDLBInstance) { in.Models[0].Suc[1] = []int{7} },
		"junction too large": func(in *MTDLBInstance) { in.Models[0].Pre[5] = []int{1} },
		"zero cycle time":    func(in *MTDLBInstance) { in.CycleTime = 0 },
		"no stations":        func(in *MTDLBInstance) { in.StationCount = 0 },
		"duplicate ids":      func(in *MTDLBInstance) { in.Models = append(in.Models, chainModel(1, 1)) },
	}
	for name, mutate := range cases {
		inst := line(10, 1, chainModel(1, 3, 4))
		mutate(inst)
		if err := inst.Validate(); !errors.Is(err, ErrMalformedInstance) {
			t.Errorf("%s: err = %v, want ErrMalformedInstance", name, err)
		}
	}
}

func TestValidateToleratesModelCycleTime(t *testing.T) {
	pm := chainModel(1, 3, 4)
	c := 12.0
	pm.CycleTime = &c
	if err := line(10, 1, pm).Validate(); err != nil {
		t.Fatalf("per-model cycle time should only warn, got %v", err)
	}
}

func TestSelectModels(t *testing.T) {
	inst := line(10, 1, chainModel(1, 3), chainModel(2, 4), chainModel(3, 5), chainModel(4, 6))

	selected, err := inst.SelectModels([]int{1, 0, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(selected) != 2 || selected[0].ID != 1 || selected[1].ID != 3 {
		t.Errorf("selected = %v, want models 1 and 3", selected)
	}

	if _, err := inst.SelectModels([]int{0, 0, 0, 0}); !errors.Is(err, ErrNoModelSelected) {
		t.Errorf("err = %v, want ErrNoModelSelected", err)
	}
	if _, err := inst.SelectModels([]int{1, 2, 0, 0}); err == nil {
		t.Error("flag 2 should be rejected")
	}
	if _, err := inst.SelectModels([]int{1, 0}); err == nil {
		t.Error("short flag list should be rejected")
	}
}

func TestUnorderedPairs(t *testing.T) {
	and := andSplitModel(1)
	if got, want := and.UnorderedPairs(), [][2]int{{2, 3}}; !reflect.DeepEqual(got, want) {
		t.Errorf("and-split pairs = %v, want %v", got, want)
	}

	chain := chainModel(2, 1, 2, 3)
	if got := chain.UnorderedPairs(); len(got) != 0 {
		t.Errorf("chain pairs = %v, want none", got)
	}

	or := orChoiceModel(3)
	if got, want := or.UnorderedPairs(), [][2]int{{1, 2}}; !reflect.DeepEqual(got, want) {
		t.Errorf("or-choice pairs = %v, want %v", got, want)
	}

	given := chainModel(4, 1, 2, 3)
	given.Unordered = [][2]int{{3, 1}, {1, 3}, {2, 1}}
	if got, want := given.UnorderedPairs(), [][2]int{{1, 2}, {1, 3}}; !reflect.DeepEqual(got, want) {
		t.Errorf("given pairs = %v, want %v", got, want)
	}
}

func TestReachable(t *testing.T) {
	pm := chainModel(1, 1, 1, 1)
	reach := pm.Reachable()
	if !reach[1][3] || reach[3][1] || reach[2][1] {
		t.Errorf("reach = %v, want 1->2->3 only", reach)
	}
}

func TestParseSelection(t *testing.T) {
	flags, err := ParseSelection("", 3)
	if err != nil || !reflect.DeepEqual(flags, []int{1, 1, 1}) {
		t.Errorf("empty selection = %v, %v, want every model", flags, err)
	}
	flags, err = ParseSelection("1, 0,1", 3)
	if err != nil || !reflect.DeepEqual(flags, []int{1, 0, 1}) {
		t.Errorf("selection = %v, %v, want [1 0 1]", flags, err)
	}
	if _, err = ParseSelection("1,1,1,1", 3); err == nil {
		t.Error("four flags for three models should be rejected")
	}
	if _, err = ParseSelection("1,x,0", 3); err == nil {
		t.Error("non-numeric flag should be rejected")
	}
}
