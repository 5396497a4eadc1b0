package milp

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func smallProblem() *Problem {
	p := NewProblem("small", 3)
	p.ColNames = []string{"x", "y", "t"}
	p.SetBinary(0)
	p.SetBinary(1)
	p.UB[1] = 0
	p.Obj = []float64{1, 0.5, 0}
	p.AddConstr([]int32{0, 1}, []float64{1, 1}, EQUAL, 1, "2_1")
	p.AddConstr([]int32{2, 0}, []float64{1, -10}, LESS_EQUAL, 0, "6_1")
	p.AddConstr([]int32{2, 0}, []float64{1, -3}, GREATER_EQUAL, 0, "7_1")
	return p
}

func TestNewProblemDefaults(t *testing.T) {
	p := NewProblem("p", 2)
	if p.NumCols() != 2 || p.NumRows() != 0 {
		t.Fatalf("got %d cols %d rows", p.NumCols(), p.NumRows())
	}
	if p.ColTypes[0] != CONTINUOUS || !math.IsInf(p.UB[1], 1) || p.LB[0] != 0 {
		t.Errorf("unexpected defaults: %v %v %v", p.ColTypes, p.LB, p.UB)
	}
	p.SetBinary(1)
	if !p.IsInteger(1) || p.UB[1] != 1 {
		t.Errorf("SetBinary did not clamp: %v", p.UB)
	}
}

func TestValidate(t *testing.T) {
	p := smallProblem()
	if err := p.Validate(); err != nil {
		t.Fatalf("valid problem rejected: %v", err)
	}
	p.AddConstr([]int32{7}, []float64{1}, EQUAL, 0, "bad")
	if err := p.Validate(); !errors.Is(err, ErrInvalidProblem) {
		t.Errorf("out of range column not rejected, got %v", err)
	}
}

func TestViolation(t *testing.T) {
	p := smallProblem()
	if v := p.Violation([]float64{1, 0, 3}); v > 1e-12 {
		t.Errorf("feasible point reports violation %g", v)
	}
	if v := p.Violation([]float64{1, 0, 11}); math.Abs(v-1) > 1e-12 {
		t.Errorf("violation = %g, want 1", v)
	}
	if got := p.ObjValue([]float64{1, 0, 3}); got != 1 {
		t.Errorf("objective = %g, want 1", got)
	}
}

func TestStatusError(t *testing.T) {
	if err := StatusError(Result{Status: StatusOptimal, X: []float64{1}}); err != nil {
		t.Errorf("optimal result mapped to %v", err)
	}
	if err := StatusError(Result{Status: StatusInfeasible}); !errors.Is(err, ErrInfeasible) {
		t.Errorf("infeasible mapped to %v", err)
	}
	if err := StatusError(Result{Status: StatusUnbounded}); !errors.Is(err, ErrUnbounded) {
		t.Errorf("unbounded mapped to %v", err)
	}
	if err := StatusError(Result{Status: StatusTimeLimit}); !errors.Is(err, ErrNoSolution) {
		t.Errorf("time limit without incumbent mapped to %v", err)
	}
	if err := StatusError(Result{Status: StatusNumeric}); !errors.Is(err, ErrNumerical) {
		t.Errorf("numeric mapped to %v", err)
	}
	if (Result{Status: StatusTimeLimit, X: []float64{0}}).HasSolution() != true {
		t.Errorf("time limit with incumbent should carry a solution")
	}
}

func TestWriteLP(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLP(&buf, smallProblem()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Minimize\n obj: 1 x + 0.5 y",
		" c2_1: 1 x + 1 y = 1",
		" c6_1: 1 t - 10 x <= 0",
		" c7_1: 1 t - 3 x >= 0",
		" y = 0",
		"Binaries\n x y\n",
		"End\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("LP output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Generals") {
		t.Errorf("no integer columns, Generals section should be absent")
	}
}

func TestWriteLPLabels(t *testing.T) {
	p := NewProblem("labels", 1)
	p.ColNames = []string{"x"}
	p.AddConstr([]int32{0}, []float64{1}, LESS_EQUAL, 1, "8_1_1_1_2_1")
	p.AddConstr([]int32{0}, []float64{1}, LESS_EQUAL, 1, ".5")
	p.AddConstr([]int32{0}, []float64{1}, LESS_EQUAL, 1, "cap")
	var buf bytes.Buffer
	if err := WriteLP(&buf, p); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{" c8_1_1_1_2_1: 1 x <= 1\n", " c.5: 1 x <= 1\n", " cap: 1 x <= 1\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("LP output missing %q:\n%s", want, out)
		}
	}
}

func TestLPFileName(t *testing.T) {
	cases := map[string]string{
		"inst.json":           "inst.lp",
		"runs.json/inst.json": "runs.json/inst.lp",
		"inst":                "inst.lp",
		"inst.lp":             "inst.lp.lp",
	}
	for in, want := range cases {
		if got := LPFileName(in); got != want {
			t.Errorf("LPFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
