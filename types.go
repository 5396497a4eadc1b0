package mtdlb

import "git.solver4all.com/azaryc2s/mtdlb/milp"

const (
	SIDE_LEFT  = 1
	SIDE_RIGHT = 2
	SIDE_COUNT = 2

	SOLVER_BNB    = "BNB"
	SOLVER_GUROBI = "GUROBI"
	SOLVER_GLPK   = "GLPK"

	DEFAULT_EPSILON     = 0.001
	DEFAULT_BIGM_SAFETY = 2.0
)

// ProductModel is one product variant's disassembly graph. Artificial nodes are
// indexed 0..ArtificialCount-1 with 0 the source; normal nodes 1..NormalCount.
type ProductModel struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Comment string `json:"comment,omitempty"`

	NormalCount     int `json:"normal_count"`
	ArtificialCount int `json:"artificial_count"`

	Times map[int]float64 `json:"times"`
	Pre   map[int][]int   `json:"pre"`
	Suc   map[int][]int   `json:"suc"`
	Theta map[int][]int   `json:"theta"`

	// Unordered lists the normal node pairs that may share a station side in
	// either order. Derived from the precedence graph when empty.
	Unordered [][2]int `json:"unordered,omitempty"`

	// CycleTime is accepted only to warn when it disagrees with the line's shared cycle time.
	CycleTime *float64 `json:"cycle_time,omitempty"`
}

type MTDLBInstance struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
	Type    string `json:"type"`

	CycleTime    float64        `json:"cycle_time"`
	StationCount int            `json:"station_count"`
	Models       []ProductModel `json:"models"`

	Solution *MTDLBSolution `json:"solution,omitempty"`
}

type StationSide struct {
	Station int `json:"station"`
	Side    int `json:"side"`
}

type TaskRecord struct {
	Model          int           `json:"model"`
	Task           int           `json:"task"`
	Assigned       []StationSide `json:"assigned"`
	ProcessingTime float64       `json:"processing_time"`
	Start          float64       `json:"start"`
	Finish         float64       `json:"finish"`
}

type ModelSchedule struct {
	Model int          `json:"model"`
	Name  string       `json:"name"`
	Tasks []TaskRecord `json:"tasks"`
}

type StationOpening struct {
	Station   int   `json:"station"`
	Sides     []int `json:"sides"`
	BothSides bool  `json:"both_sides"`
}

type MTDLBSolution struct {
	Obj     float64 `json:"obj"`
	LBound  float64 `json:"lbound"`
	Optimal bool    `json:"optimal"`
	Status  string  `json:"status"`
	Solver  string  `json:"solver"`

	Selected    []int            `json:"selected"`
	BothSides   int              `json:"both_sides"`
	OneSide     int              `json:"one_side"`
	OpenedSides int              `json:"opened_sides"`
	Stations    []StationOpening `json:"stations"`
	Schedules   []ModelSchedule  `json:"schedules"`

	Time    string  `json:"time"`
	Seconds float64 `json:"seconds"`
	System  SysInfo `json:"system"`
	Comment string  `json:"comment"`
}

// SysInfo saves the basic system information
type SysInfo struct {
	Platform string
	CPU      string
	RAM      string
}

// Config tunes the formulation. The zero value is not usable; start from DefaultConfig.
type Config struct {
	Epsilon float64
	// BigM overrides the derived relaxation constant when positive.
	BigM       float64
	BigMSafety float64
	// LeftShift adds an Epsilon^3 * TF tier that packs finish times to their earliest values.
	LeftShift       bool
	SkipWeightCheck bool
}

func DefaultConfig() Config {
	return Config{Epsilon: DEFAULT_EPSILON, BigMSafety: DEFAULT_BIGM_SAFETY}
}

// MTDLBModel is a built formulation together with its column layout.
type MTDLBModel struct {
	Problem  *milp.Problem
	Instance *MTDLBInstance
	Models   []*ProductModel
	Mono     []TaskKey
	MonoNo   []PairKey
	Stations int
	BigM     float64
	Epsilon  float64

	FStart     int
	GStart     int
	UStart     int
	ZStart     int
	GammaStart int
	XStart     int
	DeltaStart int
	TFStart    int
	VarCount   int

	zIndex     map[TaskKey]int
	deltaIndex map[PairKey]int
	modelPos   map[int]int
}

// TaskKey is an (m, i) pair of MONO.
type TaskKey struct {
	Model int
	Task  int
}

// PairKey is an (m, i, h) triple of MONONO.
type PairKey struct {
	Model int
	I     int
	H     int
}
