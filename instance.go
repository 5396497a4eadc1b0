package mtdlb

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"git.solver4all.com/azaryc2s/mtdlb/logging"
	"github.com/samber/lo"
)

var (
	// ErrMalformedInstance marks a required lookup that is missing or out of range.
	ErrMalformedInstance = errors.New("malformed instance data")

	// ErrNoModelSelected is returned when the selection flags leave the line empty.
	ErrNoModelSelected = errors.New("no model selected")

	// ErrUnsoundWeights is returned when the epsilon tiers could override a higher priority term.
	ErrUnsoundWeights = errors.New("objective weights do not preserve the lexicographic order")
)

// PreOf returns the normal nodes that precede artificial node k, if defined.
func (pm *ProductModel) PreOf(k int) ([]int, bool) {
	v, ok := pm.Pre[k]
	return v, ok
}

// SucOf returns the normal nodes that follow artificial node k, if defined.
func (pm *ProductModel) SucOf(k int) ([]int, bool) {
	v, ok := pm.Suc[k]
	return v, ok
}

// Junction reports whether artificial node k has both a PRE and a SUC set.
func (pm *ProductModel) Junction(k int) bool {
	_, okP := pm.Pre[k]
	_, okS := pm.Suc[k]
	return okP && okS
}

func (pm *ProductModel) ThetaOf(i int) ([]int, bool) {
	v, ok := pm.Theta[i]
	return v, ok
}

func (pm *ProductModel) TimeOf(i int) (float64, bool) {
	v, ok := pm.Times[i]
	return v, ok
}

// Feasible reports whether normal node i may be performed on side s.
func (pm *ProductModel) Feasible(i, s int) bool {
	return lo.Contains(pm.Theta[i], s)
}

// TotalTime is the sum of t over all normal nodes.
func (pm *ProductModel) TotalTime() float64 {
	return lo.Sum(lo.Values(pm.Times))
}

// Validate checks the lookups the formulation cannot do without.
func (pm *ProductModel) Validate(cycleTime float64) error {
	name := fmt.Sprintf("model %d (%s)", pm.ID, pm.Name)
	if pm.NormalCount < 1 {
		return fmt.Errorf("%w: %s needs at least one normal node (got %d)", ErrMalformedInstance, name, pm.NormalCount)
	}
	if pm.ArtificialCount < 1 {
		return fmt.Errorf("%w: %s needs at least the source artificial node (got %d)", ErrMalformedInstance, name, pm.ArtificialCount)
	}
	if src, ok := pm.Suc[0]; !ok || len(src) == 0 {
		return fmt.Errorf("%w: %s has no successors of the source node 0", ErrMalformedInstance, name)
	}
	for i := 1; i <= pm.NormalCount; i++ {
		t, ok := pm.Times[i]
		if !ok {
			return fmt.Errorf("%w: %s has no processing time for task %d", ErrMalformedInstance, name, i)
		}
		if t < 0 {
			return fmt.Errorf("%w: %s task %d has negative processing time %g", ErrMalformedInstance, name, i, t)
		}
		sides, ok := pm.Theta[i]
		if !ok || len(sides) == 0 {
			return fmt.Errorf("%w: %s has no feasible side for task %d", ErrMalformedInstance, name, i)
		}
		for _, s := range sides {
			if s != SIDE_LEFT && s != SIDE_RIGHT {
				return fmt.Errorf("%w: %s task %d lists side %d", ErrMalformedInstance, name, i, s)
			}
		}
	}
	for _, rel := range []map[int][]int{pm.Pre, pm.Suc} {
		for k, nodes := range rel {
			if k < 0 || k >= pm.ArtificialCount {
				return fmt.Errorf("%w: %s references artificial node %d outside 0..%d", ErrMalformedInstance, name, k, pm.ArtificialCount-1)
			}
			for _, i := range nodes {
				if i < 1 || i > pm.NormalCount {
					return fmt.Errorf("%w: %s artificial node %d references task %d outside 1..%d", ErrMalformedInstance, name, k, i, pm.NormalCount)
				}
			}
		}
	}
	for _, pair := range pm.Unordered {
		if pair[0] == pair[1] || pair[0] < 1 || pair[1] < 1 || pair[0] > pm.NormalCount || pair[1] > pm.NormalCount {
			return fmt.Errorf("%w: %s has invalid unordered pair %v", ErrMalformedInstance, name, pair)
		}
	}
	if pm.CycleTime != nil && *pm.CycleTime != cycleTime {
		logging.Log(1, "%s declares cycle time %g but the line shares %g; using the shared value", name, *pm.CycleTime, cycleTime)
	}
	return nil
}

// Validate checks the line data and every model of the catalog.
func (inst *MTDLBInstance) Validate() error {
	if err := inst.ValidateLine(); err != nil {
		return err
	}
	for i := range inst.Models {
		if err := inst.Models[i].Validate(inst.CycleTime); err != nil {
			return err
		}
	}
	return nil
}

// ValidateLine checks the fields shared by all models: cycle time, station
// count and unique model ids.
func (inst *MTDLBInstance) ValidateLine() error {
	if inst == nil {
		return errors.New("instance is nil")
	}
	if inst.CycleTime <= 0 {
		return fmt.Errorf("%w: cycle time must be > 0 (got %g)", ErrMalformedInstance, inst.CycleTime)
	}
	if inst.StationCount < 1 {
		return fmt.Errorf("%w: station count must be > 0 (got %d)", ErrMalformedInstance, inst.StationCount)
	}
	ids := lo.Map(inst.Models, func(pm ProductModel, _ int) int { return pm.ID })
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return fmt.Errorf("%w: duplicate model ids %v", ErrMalformedInstance, dup)
	}
	return nil
}

// SelectModels returns the catalog models whose flag is 1. One flag per catalog entry.
func (inst *MTDLBInstance) SelectModels(flags []int) ([]*ProductModel, error) {
	if len(flags) != len(inst.Models) {
		return nil, fmt.Errorf("got %d selection flags for %d models", len(flags), len(inst.Models))
	}
	var selected []*ProductModel
	for i, f := range flags {
		switch f {
		case 0:
		case 1:
			selected = append(selected, &inst.Models[i])
		default:
			return nil, fmt.Errorf("selection flag for model %d must be 0 or 1 (got %d)", inst.Models[i].ID, f)
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoModelSelected
	}
	return selected, nil
}

// ParseSelection reads a comma separated list of one 0/1 flag per catalog
// model. An empty list selects every model.
func ParseSelection(s string, n int) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return lo.Times(n, func(int) int { return 1 }), nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("got %d model flags for a catalog of %d models", len(parts), n)
	}
	flags := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("model flag %d: %w", i+1, err)
		}
		flags[i] = v
	}
	return flags, nil
}

// Successors returns, for every normal node, the normal nodes it immediately
// precedes through some artificial node.
func (pm *ProductModel) Successors() map[int][]int {
	arcs := make(map[int][]int)
	for k := 0; k < pm.ArtificialCount; k++ {
		pre, okP := pm.Pre[k]
		suc, okS := pm.Suc[k]
		if !okP || !okS {
			continue
		}
		for _, h := range pre {
			arcs[h] = lo.Uniq(append(arcs[h], suc...))
		}
	}
	return arcs
}

// Reachable returns reach[h][i] == true when a precedence path leads from h to i.
func (pm *ProductModel) Reachable() map[int]map[int]bool {
	arcs := pm.Successors()
	reach := make(map[int]map[int]bool, pm.NormalCount)
	for h := 1; h <= pm.NormalCount; h++ {
		seen := make(map[int]bool)
		stack := append([]int(nil), arcs[h]...)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[n] {
				continue
			}
			seen[n] = true
			stack = append(stack, arcs[n]...)
		}
		reach[h] = seen
	}
	return reach
}

// UnorderedPairs returns the MONONO pairs (i < h) of the model: the given ones,
// or every pair with no precedence path in either direction.
func (pm *ProductModel) UnorderedPairs() [][2]int {
	if len(pm.Unordered) > 0 {
		pairs := lo.Map(pm.Unordered, func(p [2]int, _ int) [2]int {
			if p[0] > p[1] {
				return [2]int{p[1], p[0]}
			}
			return p
		})
		pairs = lo.Uniq(pairs)
		sort.Slice(pairs, func(a, b int) bool {
			if pairs[a][0] != pairs[b][0] {
				return pairs[a][0] < pairs[b][0]
			}
			return pairs[a][1] < pairs[b][1]
		})
		return pairs
	}
	reach := pm.Reachable()
	var pairs [][2]int
	for i := 1; i <= pm.NormalCount; i++ {
		for h := i + 1; h <= pm.NormalCount; h++ {
			if !reach[i][h] && !reach[h][i] {
				pairs = append(pairs, [2]int{i, h})
			}
		}
	}
	return pairs
}
