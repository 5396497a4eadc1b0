package mtdlb

import (
	"fmt"

	"git.solver4all.com/azaryc2s/mtdlb/logging"
	"git.solver4all.com/azaryc2s/mtdlb/milp"
	"github.com/samber/lo"
)

// CreateMTDLBModel builds the MILP for the given instance and selected models.
// Models left out of the selection are not validated.
func CreateMTDLBModel(inst *MTDLBInstance, selected []*ProductModel, cfg Config) (MTDLBModel, error) {
	if err := inst.ValidateLine(); err != nil {
		return MTDLBModel{}, err
	}
	if len(selected) == 0 {
		return MTDLBModel{}, ErrNoModelSelected
	}
	for _, pm := range selected {
		if err := pm.Validate(inst.CycleTime); err != nil {
			return MTDLBModel{}, err
		}
	}
	if cfg.Epsilon <= 0 || cfg.Epsilon >= 1 {
		return MTDLBModel{}, fmt.Errorf("%w: epsilon must be in (0,1) (got %g)", ErrUnsoundWeights, cfg.Epsilon)
	}

	S := inst.StationCount
	C := inst.CycleTime
	eps := cfg.Epsilon

	model := MTDLBModel{
		Instance:   inst,
		Models:     selected,
		Stations:   S,
		Epsilon:    eps,
		zIndex:     make(map[TaskKey]int),
		deltaIndex: make(map[PairKey]int),
		modelPos:   make(map[int]int),
	}
	var times []float64
	for pos, pm := range selected {
		model.modelPos[pm.ID] = pos
		for i := 1; i <= pm.NormalCount; i++ {
			model.zIndex[TaskKey{pm.ID, i}] = len(model.Mono)
			model.Mono = append(model.Mono, TaskKey{pm.ID, i})
			times = append(times, pm.Times[i])
		}
		for _, pair := range pm.UnorderedPairs() {
			key := PairKey{pm.ID, pair[0], pair[1]}
			model.deltaIndex[key] = len(model.MonoNo)
			model.MonoNo = append(model.MonoNo, key)
		}
	}
	totalTime := lo.Sum(times)

	model.BigM = cfg.BigM
	if model.BigM <= 0 {
		safety := cfg.BigMSafety
		if safety < 1 {
			safety = DEFAULT_BIGM_SAFETY
		}
		model.BigM = safety * (C + totalTime)
	}
	M := model.BigM
	logging.Log(2, "Relaxation constant big-M = %g (cycle time %g, total processing time %g)", M, C, totalTime)

	if !cfg.SkipWeightCheck {
		if err := checkWeights(eps, S, C, times, cfg.LeftShift); err != nil {
			return MTDLBModel{}, err
		}
	}

	nModels := len(selected)
	nMono := len(model.Mono)
	model.FStart = 0
	model.GStart = model.FStart + S
	model.UStart = model.GStart + S
	model.ZStart = model.UStart + S*SIDE_COUNT
	model.GammaStart = model.ZStart + nMono
	model.XStart = model.GammaStart + nModels*S*SIDE_COUNT
	model.DeltaStart = model.XStart + nMono*S*SIDE_COUNT
	model.TFStart = model.DeltaStart + len(model.MonoNo)
	model.VarCount = model.TFStart + nMono

	p := milp.NewProblem(fmt.Sprintf("mtdlb_%s", inst.Name), model.VarCount)
	model.Problem = p

	for j := 1; j <= S; j++ {
		f, g := model.FIndex(j), model.GIndex(j)
		p.ColNames[f] = fmt.Sprintf("F_%d", j)
		p.ColNames[g] = fmt.Sprintf("G_%d", j)
		p.SetBinary(f)
		p.SetBinary(g)
		p.Obj[f] = 1.0
		p.Obj[g] = 1.0
		for s := 1; s <= SIDE_COUNT; s++ {
			u := model.UIndex(j, s)
			p.ColNames[u] = fmt.Sprintf("U_%d_%d", j, s)
			p.SetBinary(u)
			p.Obj[u] = eps * float64(j)
		}
	}
	for _, pm := range selected {
		for j := 1; j <= S; j++ {
			for s := 1; s <= SIDE_COUNT; s++ {
				gm := model.GammaIndex(pm.ID, j, s)
				p.ColNames[gm] = fmt.Sprintf("GAMMA_%d_%d_%d", pm.ID, j, s)
				p.SetBinary(gm)
			}
		}
		for i := 1; i <= pm.NormalCount; i++ {
			z := model.ZIndex(pm.ID, i)
			p.ColNames[z] = fmt.Sprintf("Z_%d_%d", pm.ID, i)
			p.SetBinary(z)
			p.Obj[z] = eps * eps * pm.Times[i]

			tf := model.TFIndex(pm.ID, i)
			p.ColNames[tf] = fmt.Sprintf("TF_%d_%d", pm.ID, i)
			if cfg.LeftShift {
				p.Obj[tf] = eps * eps * eps
			}

			for j := 1; j <= S; j++ {
				for s := 1; s <= SIDE_COUNT; s++ {
					x := model.XIndex(pm.ID, i, j, s)
					p.ColNames[x] = fmt.Sprintf("X_%d_%d_%d_%d", pm.ID, i, j, s)
					p.SetBinary(x)
					if !pm.Feasible(i, s) {
						p.UB[x] = 0
					}
				}
			}
		}
	}
	for _, key := range model.MonoNo {
		d := model.DeltaIndex(key.Model, key.I, key.H)
		p.ColNames[d] = fmt.Sprintf("DELTA_%d_%d_%d", key.Model, key.I, key.H)
		p.SetBinary(d)
	}
	logging.Log(2, "Created %d variables: %d tasks, %d unordered pairs, %d stations", model.VarCount, nMono, len(model.MonoNo), S)

	addRow := func(r *rowBuilder, sense int8, rhs float64, name string) {
		if logging.Enabled(4) {
			op := map[int8]string{milp.LESS_EQUAL: "<=", milp.GREATER_EQUAL: ">=", milp.EQUAL: "="}[sense]
			logging.Log(4, "Adding %s: %s", name, rowString(p.ColNames, r.ind, r.val, op, rhs))
		}
		p.AddConstr(r.ind, r.val, sense, rhs, name)
	}

	//Add constraints (2) selecting exactly one successor of the source node
	{
		logging.Log(2, "Creating and setting constraints sum_{i in SUC(m,0)}(Z_mi) = 1 (2)")
		for _, pm := range selected {
			r := newRow()
			for _, i := range pm.Suc[0] {
				r.add(model.ZIndex(pm.ID, i), 1.0)
			}
			addRow(r, milp.EQUAL, 1.0, fmt.Sprintf("2_%d", pm.ID))
		}
	}

	//Add constraints (3) balancing the selection flow through every junction
	{
		logging.Log(2, "Creating and setting constraints sum_{SUC(m,k)}(Z_mi) = sum_{PRE(m,k)}(Z_mi) (3)")
		for _, pm := range selected {
			for k := 1; k < pm.ArtificialCount; k++ {
				if !pm.Junction(k) {
					continue
				}
				r := newRow()
				for _, i := range pm.Suc[k] {
					r.add(model.ZIndex(pm.ID, i), 1.0)
				}
				for _, i := range pm.Pre[k] {
					r.add(model.ZIndex(pm.ID, i), -1.0)
				}
				addRow(r, milp.EQUAL, 0.0, fmt.Sprintf("3_%d_%d", pm.ID, k))
			}
		}
	}

	//Add constraints (4) placing a selected task on exactly one feasible station side
	{
		logging.Log(2, "Creating and setting constraints sum_j sum_{s in THETA(m,i)}(X_mijs) = Z_mi (4)")
		for _, key := range model.Mono {
			pm := selected[model.modelPos[key.Model]]
			r := newRow()
			for j := 1; j <= S; j++ {
				for _, s := range pm.Theta[key.Task] {
					r.add(model.XIndex(key.Model, key.Task, j, s), 1.0)
				}
			}
			r.add(model.ZIndex(key.Model, key.Task), -1.0)
			addRow(r, milp.EQUAL, 0.0, fmt.Sprintf("4_%d_%d", key.Model, key.Task))
		}
	}

	//Add constraints (5) keeping predecessors at or upstream of their successors' station
	{
		logging.Log(2, "Creating and setting constraints sum_{v<=j}(X_{PRE}) >= sum(X_{SUC} at j) (5)")
		for _, pm := range selected {
			for k := 1; k < pm.ArtificialCount; k++ {
				if !pm.Junction(k) {
					continue
				}
				for j := 1; j <= S; j++ {
					r := newRow()
					for _, i := range pm.Pre[k] {
						for _, s := range pm.Theta[i] {
							for v := 1; v <= j; v++ {
								r.add(model.XIndex(pm.ID, i, v, s), 1.0)
							}
						}
					}
					for _, i := range pm.Suc[k] {
						for _, s := range pm.Theta[i] {
							r.add(model.XIndex(pm.ID, i, j, s), -1.0)
						}
					}
					addRow(r, milp.GREATER_EQUAL, 0.0, fmt.Sprintf("5_%d_%d_%d", pm.ID, k, j))
				}
			}
		}
	}

	//Add constraints (6) and (7) bounding the finish times
	{
		logging.Log(2, "Creating and setting constraints TF_mi <= C*Z_mi (6) and TF_mi >= t_mi*Z_mi (7)")
		for _, key := range model.Mono {
			pm := selected[model.modelPos[key.Model]]
			tf := model.TFIndex(key.Model, key.Task)
			z := model.ZIndex(key.Model, key.Task)
			addRow(newRow().add(tf, 1.0).add(z, -C), milp.LESS_EQUAL, 0.0, fmt.Sprintf("6_%d_%d", key.Model, key.Task))
			addRow(newRow().add(tf, 1.0).add(z, -pm.Times[key.Task]), milp.GREATER_EQUAL, 0.0, fmt.Sprintf("7_%d_%d", key.Model, key.Task))
		}
	}

	//Add constraints (8) sequencing co-located predecessor and successor
	{
		logging.Log(2, "Creating and setting constraints TF_mi - TF_mh + M(2 - sum_s X_mijs - sum_s X_mhjs) >= t_mi (8)")
		for _, pm := range selected {
			for j := 1; j <= S; j++ {
				for k := 1; k < pm.ArtificialCount; k++ {
					if !pm.Junction(k) {
						continue
					}
					for _, i := range pm.Suc[k] {
						for _, h := range pm.Pre[k] {
							r := newRow()
							r.add(model.TFIndex(pm.ID, i), 1.0)
							r.add(model.TFIndex(pm.ID, h), -1.0)
							for _, s := range pm.Theta[i] {
								r.add(model.XIndex(pm.ID, i, j, s), -M)
							}
							for _, s := range pm.Theta[h] {
								r.add(model.XIndex(pm.ID, h, j, s), -M)
							}
							addRow(r, milp.GREATER_EQUAL, pm.Times[i]-2*M, fmt.Sprintf("8_%d_%d_%d_%d_%d", pm.ID, j, k, i, h))
						}
					}
				}
			}
		}
	}

	//Add constraints (9) and (10) sequencing unordered tasks sharing a station side
	{
		logging.Log(2, "Creating and setting disjunctive constraints on DELTA_mih (9) and (10)")
		for _, key := range model.MonoNo {
			pm := selected[model.modelPos[key.Model]]
			m, i, h := key.Model, key.I, key.H
			d := model.DeltaIndex(m, i, h)
			for j := 1; j <= S; j++ {
				for s := 1; s <= SIDE_COUNT; s++ {
					xi, xh := model.XIndex(m, i, j, s), model.XIndex(m, h, j, s)
					r := newRow().
						add(model.TFIndex(m, i), 1.0).
						add(model.TFIndex(m, h), -1.0).
						add(xi, -M).add(xh, -M).add(d, -M)
					addRow(r, milp.GREATER_EQUAL, pm.Times[i]-3*M, fmt.Sprintf("9_%d_%d_%d_%d_%d", m, i, h, j, s))

					r = newRow().
						add(model.TFIndex(m, h), 1.0).
						add(model.TFIndex(m, i), -1.0).
						add(xi, -M).add(xh, -M).add(d, M)
					addRow(r, milp.GREATER_EQUAL, pm.Times[h]-2*M, fmt.Sprintf("10_%d_%d_%d_%d_%d", m, i, h, j, s))
				}
			}
		}
	}

	//Add constraints (11) marking the station sides a model uses
	{
		logging.Log(2, "Creating and setting constraints sum_i(X_mijs) - nN_m*GAMMA_mjs <= 0 (11)")
		for _, pm := range selected {
			for j := 1; j <= S; j++ {
				for s := 1; s <= SIDE_COUNT; s++ {
					r := newRow()
					for i := 1; i <= pm.NormalCount; i++ {
						if pm.Feasible(i, s) {
							r.add(model.XIndex(pm.ID, i, j, s), 1.0)
						}
					}
					r.add(model.GammaIndex(pm.ID, j, s), -float64(pm.NormalCount))
					addRow(r, milp.LESS_EQUAL, 0.0, fmt.Sprintf("11_%d_%d_%d", pm.ID, j, s))
				}
			}
		}
	}

	//Add constraints (12) opening a station side used by any model
	{
		logging.Log(2, "Creating and setting constraints sum_m(GAMMA_mjs) - |MODELS|*U_js <= 0 (12)")
		for j := 1; j <= S; j++ {
			for s := 1; s <= SIDE_COUNT; s++ {
				r := newRow()
				for _, pm := range selected {
					r.add(model.GammaIndex(pm.ID, j, s), 1.0)
				}
				r.add(model.UIndex(j, s), -float64(nModels))
				addRow(r, milp.LESS_EQUAL, 0.0, fmt.Sprintf("12_%d_%d", j, s))
			}
		}
	}

	//Add constraints (13) classifying each station as opened from both sides or one side
	{
		logging.Log(2, "Creating and setting constraints sum_s(U_js) - 2F_j - G_j = 0 (13)")
		for j := 1; j <= S; j++ {
			r := newRow()
			for s := 1; s <= SIDE_COUNT; s++ {
				r.add(model.UIndex(j, s), 1.0)
			}
			r.add(model.FIndex(j), -2.0).add(model.GIndex(j), -1.0)
			addRow(r, milp.EQUAL, 0.0, fmt.Sprintf("13_%d", j))
		}
	}

	logging.Log(2, "Model %s has %d variables and %d constraints", p.Name, p.NumCols(), p.NumRows())
	return model, nil
}

// checkWeights verifies that a full lower tier can never outweigh one unit of the tier above it.
func checkWeights(eps float64, stations int, cycleTime float64, times []float64, leftShift bool) error {
	indexSum := float64(stations*(stations+1)/2) * SIDE_COUNT
	if eps*indexSum >= 1 {
		return fmt.Errorf("%w: epsilon %g times the station index sum %g reaches one station", ErrUnsoundWeights, eps, indexSum)
	}
	totalTime := lo.Sum(times)
	if eps*totalTime >= 1 {
		return fmt.Errorf("%w: epsilon %g times the total processing time %g reaches one station index step", ErrUnsoundWeights, eps, totalTime)
	}
	if leftShift {
		res := timeResolution(times)
		tfSum := cycleTime * float64(len(times))
		if res > 0 && eps*tfSum >= res {
			return fmt.Errorf("%w: epsilon %g times the finish time bound %g reaches the processing time resolution %g", ErrUnsoundWeights, eps, tfSum, res)
		}
	}
	return nil
}

// ObjectiveTiers splits an assignment's objective into its three (or four) priority terms.
func (model *MTDLBModel) ObjectiveTiers(x []float64) (stations, index, procTime, finish float64) {
	for j := 1; j <= model.Stations; j++ {
		stations += x[model.FIndex(j)] + x[model.GIndex(j)]
		for s := 1; s <= SIDE_COUNT; s++ {
			index += float64(j) * x[model.UIndex(j, s)]
		}
	}
	for _, pm := range model.Models {
		for i := 1; i <= pm.NormalCount; i++ {
			procTime += pm.Times[i] * x[model.ZIndex(pm.ID, i)]
			finish += x[model.TFIndex(pm.ID, i)]
		}
	}
	return stations, index, procTime, finish
}
