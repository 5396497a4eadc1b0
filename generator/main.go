package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"git.solver4all.com/azaryc2s/mtdlb"
	"git.solver4all.com/azaryc2s/mtdlb/logging"
	"github.com/samber/lo"
	"github.com/urfave/cli"
)

type genOptions struct {
	models   int
	tasksMin int
	tasksMax int
	timeMin  int
	timeMax  int
	orProb   float64
	andProb  float64
	bothProb float64
}

func main() {
	app := cli.NewApp()
	app.Name = "mtdlb-generator"
	app.Usage = "generate random mixed-model disassembly line catalogs"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "name", Value: "zarychta", Usage: "Name prefix for the instances"},
		cli.StringFlag{Name: "outputDir", Value: ".", Usage: "Output directory"},
		cli.IntFlag{Name: "count", Value: 1, Usage: "Number of instances"},
		cli.IntFlag{Name: "models", Value: 4, Usage: "Number of product models per catalog"},
		cli.IntFlag{Name: "tasksMin", Value: 3, Usage: "Lowest number of tasks per model"},
		cli.IntFlag{Name: "tasksMax", Value: 8, Usage: "Highest number of tasks per model"},
		cli.IntFlag{Name: "timeMin", Value: 1, Usage: "Lowest processing time"},
		cli.IntFlag{Name: "timeMax", Value: 9, Usage: "Highest processing time"},
		cli.Float64Flag{Name: "orProb", Value: 0.3, Usage: "Probability that a junction offers two alternative tasks"},
		cli.Float64Flag{Name: "andProb", Value: 0.2, Usage: "Probability that a task releases two parallel tasks"},
		cli.Float64Flag{Name: "bothProb", Value: 0.5, Usage: "Probability that a task can be done from both sides"},
		cli.Float64Flag{Name: "cycle", Usage: "Cycle time. Twice the highest processing time when 0"},
		cli.IntFlag{Name: "stations", Usage: "Number of stations. The task count of the largest model when 0"},
		cli.Int64Flag{Name: "seed", Usage: "Random seed. Current time when 0"},
	}
	app.Action = generate
	if err := app.Run(os.Args); err != nil {
		logging.Log(1, "%s", err.Error())
		os.Exit(1)
	}
}

func generate(c *cli.Context) error {
	logging.InitLoggers(2)
	opts := genOptions{
		models:   c.Int("models"),
		tasksMin: c.Int("tasksMin"),
		tasksMax: c.Int("tasksMax"),
		timeMin:  c.Int("timeMin"),
		timeMax:  c.Int("timeMax"),
		orProb:   c.Float64("orProb"),
		andProb:  c.Float64("andProb"),
		bothProb: c.Float64("bothProb"),
	}
	if opts.models < 1 || opts.tasksMin < 1 || opts.tasksMax < opts.tasksMin || opts.timeMin < 0 || opts.timeMax < opts.timeMin {
		return fmt.Errorf("inconsistent generator ranges: %+v", opts)
	}
	seed := c.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	for l := 0; l < c.Int("count"); l++ {
		inst := mtdlb.MTDLBInstance{
			Name:    fmt.Sprintf("%s_%d_%d", c.String("name"), opts.models, l),
			Comment: fmt.Sprintf("Randomly generated MTDLB-Instance (seed %d)", seed),
			Type:    "MTDLB",
		}
		for m := 1; m <= opts.models; m++ {
			inst.Models = append(inst.Models, randomModel(rng, m, opts))
		}
		inst.CycleTime = c.Float64("cycle")
		if inst.CycleTime <= 0 {
			inst.CycleTime = 2 * float64(opts.timeMax)
		}
		maxT := lo.Max(lo.FlatMap(inst.Models, func(pm mtdlb.ProductModel, _ int) []float64 { return lo.Values(pm.Times) }))
		if inst.CycleTime < maxT {
			return fmt.Errorf("cycle time %g is below the longest task %g", inst.CycleTime, maxT)
		}
		inst.StationCount = c.Int("stations")
		if inst.StationCount <= 0 {
			inst.StationCount = lo.Max(lo.Map(inst.Models, func(pm mtdlb.ProductModel, _ int) int { return pm.NormalCount }))
		}
		if err := inst.Validate(); err != nil {
			return fmt.Errorf("generated %s: %w", inst.Name, err)
		}

		jsonInst, err := json.MarshalIndent(inst, "", "\t")
		if err != nil {
			return err
		}
		fileName := filepath.Join(c.String("outputDir"), inst.Name+".json")
		if err = os.WriteFile(fileName, []byte(mtdlb.SanitizeJsonArrayLineBreaks(string(jsonInst))), 0644); err != nil {
			return err
		}
		logging.Log(2, "Wrote %s", fileName)
	}
	return nil
}

// randomModel grows a disassembly graph from the source. Every junction either
// follows the current group with one task, offers two alternatives, or, behind
// a single task, releases two parallel tasks. Alternatives are only ever joined
// again by a single-successor junction, so the selection flow stays at one.
func randomModel(rng *rand.Rand, id int, opts genOptions) mtdlb.ProductModel {
	n := opts.tasksMin + rng.Intn(opts.tasksMax-opts.tasksMin+1)
	pm := mtdlb.ProductModel{
		ID:    id,
		Name:  fmt.Sprintf("MODEL-%02d", id),
		Times: make(map[int]float64),
		Pre:   make(map[int][]int),
		Suc:   make(map[int][]int),
		Theta: make(map[int][]int),
	}
	next := 1
	newTask := func() int {
		i := next
		next++
		pm.Times[i] = float64(opts.timeMin + rng.Intn(opts.timeMax-opts.timeMin+1))
		switch {
		case rng.Float64() < opts.bothProb:
			pm.Theta[i] = []int{mtdlb.SIDE_LEFT, mtdlb.SIDE_RIGHT}
		case rng.Intn(2) == 0:
			pm.Theta[i] = []int{mtdlb.SIDE_LEFT}
		default:
			pm.Theta[i] = []int{mtdlb.SIDE_RIGHT}
		}
		return i
	}

	var last []int
	if n >= 2 && rng.Float64() < opts.orProb {
		last = []int{newTask(), newTask()}
	} else {
		last = []int{newTask()}
	}
	pm.Suc[0] = last
	k := 1
	for next <= n {
		left := n - next + 1
		r := rng.Float64()
		switch {
		case left >= 2 && len(last) == 1 && r < opts.andProb:
			a, b := newTask(), newTask()
			pm.Pre[k], pm.Suc[k] = []int{last[0]}, []int{a}
			pm.Pre[k+1], pm.Suc[k+1] = []int{last[0]}, []int{b}
			k += 2
			last = []int{a}
		case left >= 2 && r < opts.andProb+opts.orProb:
			a, b := newTask(), newTask()
			pm.Pre[k], pm.Suc[k] = last, []int{a, b}
			k++
			last = []int{a, b}
		default:
			i := newTask()
			pm.Pre[k], pm.Suc[k] = last, []int{i}
			k++
			last = []int{i}
		}
	}
	pm.NormalCount = next - 1
	pm.ArtificialCount = k
	pm.Comment = fmt.Sprintf("%d tasks, %d junctions, total time %s", pm.NormalCount, k-1, formatTime(pm.TotalTime()))
	return pm
}

func formatTime(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.2f", v)
}
