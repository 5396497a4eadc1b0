/* Copyright 2021, Arkadiusz Zarychta, arkadiusz.zarychta@h-brs.de */
/* Copyright 2021, Gurobi Optimization, LLC */

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"git.solver4all.com/azaryc2s/mtdlb"
	"git.solver4all.com/azaryc2s/mtdlb/bnb"
	"git.solver4all.com/azaryc2s/mtdlb/glp"
	"git.solver4all.com/azaryc2s/mtdlb/grb"
	"git.solver4all.com/azaryc2s/mtdlb/logging"
	"git.solver4all.com/azaryc2s/mtdlb/milp"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "mtdlb-solver"
	app.Usage = "balance a mixed-model two-sided disassembly line"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "input, i", Value: "input.json", Usage: "Path to the input instance", EnvVar: "MTDLB_INPUT"},
		cli.StringFlag{Name: "output, o", Usage: "Path to the output file. By default the input file will be overwritten adding the solution", EnvVar: "MTDLB_OUTPUT"},
		cli.StringFlag{Name: "models, m", Usage: "Comma separated 0/1 selection flag per catalog model. Every model when empty", EnvVar: "MTDLB_MODELS"},
		cli.StringFlag{Name: "solver, s", Value: mtdlb.SOLVER_GUROBI, Usage: "MILP engine. Possible: {GUROBI, GLPK, BNB}", EnvVar: "MTDLB_SOLVER"},
		cli.Float64Flag{Name: "epsilon", Value: mtdlb.DEFAULT_EPSILON, Usage: "Weight separating the objective tiers", EnvVar: "MTDLB_EPSILON"},
		cli.Float64Flag{Name: "bigm", Usage: "Relaxation constant. Derived from the instance when 0", EnvVar: "MTDLB_BIGM"},
		cli.Float64Flag{Name: "bigm-safety", Value: mtdlb.DEFAULT_BIGM_SAFETY, Usage: "Factor on cycle time plus total processing time for the derived big-M", EnvVar: "MTDLB_BIGM_SAFETY"},
		cli.BoolFlag{Name: "left-shift", Usage: "Add a fourth objective tier packing finish times to their earliest values", EnvVar: "MTDLB_LEFT_SHIFT"},
		cli.BoolFlag{Name: "skip-weight-check", Usage: "Build the model even if epsilon does not preserve the tier order", EnvVar: "MTDLB_SKIP_WEIGHT_CHECK"},
		cli.Float64Flag{Name: "time-limit", Usage: "Time limit in seconds, 0 for none", EnvVar: "MTDLB_TIME_LIMIT"},
		cli.IntFlag{Name: "threads", Usage: "Gurobi threads, 0 for the solver default", EnvVar: "MTDLB_THREADS"},
		cli.BoolFlag{Name: "no-lp", Usage: "Do not write the model to '<input>.lp'", EnvVar: "MTDLB_NO_LP"},
		cli.IntFlag{Name: "log", Value: 2, Usage: "Level of the logging output. Higher value is more verbose. Range 1-4", EnvVar: "MTDLB_LOG"},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logging.Log(1, "%s", err.Error())
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logging.InitLoggers(c.Int("log"))
	inputF := c.String("input")

	hostStat, _ := host.Info()
	cpuStat, _ := cpu.Info()
	vmStat, _ := mem.VirtualMemory()
	sysInfo := mtdlb.SysInfo{}
	if hostStat != nil {
		sysInfo.Platform = hostStat.Platform
	}
	if len(cpuStat) > 0 {
		sysInfo.CPU = cpuStat[0].ModelName
	}
	if vmStat != nil {
		sysInfo.RAM = fmt.Sprintf("%d GB", vmStat.Total/1024/1024/1024)
	}

	solver, err := newSolver(c)
	if err != nil {
		return err
	}

	instStr, err := os.ReadFile(inputF)
	if err != nil {
		return fmt.Errorf("at %s: %w", inputF, err)
	}
	var pInst mtdlb.MTDLBInstance
	if err = json.Unmarshal(instStr, &pInst); err != nil {
		return fmt.Errorf("at %s: %w", inputF, err)
	}
	flags, err := mtdlb.ParseSelection(c.String("models"), len(pInst.Models))
	if err != nil {
		return err
	}
	selected, err := pInst.SelectModels(flags)
	if err != nil {
		return fmt.Errorf("at %s: %w", inputF, err)
	}

	cfg := mtdlb.Config{
		Epsilon:         c.Float64("epsilon"),
		BigM:            c.Float64("bigm"),
		BigMSafety:      c.Float64("bigm-safety"),
		LeftShift:       c.Bool("left-shift"),
		SkipWeightCheck: c.Bool("skip-weight-check"),
	}
	model, err := mtdlb.CreateMTDLBModel(&pInst, selected, cfg)
	if err != nil {
		return fmt.Errorf("at %s: %w", inputF, err)
	}

	if !c.Bool("no-lp") {
		// Write model to '<fileName>.lp'
		if err = writeLP(milp.LPFileName(inputF), model.Problem); err != nil {
			return fmt.Errorf("at %s: %w", inputF, err)
		}
	}

	sol, solveErr := mtdlb.SolveModel(&model, solver)
	sol.System = sysInfo
	sol.Comment = fmt.Sprintf("Solver-Settings: Solver=%s, Models=%v, Epsilon=%g, BigM=%g, LeftShift=%t, TimeLimit=%gs",
		sol.Solver, flags, model.Epsilon, model.BigM, cfg.LeftShift, c.Float64("time-limit"))
	if solveErr != nil {
		sol.Comment += fmt.Sprintf(". %s", solveErr.Error())
	}
	pInst.Solution = &sol
	if err = writeSolution(&pInst, inputF, c.String("output")); err != nil {
		return err
	}
	if solveErr != nil {
		return fmt.Errorf("model for %s: %w", inputF, solveErr)
	}

	if err = mtdlb.Render(os.Stdout, &sol); err != nil {
		return err
	}
	solValid, validComment := mtdlb.CheckSolutionValidity(&pInst, &sol)
	if !solValid {
		logging.Log(1, "%s", validComment)
	} else {
		logging.Log(1, "The computed solution is valid! ")
	}
	logging.Log(2, "Found a MTDLB-Solution with obj-Value of %.9g (%d stations)\n", sol.Obj, sol.BothSides+sol.OneSide)
	return nil
}

func newSolver(c *cli.Context) (milp.Solver, error) {
	switch strings.ToUpper(c.String("solver")) {
	case mtdlb.SOLVER_GUROBI:
		return grb.New(grb.Options{
			LogFile:   "mtdlb_gurobi.log",
			TimeLimit: c.Float64("time-limit"),
			Threads:   c.Int("threads"),
		}), nil
	case mtdlb.SOLVER_GLPK:
		if c.Float64("time-limit") > 0 {
			logging.Log(1, "GLPK runs without a time limit")
		}
		return glp.New(true), nil
	case mtdlb.SOLVER_BNB:
		var opts []bnb.Option
		if tl := c.Float64("time-limit"); tl > 0 {
			opts = append(opts, bnb.WithTimeLimit(time.Duration(tl*float64(time.Second))))
		}
		return bnb.New(opts...), nil
	}
	return nil, fmt.Errorf("unsupported solver: %s", c.String("solver"))
}

func writeLP(fileName string, p *milp.Problem) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	if err = milp.WriteLP(f, p); err != nil {
		f.Close()
		return err
	}
	logging.Log(2, "Wrote model to %s", fileName)
	return f.Close()
}

func writeSolution(pInst *mtdlb.MTDLBInstance, inputF, outputF string) error {
	jsonInst, err := json.MarshalIndent(pInst, "", "\t")
	if err != nil {
		return fmt.Errorf("at %s: %w", inputF, err)
	}
	jsonInst = []byte(mtdlb.SanitizeJsonArrayLineBreaks(string(jsonInst)))
	fileName := outputF
	if fileName == "" {
		fileName = inputF //overwrite the input file
	}
	if err = os.WriteFile(fileName, jsonInst, 0644); err != nil {
		return fmt.Errorf("at %s: %w", fileName, err)
	}
	return nil
}
