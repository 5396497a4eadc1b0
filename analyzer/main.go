package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"git.solver4all.com/azaryc2s/mtdlb"
	"git.solver4all.com/azaryc2s/mtdlb/logging"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "mtdlb-analyzer"
	app.Usage = "print a CSV summary of the solved instances in a directory"
	app.ArgsUsage = "<dir>"
	app.Action = analyze
	if err := app.Run(os.Args); err != nil {
		logging.Log(1, "%s", err.Error())
		os.Exit(1)
	}
}

func analyze(c *cli.Context) error {
	logging.InitLoggers(1)
	dirName := c.Args().First()
	if dirName == "" {
		return fmt.Errorf("no directory passed")
	}
	dir, err := os.ReadDir(dirName)
	if err != nil {
		return fmt.Errorf("couldn't open directory %s: %w", dirName, err)
	}
	fmt.Printf("Name,Solver,Optimal,Time,Obj,LBound,Gap,Stations,BothSides,OneSide,OpenedSides,Models,Tasks,Valid,Comment\n")
	for _, f := range dir {
		if !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		fileName := filepath.Join(dirName, f.Name())
		instStr, err := os.ReadFile(fileName)
		if err != nil {
			return fmt.Errorf("couldn't read %s: %w", f.Name(), err)
		}
		inst := mtdlb.MTDLBInstance{}
		if err = json.Unmarshal(instStr, &inst); err != nil {
			return fmt.Errorf("couldn't parse %s: %w", f.Name(), err)
		}
		if inst.Solution == nil {
			fmt.Printf("No solution for %s\n", inst.Name)
			continue
		}
		sol := *inst.Solution
		solValid, validComment := mtdlb.CheckSolutionValidity(&inst, &sol)
		if !solValid {
			sol.Comment = fmt.Sprintf("%s %s", sol.Comment, validComment)
		}
		gap := 0.0
		if sol.Obj != 0 {
			gap = math.Round(math.Abs(sol.Obj-sol.LBound)/math.Abs(sol.Obj)*1000) / 1000.0
		}
		tasks := 0
		for _, sched := range sol.Schedules {
			tasks += len(sched.Tasks)
		}
		fmt.Printf("%s,%s,%t,%s,%.6f,%.6f,%.4f,%d,%d,%d,%d,%v,%d,%t,%q\n", inst.Name, sol.Solver, sol.Optimal, sol.Time, sol.Obj, sol.LBound, gap,
			sol.BothSides+sol.OneSide, sol.BothSides, sol.OneSide, sol.OpenedSides, strings.Trim(fmt.Sprint(sol.Selected), "[]"), tasks, solValid, sol.Comment)
	}
	return nil
}
