// Package glp solves a milp.Problem with GLPK through lukpank/go-glpk.
//
// GLPK numbers rows and columns from 1 and ignores element 0 of the index and
// value arrays handed to SetMatRow.
package glp

import (
	"fmt"
	"math"

	"git.solver4all.com/azaryc2s/mtdlb/logging"
	"git.solver4all.com/azaryc2s/mtdlb/milp"
	"github.com/lukpank/go-glpk/glpk"
)

type Solver struct {
	presolve bool
}

func New(presolve bool) *Solver {
	return &Solver{presolve: presolve}
}

func (s *Solver) Name() string {
	return "GLPK"
}

func (s *Solver) Solve(p *milp.Problem) (milp.Result, error) {
	if err := p.Validate(); err != nil {
		return milp.Result{}, err
	}
	lp := glpk.New()
	defer lp.Delete()
	lp.SetProbName(p.Name)
	lp.SetObjDir(glpk.ObjDir(glpk.MIN))

	n := p.NumCols()
	lp.AddCols(n)
	for j := 0; j < n; j++ {
		col := j + 1
		lp.SetColName(col, p.ColNames[j])
		switch p.ColTypes[j] {
		case milp.BINARY:
			lp.SetColKind(col, glpk.VarType(glpk.BV))
		case milp.INTEGER:
			lp.SetColKind(col, glpk.VarType(glpk.IV))
		default:
			lp.SetColKind(col, glpk.VarType(glpk.CV))
		}
		lo, up := p.LB[j], p.UB[j]
		switch {
		case math.IsInf(up, 1):
			lp.SetColBnds(col, glpk.BndsType(glpk.LO), lo, 0)
		case lo == up:
			lp.SetColBnds(col, glpk.BndsType(glpk.FX), lo, up)
		default:
			lp.SetColBnds(col, glpk.BndsType(glpk.DB), lo, up)
		}
		lp.SetObjCoef(col, p.Obj[j])
	}

	if m := p.NumRows(); m > 0 {
		lp.AddRows(m)
	}
	for r, c := range p.Constrs {
		row := r + 1
		lp.SetRowName(row, c.Name)
		switch c.Sense {
		case milp.LESS_EQUAL:
			lp.SetRowBnds(row, glpk.BndsType(glpk.UP), 0, c.Rhs)
		case milp.GREATER_EQUAL:
			lp.SetRowBnds(row, glpk.BndsType(glpk.LO), c.Rhs, 0)
		default:
			lp.SetRowBnds(row, glpk.BndsType(glpk.FX), c.Rhs, c.Rhs)
		}
		ind := make([]int32, len(c.Ind)+1)
		val := make([]float64, len(c.Val)+1)
		for k, j := range c.Ind {
			ind[k+1] = j + 1
			val[k+1] = c.Val[k]
		}
		lp.SetMatRow(row, ind, val)
	}
	logging.Log(3, "GLPK problem %s loaded: %d columns, %d rows", p.Name, n, p.NumRows())

	smcp := glpk.NewSmcp()
	smcp.SetMsgLev(glpk.MsgLev(glpk.MSG_ERR))
	if err := lp.Simplex(smcp); err != nil {
		return milp.Result{Status: milp.StatusNumeric}, fmt.Errorf("%w: simplex: %v", milp.ErrNumerical, err)
	}
	switch lp.Status() {
	case glpk.NOFEAS:
		return milp.Result{Status: milp.StatusInfeasible}, nil
	case glpk.UNBND:
		return milp.Result{Status: milp.StatusUnbounded}, nil
	}

	iocp := glpk.NewIocp()
	iocp.SetPresolve(s.presolve)
	iocp.SetMsgLev(glpk.MsgLev(glpk.MSG_ERR))
	if err := lp.Intopt(iocp); err != nil {
		if lp.MipStatus() == glpk.NOFEAS {
			return milp.Result{Status: milp.StatusInfeasible}, nil
		}
		return milp.Result{Status: milp.StatusNumeric}, fmt.Errorf("%w: intopt: %v", milp.ErrNumerical, err)
	}

	res := milp.Result{}
	switch lp.MipStatus() {
	case glpk.OPT:
		res.Status = milp.StatusOptimal
	case glpk.FEAS:
		res.Status = milp.StatusFeasible
	case glpk.NOFEAS:
		res.Status = milp.StatusInfeasible
		return res, nil
	default:
		res.Status = milp.StatusUnknown
		return res, nil
	}
	res.Obj = lp.MipObjVal()
	res.Bound = res.Obj
	res.X = make([]float64, n)
	for j := 0; j < n; j++ {
		res.X[j] = lp.MipColVal(j + 1)
	}
	return res, nil
}
