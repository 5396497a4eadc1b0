package milp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

const lpTermsPerLine = 6

// LPFileName replaces the extension of an instance path with ".lp".
func LPFileName(path string) string {
	name := strings.TrimSuffix(path, filepath.Ext(path)) + ".lp"
	if name == path {
		return path + ".lp"
	}
	return name
}

// WriteLP writes p in CPLEX LP format, the format Gurobi's model.Write produces for ".lp" files.
func WriteLP(w io.Writer, p *Problem) error {
	if err := p.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ Problem: %s\n", p.Name)
	fmt.Fprintf(bw, "Minimize\n obj:")
	var ind []int32
	var val []float64
	for i, c := range p.Obj {
		if c != 0 {
			ind = append(ind, int32(i))
			val = append(val, c)
		}
	}
	writeTerms(bw, p, ind, val)
	fmt.Fprintf(bw, "\nSubject To\n")
	for r, c := range p.Constrs {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("R%d", r)
		}
		fmt.Fprintf(bw, " %s:", rowLabel(name))
		writeTerms(bw, p, c.Ind, c.Val)
		op := "="
		if c.Sense == LESS_EQUAL {
			op = "<="
		} else if c.Sense == GREATER_EQUAL {
			op = ">="
		}
		fmt.Fprintf(bw, " %s %s\n", op, formatNum(c.Rhs))
	}

	fmt.Fprintf(bw, "Bounds\n")
	for i := range p.Obj {
		lb, ub := p.LB[i], p.UB[i]
		if p.ColTypes[i] == BINARY && lb == 0 && ub == 1 {
			continue
		}
		if lb == ub {
			fmt.Fprintf(bw, " %s = %s\n", p.ColNames[i], formatNum(lb))
			continue
		}
		if math.IsInf(ub, 1) {
			if lb != 0 {
				fmt.Fprintf(bw, " %s >= %s\n", p.ColNames[i], formatNum(lb))
			}
			continue
		}
		fmt.Fprintf(bw, " %s <= %s <= %s\n", formatNum(lb), p.ColNames[i], formatNum(ub))
	}

	writeKind(bw, p, BINARY, "Binaries")
	writeKind(bw, p, INTEGER, "Generals")
	fmt.Fprintf(bw, "End\n")
	return bw.Flush()
}

func writeTerms(bw *bufio.Writer, p *Problem, ind []int32, val []float64) {
	if len(ind) == 0 {
		if len(p.ColNames) > 0 {
			fmt.Fprintf(bw, " 0 %s", p.ColNames[0])
		}
		return
	}
	for k, j := range ind {
		if k > 0 && k%lpTermsPerLine == 0 {
			fmt.Fprintf(bw, "\n  ")
		}
		v := val[k]
		sign := "+"
		if v < 0 {
			sign = "-"
			v = -v
		}
		if k == 0 && sign == "+" {
			fmt.Fprintf(bw, " %s %s", formatNum(v), p.ColNames[j])
		} else {
			fmt.Fprintf(bw, " %s %s %s", sign, formatNum(v), p.ColNames[j])
		}
	}
}

func writeKind(bw *bufio.Writer, p *Problem, kind int8, header string) {
	count := 0
	for i, t := range p.ColTypes {
		if t != kind {
			continue
		}
		if count == 0 {
			fmt.Fprintf(bw, "%s\n", header)
		}
		fmt.Fprintf(bw, " %s", p.ColNames[i])
		count++
		if count%lpTermsPerLine == 0 {
			fmt.Fprintf(bw, "\n")
		}
	}
	if count%lpTermsPerLine != 0 {
		fmt.Fprintf(bw, "\n")
	}
}

// rowLabel prefixes names LP readers would take for a number, such as "2_1".
func rowLabel(name string) string {
	if c := name[0]; c == '.' || (c >= '0' && c <= '9') {
		return "c" + name
	}
	return name
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
