package mtdlb

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
)

func (model *MTDLBModel) FIndex(j int) int {
	return model.FStart + j - 1
}

func (model *MTDLBModel) GIndex(j int) int {
	return model.GStart + j - 1
}

func (model *MTDLBModel) UIndex(j, s int) int {
	return model.UStart + (j-1)*SIDE_COUNT + s - 1
}

// ZIndex returns the column of Z[m,i], or -1 when (m,i) is not in MONO.
func (model *MTDLBModel) ZIndex(m, i int) int {
	pos, ok := model.zIndex[TaskKey{m, i}]
	if !ok {
		return -1
	}
	return model.ZStart + pos
}

func (model *MTDLBModel) GammaIndex(m, j, s int) int {
	return model.GammaStart + (model.modelPos[m]*model.Stations+j-1)*SIDE_COUNT + s - 1
}

func (model *MTDLBModel) XIndex(m, i, j, s int) int {
	pos := model.zIndex[TaskKey{m, i}]
	return model.XStart + (pos*model.Stations+j-1)*SIDE_COUNT + s - 1
}

// DeltaIndex returns the column of DELTA[m,i,h], or -1 when (m,i,h) is not in MONONO.
func (model *MTDLBModel) DeltaIndex(m, i, h int) int {
	pos, ok := model.deltaIndex[PairKey{m, i, h}]
	if !ok {
		return -1
	}
	return model.DeltaStart + pos
}

func (model *MTDLBModel) TFIndex(m, i int) int {
	return model.TFStart + model.zIndex[TaskKey{m, i}]
}

// rowBuilder accumulates a linear expression, merging repeated columns.
type rowBuilder struct {
	ind []int32
	val []float64
	pos map[int32]int
}

func newRow() *rowBuilder {
	return &rowBuilder{pos: make(map[int32]int)}
}

func (r *rowBuilder) add(col int, coef float64) *rowBuilder {
	c := int32(col)
	if k, ok := r.pos[c]; ok {
		r.val[k] += coef
		return r
	}
	r.pos[c] = len(r.ind)
	r.ind = append(r.ind, c)
	r.val = append(r.val, coef)
	return r
}

func rowString(names []string, ind []int32, val []float64, op string, rhs float64) string {
	var sb strings.Builder
	for k, j := range ind {
		if k > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%g*%s", val[k], names[j])
	}
	fmt.Fprintf(&sb, " %s %g", op, rhs)
	return sb.String()
}

// timeResolution is the smallest positive processing time or difference of two
// processing times, the finest step by which the total selected time can change
// through a single swap. Zero when all times are equal to zero.
func timeResolution(times []float64) float64 {
	res := math.Inf(1)
	sorted := lo.Uniq(times)
	sort.Float64s(sorted)
	for k, t := range sorted {
		if t > 0 && t < res {
			res = t
		}
		if k > 0 && t-sorted[k-1] > 0 && t-sorted[k-1] < res {
			res = t - sorted[k-1]
		}
	}
	if math.IsInf(res, 1) {
		return 0
	}
	return res
}

func SanitizeJsonArrayLineBreaks(json string) string {
	res := fmt.Sprintf("%s", json)
	var numbers = regexp.MustCompile(`\s*([-]?[0-9]+(\.[0-9]+)?),\s+([-]?[0-9]+(\.[0-9]+)?)(,)?`)
	var brackets = regexp.MustCompile(`\[(([-]?[0-9]+(\.[0-9]+)?,)+[-]?[0-9]+(\.[0-9]+)?)\s+\](,?)(\s+)`)
	for numbers.MatchString(res) {
		res = numbers.ReplaceAllString(res, "$1,$3$5")
	}
	for brackets.MatchString(res) {
		res = brackets.ReplaceAllString(res, "[$1]$5$6")
	}
	return res
}
