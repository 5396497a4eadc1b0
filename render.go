package mtdlb

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

func sideName(s int) string {
	if s == SIDE_LEFT {
		return "L"
	}
	return "R"
}

// Render prints a solution in the console layout of the line balancing report.
func Render(w io.Writer, sol *MTDLBSolution) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "\nSolution Results (%s)\n\n", sol.Status)
	fmt.Fprintf(tw, "Time = %.4f second\n", sol.Seconds)
	fmt.Fprintf(tw, "Total number of stations opened from both sides\t:\t%d\n", sol.BothSides)
	fmt.Fprintf(tw, "Total number of stations opened from only one side\t:\t%d\n", sol.OneSide)
	fmt.Fprintf(tw, "Total number of stations opened\t:\t%d\n", sol.OpenedSides)
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, sched := range sol.Schedules {
		fmt.Fprintf(w, "#### MODEL-%02d %s ####\n", sched.Model, sched.Name)
		tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintf(tw, "(m, i)\t(j,s)\tProcessing Time\tStarting Time\tEnding Time\n")
		for _, rec := range sched.Tasks {
			assigned := make([]string, len(rec.Assigned))
			for k, a := range rec.Assigned {
				assigned[k] = fmt.Sprintf("(%d,%s)", a.Station, sideName(a.Side))
			}
			fmt.Fprintf(tw, "(%d, %d)\t[%s]\t%g\t%g\t%g\n", rec.Model, rec.Task, strings.Join(assigned, " "), rec.ProcessingTime, rec.Start, rec.Finish)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
