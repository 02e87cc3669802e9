package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/zkplatoon/platoon/internal/recorder/memory"
)

// inspectExport prints a short summary of an exported run.
func inspectExport(w io.Writer, path string) error {
	exp, err := memory.ReadExport(path)
	if err != nil {
		return fmt.Errorf("failed to read export %s: %w", path, err)
	}

	fmt.Fprintf(w, "run %d started %s\n", exp.RunID, exp.StartTime.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "ticks=%d interval=%dms seed=%d\n", exp.EndTick, exp.TickIntervalMs, exp.Seed)

	for _, t := range exp.Trucks {
		var first, last int64
		if n := len(t.Positions); n > 0 {
			first, last = t.Positions[0], t.Positions[n-1]
		}
		labels := make([]string, 0, len(t.Labels))
		for _, l := range t.Labels {
			labels = append(labels, l.Label)
		}
		line := fmt.Sprintf("  %s pos %d..%d labels %s", t.Name, first, last, strings.Join(labels, ","))
		if t.FaultTick != nil {
			line += fmt.Sprintf(" faulty@%d", *t.FaultTick)
		}
		fmt.Fprintln(w, line)
	}

	injected := 0
	for _, f := range exp.Faults {
		if f.Injected {
			injected++
		}
	}
	fmt.Fprintf(w, "faults=%d (injected %d) shuffles=%d\n", len(exp.Faults), injected, len(exp.Shuffles))
	if n := len(exp.Shuffles); n > 0 {
		fmt.Fprintf(w, "last digest %s\n", exp.Shuffles[n-1].Digest)
	}
	return nil
}
