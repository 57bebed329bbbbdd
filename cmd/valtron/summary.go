package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"

	valtron "github.com/ewe-studios/go-valtron"
)

type summaryRow struct {
	label   string
	outcome string
	detail  string
	elapsed time.Duration
}

// runBatch submits every workload up front, then waits for the terminal
// statuses in submission order.
func runBatch(ctx context.Context, eng valtron.Engine[string, int], workloads []workload) ([]summaryRow, error) {
	type pending struct {
		w     workload
		obs   *valtron.Observation[string, int]
		start time.Time
	}
	waits := make([]pending, 0, len(workloads))
	for _, w := range workloads {
		obs, err := eng.SubmitSchedule(w.build())
		if err != nil {
			return nil, fmt.Errorf("submit %s: %w", w.name, err)
		}
		waits = append(waits, pending{w: w, obs: obs, start: time.Now()})
	}
	rows := make([]summaryRow, 0, len(waits))
	for _, p := range waits {
		st, err := p.obs.Wait(ctx)
		row := summaryRow{label: p.w.label, elapsed: time.Since(p.start)}
		switch {
		case err != nil:
			row.outcome = valtron.OutcomeCanceled
			row.detail = err.Error()
		case st.Kind() == valtron.KindReady:
			row.outcome = valtron.OutcomeReady
			row.detail = st.Value()
		default:
			row.outcome = valtron.OutcomeError
			row.detail = st.Err().Error()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func printSummary(rows []summaryRow, stats valtron.EngineStats, journal valtron.Journal) {
	polls := pollsByLabel(journal)
	color.New(color.Bold).Printf("%-16s  %-9s  %5s  %10s  %s\n", "WORKLOAD", "OUTCOME", "POLLS", "ELAPSED", "DETAIL")
	for _, row := range rows {
		paint := color.New(color.FgGreen)
		if row.outcome != valtron.OutcomeReady {
			paint = color.New(color.FgRed)
		}
		pollCell := "-"
		if n, ok := polls[row.label]; ok {
			pollCell = strconv.Itoa(n)
		}
		fmt.Printf("%-16s  %s  %5s  %10s  %s\n",
			row.label,
			paint.Sprintf("%-9s", row.outcome),
			pollCell,
			row.elapsed.Round(time.Millisecond),
			row.detail)
	}
	color.New(color.FgCyan).Printf("engine=%s submitted=%d retired=%d rejected=%d panics=%d\n",
		stats.Engine, stats.Submitted, stats.Retired, stats.Rejected, stats.Panics)
}

// pollsByLabel reads poll counts per label from the journal, when the
// config set one up.
func pollsByLabel(journal valtron.Journal) map[string]int {
	if journal == nil {
		return nil
	}
	recs, err := journal.List(context.Background(), valtron.JournalFilter{})
	if err != nil {
		return nil
	}
	polls := make(map[string]int, len(recs))
	for _, rec := range recs {
		polls[rec.Label] = rec.Polls
	}
	return polls
}
