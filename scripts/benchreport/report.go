package main

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// strategies is the column order of the report.
var strategies = []string{"first-fit", "best-fit", "worst-fit"}

// Result is one parsed benchmark line.
type Result struct {
	Name        string
	Operation   string
	Strategy    string // empty for benchmarks not split by strategy
	Workload    string
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// Row holds one operation/workload pair with a result per strategy.
type Row struct {
	Operation string
	Workload  string
	ByStrat   map[string]Result
}

// Fastest returns the strategy with the lowest ns/op, or "" if the row has
// no strategy results.
func (r Row) Fastest() string {
	best, bestNs := "", 0.0
	for _, s := range strategies {
		res, ok := r.ByStrat[s]
		if !ok {
			continue
		}
		if best == "" || res.NsPerOp < bestNs {
			best, bestNs = s, res.NsPerOp
		}
	}
	return best
}

// BenchmarkAlloc/first-fit/small-8    10000    125.4 ns/op    0 B/op    0 allocs/op
var benchLine = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`,
)

var gomaxprocsSuffix = regexp.MustCompile(`-\d+$`)

func parseBenchmarks(scanner *bufio.Scanner) []Result {
	var results []Result
	for scanner.Scan() {
		m := benchLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		res := Result{Name: m[1]}
		res.Iterations, _ = strconv.Atoi(m[2])
		res.NsPerOp, _ = strconv.ParseFloat(m[3], 64)
		if m[4] != "" {
			res.BytesPerOp, _ = strconv.ParseInt(m[4], 10, 64)
		}
		if m[5] != "" {
			res.AllocsPerOp, _ = strconv.ParseInt(m[5], 10, 64)
		}

		name := gomaxprocsSuffix.ReplaceAllString(strings.TrimPrefix(m[1], "Benchmark"), "")
		parts := strings.Split(name, "/")
		res.Operation = parts[0]
		switch len(parts) {
		case 1:
		case 2:
			res.Strategy = parts[1]
		default:
			res.Strategy = parts[1]
			res.Workload = strings.Join(parts[2:], "/")
		}
		if !isStrategy(res.Strategy) {
			res.Workload = strings.Trim(res.Strategy+"/"+res.Workload, "/")
			res.Strategy = ""
		}
		results = append(results, res)
	}
	return results
}

func isStrategy(s string) bool {
	for _, name := range strategies {
		if s == name {
			return true
		}
	}
	return false
}

func groupRows(results []Result) []Row {
	type key struct{ op, workload string }
	idx := make(map[key]*Row)
	var order []key
	for _, res := range results {
		k := key{res.Operation, res.Workload}
		row, ok := idx[k]
		if !ok {
			row = &Row{Operation: res.Operation, Workload: res.Workload, ByStrat: map[string]Result{}}
			idx[k] = row
			order = append(order, k)
		}
		strat := res.Strategy
		if strat == "" {
			strat = "-"
		}
		row.ByStrat[strat] = res
	}

	rows := make([]Row, 0, len(order))
	for _, k := range order {
		rows = append(rows, *idx[k])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Operation != rows[j].Operation {
			return rows[i].Operation < rows[j].Operation
		}
		return rows[i].Workload < rows[j].Workload
	})
	return rows
}

func renderMarkdown(rows []Row, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Arena Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	wins := map[string]int{}
	for _, r := range rows {
		if f := r.Fastest(); f != "" {
			wins[f]++
		}
	}
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Rows**: %d\n", len(rows))
	for _, s := range strategies {
		fmt.Fprintf(&sb, "- %s fastest: %d\n", s, wins[s])
	}
	sb.WriteString("\n")

	sb.WriteString("## Results (ns/op)\n\n")
	sb.WriteString("| Operation | Workload |")
	for _, s := range strategies {
		fmt.Fprintf(&sb, " %s |", s)
	}
	sb.WriteString(" Memory | Allocs |\n")
	sb.WriteString("|-----------|----------|")
	for range strategies {
		sb.WriteString("------|")
	}
	sb.WriteString("--------|--------|\n")

	for _, r := range rows {
		workload := r.Workload
		if workload == "" {
			workload = "-"
		}
		fmt.Fprintf(&sb, "| %s | %s |", r.Operation, workload)

		fastest := r.Fastest()
		var mem, allocs int64
		for _, s := range strategies {
			res, ok := r.ByStrat[s]
			if !ok {
				sb.WriteString(" *N/A* |")
				continue
			}
			cell := formatNs(res.NsPerOp)
			if s == fastest {
				cell = "**" + cell + "**"
			}
			fmt.Fprintf(&sb, " %s |", cell)
			mem, allocs = max(mem, res.BytesPerOp), max(allocs, res.AllocsPerOp)
		}
		if res, ok := r.ByStrat["-"]; ok {
			mem, allocs = res.BytesPerOp, res.AllocsPerOp
		}
		fmt.Fprintf(&sb, " %s | %s |\n", humanize.IBytes(uint64(mem)), humanize.Comma(allocs))
	}

	sb.WriteString("\n## Notes\n\n")
	sb.WriteString("- Bold marks the fastest strategy in each row.\n")
	sb.WriteString("- Memory and Allocs show the worst case across strategies.\n")
	sb.WriteString("- Rows without a strategy column (e.g. Validate) report under *N/A*.\n")

	return sb.String()
}

func formatNs(n float64) string {
	switch {
	case n >= 1e6:
		return fmt.Sprintf("%.2fms", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.1fµs", n/1e3)
	}
	return fmt.Sprintf("%.1fns", n)
}
