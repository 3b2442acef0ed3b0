package output

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/gomer1002/lanprobe/pkg/probe"
)

// Printer renders structured CLI messages without relying on the logger.
type Printer struct {
	mu sync.Mutex
}

func NewPrinter() *Printer {
	return &Printer{}
}

func (p *Printer) Info(msg string, fields map[string]any) {
	p.printWith(pterm.Info, msg, fields)
}

func (p *Printer) Success(msg string, fields map[string]any) {
	p.printWith(pterm.Success, msg, fields)
}

func (p *Printer) Error(msg string, fields map[string]any) {
	p.printWith(pterm.Error, msg, fields)
}

func (p *Printer) Warn(msg string, fields map[string]any) {
	p.printWith(pterm.Warning, msg, fields)
}

// Banner prints the startup parameter block before a run begins.
func (p *Printer) Banner(title string, params map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.DefaultSection.Println(title)
	for _, k := range sortedKeys(params) {
		pterm.Printf("  %s: %v\n", k, params[k])
	}
	pterm.Println()
}

// Sample prints one rolling throughput line, mirroring the periodic
// report format: elapsed, instantaneous rate, running total.
func (p *Printer) Sample(s probe.Sample) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Printf("[%6.1fs] current rate: %6.2f Mbit/s (total: %.2f MB)\n",
		s.Elapsed.Seconds(),
		s.BitsPerSec/1e6,
		float64(s.TotalBytes)/(1024*1024))
}

// SessionResult prints the final throughput summary of a session.
func (p *Printer) SessionResult(title string, res probe.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := pterm.TableData{
		{"Metric", "Value"},
		{"Average rate", fmt.Sprintf("%.2f Mbit/s", res.Mbps())},
		{"Total received", fmt.Sprintf("%.2f MB", res.Megabytes())},
		{"Elapsed", formatDuration(res.Elapsed)},
	}

	pterm.DefaultSection.Println(title)
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		pterm.Printf("average rate: %.2f Mbit/s over %s (%.2f MB)\n",
			res.Mbps(), formatDuration(res.Elapsed), res.Megabytes())
		return
	}
	pterm.Println(table)
}

// Latency prints a latency measurement in milliseconds.
func (p *Printer) Latency(label string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Printf("%s: %.1f ms\n", label, float64(d)/float64(time.Millisecond))
}

func (p *Printer) printWith(logger pterm.PrefixPrinter, msg string, fields map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(fields) == 0 {
		logger.Println(msg)
		return
	}

	logger.Println(msg)
	for _, k := range sortedKeys(fields) {
		pterm.Printf("  %s: %v\n", k, fields[k])
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
