package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/netsweep/pkg/sweep"
	"github.com/projectdiscovery/netsweep/pkg/version"
)

// Options controls how a scan outcome is rendered
type Options struct {
	JSON    bool
	NoColor bool
}

// Writer renders scan outcomes for the operator
type Writer struct {
	options Options
	au      *aurora.Aurora
}

// New creates a report writer
func New(options Options) *Writer {
	return &Writer{
		options: options,
		au:      aurora.New(aurora.WithColors(!options.NoColor)),
	}
}

// Write renders outcome to w. total is the wall-clock time of the whole
// operation, address lookup included.
func (r *Writer) Write(w io.Writer, outcome *sweep.Outcome, total time.Duration) error {
	if r.options.JSON {
		return r.writeJSON(w, outcome, total)
	}
	return r.writeText(w, outcome, total)
}

func (r *Writer) writeText(w io.Writer, outcome *sweep.Outcome, total time.Duration) error {
	if outcome.Empty() {
		_, err := fmt.Fprintln(w, "No other devices found on the network.")
		return err
	}

	if _, err := fmt.Fprintf(w, "%d devices found on the network. took %.2f ms\n", r.au.Bold(outcome.Len()), millis(total)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "List of connected devices:"); err != nil {
		return err
	}
	for _, result := range outcome.Results {
		if _, err := fmt.Fprintf(w, "- %s took %.2f ms\n", r.au.Green(result.Address), result.Latency); err != nil {
			return err
		}
	}
	return nil
}

type jsonReport struct {
	Tool      string         `json:"tool"`
	ID        string         `json:"id"`
	LocalIP   string         `json:"local_ip"`
	Subnet    string         `json:"subnet"`
	Probed    int            `json:"probed"`
	Count     int            `json:"count"`
	Timestamp time.Time      `json:"timestamp"`
	ElapsedMs float64        `json:"elapsed_ms"`
	TotalMs   float64        `json:"total_ms"`
	Devices   []sweep.Result `json:"devices"`
}

func (r *Writer) writeJSON(w io.Writer, outcome *sweep.Outcome, total time.Duration) error {
	devices := outcome.Results
	if devices == nil {
		devices = []sweep.Result{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonReport{
		Tool:      version.UserAgent(),
		ID:        outcome.ID,
		LocalIP:   outcome.LocalAddress,
		Subnet:    outcome.Subnet,
		Probed:    outcome.Probed,
		Count:     outcome.Len(),
		Timestamp: outcome.Started,
		ElapsedMs: millis(outcome.Elapsed),
		TotalMs:   millis(total),
		Devices:   devices,
	})
}

// millis converts d to milliseconds with two decimals
func millis(d time.Duration) float64 {
	return math.Round(float64(d)/float64(time.Millisecond)*100) / 100
}
