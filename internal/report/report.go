// Package report aggregates probe results per username and exports them.
package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/mlftt/namecheck/internal/probe"
)

// Report collects one result per (username, platform) pair. Platforms keep
// the table's declaration order; usernames keep arrival order.
type Report struct {
	mu        sync.Mutex
	platforms []string
	order     []string
	results   map[string]map[string]probe.Result
	invalid   map[string]error
}

func New(platforms []string) *Report {
	return &Report{
		platforms: platforms,
		results:   make(map[string]map[string]probe.Result),
		invalid:   make(map[string]error),
	}
}

func (r *Report) Add(res probe.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	perPlatform, ok := r.results[res.Username]
	if !ok {
		perPlatform = make(map[string]probe.Result, len(r.platforms))
		r.results[res.Username] = perPlatform
		r.order = append(r.order, res.Username)
	}
	perPlatform[res.Platform] = res
}

// AddInvalid records a username that never produced probes.
func (r *Report) AddInvalid(username string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalid[username] = err
}

// Results returns the username's results in platform declaration order.
func (r *Report) Results(username string) []probe.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	perPlatform, ok := r.results[username]
	if !ok {
		return nil
	}

	out := make([]probe.Result, 0, len(perPlatform))
	for _, name := range r.platforms {
		if res, ok := perPlatform[name]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Verdicts flattens the report into username -> platform -> verdict.
func (r *Report) Verdicts() map[string]map[string]probe.Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]map[string]probe.Verdict, len(r.results))
	for username, perPlatform := range r.results {
		m := make(map[string]probe.Verdict, len(perPlatform))
		for name, res := range perPlatform {
			m[name] = res.Verdict
		}
		out[username] = m
	}
	return out
}

// Invalid returns the validation error for a rejected username, if any.
func (r *Report) Invalid(username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invalid[username]
}

// Len is the number of collected probe results.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, perPlatform := range r.results {
		n += len(perPlatform)
	}
	return n
}

// WriteCSV writes one row per probe: username, platform, verdict.
func (r *Report) WriteCSV(out io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"username", "platform", "verdict"}); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	for _, username := range r.order {
		perPlatform := r.results[username]
		for _, name := range r.platforms {
			res, ok := perPlatform[name]
			if !ok {
				continue
			}
			if err := w.Write([]string{username, name, string(res.Verdict)}); err != nil {
				return errors.Wrap(err, "write csv row")
			}
		}
	}

	w.Flush()
	return errors.Wrap(w.Error(), "flush csv")
}

// WriteJSON writes the username -> platform -> verdict mapping.
func (r *Report) WriteJSON(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(r.Verdicts()), "encode json")
}

// ExportCSV writes the CSV to path. A failed export leaves the collected
// results untouched.
func (r *Report) ExportCSV(path string) error {
	return r.exportTo(path, r.WriteCSV)
}

// ExportJSON writes the JSON mapping to path.
func (r *Report) ExportJSON(path string) error {
	return r.exportTo(path, r.WriteJSON)
}

func (r *Report) exportTo(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %q", path)
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}

	return errors.Wrapf(f.Close(), "close %q", path)
}
