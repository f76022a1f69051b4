package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mlftt/namecheck/internal/platform"
)

// Runner fans a batch of usernames out over the platform table with a
// bounded worker pool, pacing requests per platform.
type Runner struct {
	prober  *Prober
	workers int
	delay   time.Duration
}

func NewRunner(prober *Prober, workers int, delay time.Duration) *Runner {
	if workers <= 0 {
		workers = 4
	}
	if delay < 0 {
		delay = 0
	}
	return &Runner{
		prober:  prober,
		workers: workers,
		delay:   delay,
	}
}

type job struct {
	username string
	spec     platform.Spec
}

// Run probes every (username, platform) pair. Usernames that fail local
// validation are reported through OnInvalid and produce no probes; each
// remaining pair produces exactly one result. Results are delivered on a
// single goroutine, so hooks need no locking of their own.
func (r *Runner) Run(ctx context.Context, usernames []string, specs []platform.Spec, hooks Hooks) error {
	if hooks.OnResult == nil {
		return fmt.Errorf("OnResult hook is nil")
	}

	valid := make([]string, 0, len(usernames))
	for _, username := range usernames {
		if err := ValidateUsername(username); err != nil {
			if hooks.OnInvalid != nil {
				hooks.OnInvalid(username, err)
			}
			continue
		}
		valid = append(valid, username)
	}

	total := len(valid) * len(specs)
	if total == 0 {
		return nil
	}

	// One limiter per platform; the first request goes straight through,
	// consecutive ones to the same platform wait out the delay.
	limiters := make(map[string]*rate.Limiter, len(specs))
	if r.delay > 0 {
		for _, spec := range specs {
			if !spec.NoCheck {
				limiters[spec.Name] = rate.NewLimiter(rate.Every(r.delay), 1)
			}
		}
	}

	workers := min(r.workers, total)

	jobs := make(chan job)
	results := make(chan Result, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if lim := limiters[j.spec.Name]; lim != nil {
					if err := lim.Wait(ctx); err != nil {
						results <- Result{
							Username: j.username,
							Platform: j.spec.Name,
							Verdict:  VerdictUnknown,
							Reason:   ReasonCanceled,
							Err:      err,
						}
						continue
					}
				}
				results <- r.prober.Probe(ctx, j.username, j.spec)
			}
		}()
	}

	// Close results once all workers have drained.
	go func() {
		defer close(results)
		wg.Wait()
	}()

	go func() {
		defer close(jobs)
		for _, username := range valid {
			for _, spec := range specs {
				select {
				case <-ctx.Done():
					return
				case jobs <- job{username: username, spec: spec}:
				}
			}
		}
	}()

	for res := range results {
		hooks.OnResult(res)
	}

	return ctx.Err()
}
