package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mlftt/namecheck/internal/platform"
)

// scenarioServer answers by URL prefix: /taken/... is 200, /free/... is 404.
func scenarioServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		switch {
		case strings.HasPrefix(r.URL.Path, "/taken/"):
			w.WriteHeader(http.StatusOK)
		case strings.HasPrefix(r.URL.Path, "/free/"):
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func collectResults(t *testing.T, runner *Runner, usernames []string, specs []platform.Spec) ([]Result, map[string]error) {
	t.Helper()

	var results []Result
	invalid := make(map[string]error)

	err := runner.Run(context.Background(), usernames, specs, Hooks{
		OnResult:  func(res Result) { results = append(results, res) },
		OnInvalid: func(u string, err error) { invalid[u] = err },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return results, invalid
}

func TestRunBatchCardinality(t *testing.T) {
	srv := scenarioServer(t, nil)

	specs := []platform.Spec{
		{Name: "Twitter", URLTemplate: srv.URL + "/taken/tw/{}"},
		{Name: "Instagram", URLTemplate: srv.URL + "/free/ig/{}"},
		{Name: "Telegram", URLTemplate: srv.URL + "/taken/tg/{}"},
		{Name: "Discord", NoCheck: true},
	}
	usernames := []string{"alice_01", "bob_02"}

	prober := NewProber(testClient(t, 2*time.Second), Config{}, testLogger())
	runner := NewRunner(prober, 3, 0)

	results, invalid := collectResults(t, runner, usernames, specs)

	if len(invalid) != 0 {
		t.Fatalf("unexpected invalid usernames: %v", invalid)
	}
	if want := len(usernames) * len(specs); len(results) != want {
		t.Fatalf("got %d results; want %d", len(results), want)
	}

	seen := make(map[string]bool)
	for _, res := range results {
		key := res.Username + "/" + res.Platform
		if seen[key] {
			t.Errorf("duplicate result for %s", key)
		}
		seen[key] = true
	}

	for _, res := range results {
		if res.Platform == "Discord" && res.Verdict != VerdictUnknown {
			t.Errorf("Discord verdict = %q; want %q", res.Verdict, VerdictUnknown)
		}
	}
}

func TestRunScenario(t *testing.T) {
	srv := scenarioServer(t, nil)

	// Twitter 200, Instagram 404, Telegram 200, Snapchat 404.
	specs := []platform.Spec{
		{Name: "Twitter", URLTemplate: srv.URL + "/taken/tw/{}"},
		{Name: "Instagram", URLTemplate: srv.URL + "/free/ig/{}"},
		{Name: "Telegram", URLTemplate: srv.URL + "/taken/tg/{}"},
		{Name: "Snapchat", URLTemplate: srv.URL + "/free/sc/{}"},
	}

	prober := NewProber(testClient(t, 2*time.Second), Config{}, testLogger())
	runner := NewRunner(prober, 4, 0)

	results, _ := collectResults(t, runner, []string{"mlftt_test"}, specs)

	want := map[string]Verdict{
		"Twitter":   VerdictTaken,
		"Instagram": VerdictAvailable,
		"Telegram":  VerdictTaken,
		"Snapchat":  VerdictAvailable,
	}

	if len(results) != len(want) {
		t.Fatalf("got %d results; want %d", len(results), len(want))
	}
	for _, res := range results {
		if res.Username != "mlftt_test" {
			t.Errorf("unexpected username %q", res.Username)
		}
		if res.Verdict != want[res.Platform] {
			t.Errorf("%s verdict = %q; want %q", res.Platform, res.Verdict, want[res.Platform])
		}
	}
}

func TestRunRejectsInvalidUsernamesBeforeDispatch(t *testing.T) {
	var hits atomic.Int64
	srv := scenarioServer(t, &hits)

	specs := []platform.Spec{
		{Name: "Twitter", URLTemplate: srv.URL + "/taken/tw/{}"},
		{Name: "Instagram", URLTemplate: srv.URL + "/free/ig/{}"},
	}

	prober := NewProber(testClient(t, 2*time.Second), Config{}, testLogger())
	runner := NewRunner(prober, 2, 0)

	results, invalid := collectResults(t, runner, []string{"", "good_user", "bad user"}, specs)

	if len(invalid) != 2 {
		t.Fatalf("got %d invalid usernames; want 2 (%v)", len(invalid), invalid)
	}
	for username, err := range invalid {
		if !errors.Is(err, ErrInvalidUsername) {
			t.Errorf("invalid[%q] = %v; want ErrInvalidUsername chain", username, err)
		}
	}

	// Only the valid username produces probes, one per platform.
	if len(results) != len(specs) {
		t.Fatalf("got %d results; want %d", len(results), len(specs))
	}
	for _, res := range results {
		if res.Username != "good_user" {
			t.Errorf("unexpected probe for username %q", res.Username)
		}
	}
	if hits.Load() != int64(len(specs)) {
		t.Errorf("server saw %d request(s); want %d", hits.Load(), len(specs))
	}
}

func TestRunOneFailingPlatformDoesNotBlockOthers(t *testing.T) {
	srv := scenarioServer(t, nil)

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	specs := []platform.Spec{
		{Name: "Dead", URLTemplate: dead.URL + "/{}"},
		{Name: "Twitter", URLTemplate: srv.URL + "/taken/tw/{}"},
	}

	prober := NewProber(testClient(t, time.Second), Config{}, testLogger())
	runner := NewRunner(prober, 2, 0)

	results, _ := collectResults(t, runner, []string{"alice_01"}, specs)

	byPlatform := make(map[string]Result, len(results))
	for _, res := range results {
		byPlatform[res.Platform] = res
	}

	if res := byPlatform["Dead"]; res.Verdict != VerdictUnknown || res.Err == nil {
		t.Errorf("Dead = (%q, %v); want (unknown, error)", res.Verdict, res.Err)
	}
	if res := byPlatform["Twitter"]; res.Verdict != VerdictTaken {
		t.Errorf("Twitter verdict = %q; want %q", res.Verdict, VerdictTaken)
	}
}

func TestRunPacesSamePlatform(t *testing.T) {
	srv := scenarioServer(t, nil)

	specs := []platform.Spec{
		{Name: "Twitter", URLTemplate: srv.URL + "/taken/tw/{}"},
	}
	usernames := []string{"alice_01", "bob_02", "carol_03"}

	const delay = 40 * time.Millisecond

	prober := NewProber(testClient(t, 2*time.Second), Config{}, testLogger())
	runner := NewRunner(prober, len(usernames), delay)

	start := time.Now()
	results, _ := collectResults(t, runner, usernames, specs)
	elapsed := time.Since(start)

	if len(results) != len(usernames) {
		t.Fatalf("got %d results; want %d", len(results), len(usernames))
	}
	// First request is immediate, the next two wait out the delay.
	if minimum := 2 * delay; elapsed < minimum {
		t.Errorf("three same-platform probes finished in %v; want at least %v", elapsed, minimum)
	}
}

func TestRunCanceledContext(t *testing.T) {
	srv := scenarioServer(t, nil)

	specs := []platform.Spec{
		{Name: "Twitter", URLTemplate: srv.URL + "/taken/tw/{}"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := NewProber(testClient(t, time.Second), Config{}, testLogger())
	runner := NewRunner(prober, 2, 0)

	err := runner.Run(ctx, []string{"alice_01", "bob_02"}, specs, Hooks{
		OnResult: func(Result) {},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run with canceled ctx = %v; want context.Canceled", err)
	}
}

func TestRunRequiresOnResult(t *testing.T) {
	prober := NewProber(testClient(t, time.Second), Config{}, testLogger())
	runner := NewRunner(prober, 1, 0)

	if err := runner.Run(context.Background(), []string{"alice_01"}, nil, Hooks{}); err == nil {
		t.Errorf("Run without OnResult succeeded; want error")
	}
}
