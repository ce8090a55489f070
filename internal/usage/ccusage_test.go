package usage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRunner answers ccusage subcommands from canned output.
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))

	key := ""
	for _, arg := range args {
		if arg == "daily" || arg == "session" || arg == "--version" {
			key = arg
			break
		}
	}
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return []byte(f.outputs[key]), nil
}

func (f *fakeRunner) callCount(sub string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		for _, arg := range call {
			if arg == sub {
				n++
			}
		}
	}
	return n
}

func TestClientDailyArguments(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"daily": `{"daily":[{"date":"2026-10-18","inputTokens":10,"outputTokens":20,"totalTokens":30,"totalCost":1.5,"modelsUsed":["claude-sonnet-4"]}]}`,
	}}
	client := NewClient("npx ccusage", time.Second, runner)

	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	daily, err := client.Daily(context.Background(), since, until)
	if err != nil {
		t.Fatalf("Daily failed: %v", err)
	}
	if len(daily) != 1 || daily[0].TotalCost != 1.5 || daily[0].ModelsUsed[0] != "claude-sonnet-4" {
		t.Errorf("Unexpected daily data %+v", daily)
	}

	want := []string{"npx", "ccusage", "daily", "--json", "--since", "20261001", "--until", "20261019"}
	if !reflect.DeepEqual(runner.calls[0], want) {
		t.Errorf("Expected %v, got %v", want, runner.calls[0])
	}
}

func TestClientSessions(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"session": `{"sessions":[{"sessionId":"-Users-alice-code-shop","totalCost":2,"lastActivity":"2026-10-18"}]}`,
	}}
	client := NewClient("ccusage", 0, runner)

	sessions, err := client.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != "-Users-alice-code-shop" {
		t.Errorf("Unexpected sessions %+v", sessions)
	}
	if want := []string{"ccusage", "session", "--json", "--order", "desc"}; !reflect.DeepEqual(runner.calls[0], want) {
		t.Errorf("Expected %v, got %v", want, runner.calls[0])
	}
}

func TestClientErrors(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string]string{"session": "not json"},
		errs:    map[string]error{"daily": errors.New("exit status 1")},
	}
	client := NewClient("npx ccusage", time.Second, runner)

	if _, err := client.Daily(context.Background(), time.Time{}, time.Time{}); err == nil || !strings.Contains(err.Error(), "exit status 1") {
		t.Errorf("Expected wrapped runner error, got %v", err)
	}
	if _, err := client.Sessions(context.Background()); err == nil {
		t.Error("Expected parse error")
	}
	if _, err := NewClient("", time.Second, runner).Version(context.Background()); err == nil {
		t.Error("Expected error for empty command")
	}
}

func TestClientAvailableIsCached(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"--version": "16.2.0\n"}}
	client := NewClient("npx ccusage", time.Second, runner)

	for i := 0; i < 3; i++ {
		if !client.Available(context.Background()) {
			t.Fatal("Expected ccusage to be available")
		}
	}
	if n := runner.callCount("--version"); n != 1 {
		t.Errorf("Expected one version probe, got %d", n)
	}

	down := NewClient("npx ccusage", time.Second, &fakeRunner{errs: map[string]error{"--version": errors.New("not found")}})
	if down.Available(context.Background()) {
		t.Error("Expected ccusage to be unavailable")
	}
}

// contextRunner fails once its context is done, like a killed process.
type contextRunner struct {
	mu   sync.Mutex
	fail bool
}

func (r *contextRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errors.New("npx: download timed out")
	}
	return []byte("16.2.0\n"), nil
}

func TestClientAvailableIgnoresCallerCancellation(t *testing.T) {
	client := NewClient("npx ccusage", time.Second, &contextRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !client.Available(ctx) {
		t.Error("Expected the probe to run despite a cancelled request")
	}
	if !client.Available(context.Background()) {
		t.Error("Expected ccusage to stay available for a later request")
	}
}

func TestClientUnavailableIsRetriedSooner(t *testing.T) {
	runner := &contextRunner{fail: true}
	client := NewClient("npx ccusage", time.Second, runner)

	if client.Available(context.Background()) {
		t.Fatal("Expected ccusage to be unavailable")
	}

	runner.mu.Lock()
	runner.fail = false
	runner.mu.Unlock()

	if client.Available(context.Background()) {
		t.Error("Expected the failed probe to be cached briefly")
	}

	client.mu.Lock()
	client.checkedAt = time.Now().Add(-unavailableTTL - time.Second)
	client.mu.Unlock()
	if !client.Available(context.Background()) {
		t.Error("Expected a fresh probe once the failure expired")
	}

	runner.mu.Lock()
	runner.fail = true
	runner.mu.Unlock()
	client.mu.Lock()
	client.checkedAt = time.Now().Add(-unavailableTTL - time.Second)
	client.mu.Unlock()
	if !client.Available(context.Background()) {
		t.Error("Expected a successful probe to be cached for longer")
	}
}
