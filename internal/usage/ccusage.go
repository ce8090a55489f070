package usage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ccusageDateFormat is the --since/--until argument format.
const ccusageDateFormat = "20060102"

// availabilityTTL caches a successful --version probe; unavailableTTL caches
// a failed one, so a slow first npx download is retried soon.
const (
	availabilityTTL = 5 * time.Minute
	unavailableTTL  = 30 * time.Second
)

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Client invokes the ccusage CLI.
type Client struct {
	command []string
	timeout time.Duration
	runner  Runner

	mu        sync.Mutex
	available bool
	checkedAt time.Time
}

// NewClient creates a Client for a command line such as "npx ccusage". A nil
// runner uses os/exec.
func NewClient(command string, timeout time.Duration, runner Runner) *Client {
	if runner == nil {
		runner = execRunner{}
	}
	return &Client{
		command: strings.Fields(command),
		timeout: timeout,
		runner:  runner,
	}
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	if len(c.command) == 0 {
		return nil, errors.New("ccusage command is empty")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	argv := append(append([]string{}, c.command[1:]...), args...)
	out, err := c.runner.Run(ctx, c.command[0], argv...)
	if err != nil {
		return nil, fmt.Errorf("ccusage %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// Version returns the ccusage version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Available reports whether ccusage can be run. The answer is cached briefly
// so every dashboard request does not pay for a probe. The probe is detached
// from ctx and bounded by the client timeout, so a cancelled request cannot
// mark ccusage unavailable for later ones.
func (c *Client) Available(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.checkedAt.IsZero() {
		ttl := availabilityTTL
		if !c.available {
			ttl = unavailableTTL
		}
		if time.Since(c.checkedAt) < ttl {
			return c.available
		}
	}

	version, err := c.Version(context.WithoutCancel(ctx))
	if err != nil {
		log.WithError(err).Warn("ccusage unavailable")
		if ctx.Err() != nil {
			// Leave the cache alone; the caller gave up, not ccusage.
			return false
		}
	} else {
		log.WithField("version", version).Debug("ccusage available")
	}
	c.available = err == nil
	c.checkedAt = time.Now()
	return c.available
}

// Daily returns per-day usage between since and until, inclusive. Zero times
// leave the range open.
func (c *Client) Daily(ctx context.Context, since, until time.Time) ([]Daily, error) {
	args := []string{"daily", "--json"}
	if !since.IsZero() {
		args = append(args, "--since", since.Format(ccusageDateFormat))
	}
	if !until.IsZero() {
		args = append(args, "--until", until.Format(ccusageDateFormat))
	}

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Daily []Daily `json:"daily"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse ccusage daily output: %w", err)
	}
	return payload.Daily, nil
}

// Sessions returns sessions ordered by most recent activity.
func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	out, err := c.run(ctx, "session", "--json", "--order", "desc")
	if err != nil {
		return nil, err
	}
	var payload struct {
		Sessions []Session `json:"sessions"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse ccusage session output: %w", err)
	}
	return payload.Sessions, nil
}
