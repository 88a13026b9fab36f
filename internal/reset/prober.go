package reset

import (
	"context"
	"strconv"
	"time"

	"wakeprime/internal/audit"
	"wakeprime/internal/runner"
)

// Estimate is a reset prediction. Fallback marks estimates synthesized
// after the monitor never produced a parseable answer.
type Estimate struct {
	At       time.Time `json:"at"`
	Fallback bool      `json:"fallback,omitempty"`
}

// Prober shells out to the monitor CLI and retries with multiplicative
// backoff until its output parses or the backoff budget is spent.
type Prober struct {
	Runner  runner.Runner
	Audit   *audit.Logger
	Command string
	Args    []string
	Timeout time.Duration

	BackoffStart  time.Duration
	BackoffFactor float64
	BackoffMax    time.Duration
	Fallback      time.Duration

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

const snippetLimit = 1200

// Next probes until a reset time is parsed. Once the next backoff sleep
// would exceed BackoffMax it gives up and returns now+Fallback flagged as
// a fallback estimate. Only context cancellation produces an error.
func (p *Prober) Next(ctx context.Context) (Estimate, error) {
	wait := p.BackoffStart
	for {
		if err := ctx.Err(); err != nil {
			return Estimate{}, err
		}
		out := p.probe(ctx)
		now := p.now()
		parsed, ok := Parse(out.Combined(), now)

		fields := map[string]string{
			"rc":      strconv.Itoa(out.Code),
			"snippet": tail(StripANSI(out.Combined()), snippetLimit),
		}
		if ok {
			fields["parsed"] = parsed.Format(time.RFC3339)
		}
		p.Audit.Op("monitor_parse", fields)

		if ok {
			return Estimate{At: parsed}, nil
		}
		if wait > p.BackoffMax {
			return Estimate{At: now.Add(p.Fallback), Fallback: true}, nil
		}
		if err := p.sleep(ctx, wait); err != nil {
			return Estimate{}, err
		}
		wait = time.Duration(float64(wait) * p.factor())
	}
}

func (p *Prober) probe(ctx context.Context) runner.Output {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	out, err := p.Runner.Run(ctx, p.Command, p.Args...)
	if err != nil && out.Stderr == "" {
		out.Stderr = err.Error()
	}
	return out
}

func (p *Prober) factor() float64 {
	if p.BackoffFactor <= 1 {
		return 1.7
	}
	return p.BackoffFactor
}

func (p *Prober) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Prober) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
