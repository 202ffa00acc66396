package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"labinsight/internal/port"
	"labinsight/pkg/logger"
)

// chainLink is one provider in a FallbackGenerator together with the time
// until which it is benched after a 429.
type chainLink struct {
	name string
	gen  port.TextGenerator

	mu           sync.Mutex
	blockedUntil time.Time
}

func (l *chainLink) benchedUntil(now time.Time) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blockedUntil, now.Before(l.blockedUntil)
}

func (l *chainLink) bench(until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until.After(l.blockedUntil) {
		l.blockedUntil = until
	}
}

// FallbackGenerator asks providers in order and returns the first answer. A
// provider that answers 429 is benched for its Retry-After period and skipped
// until then. It implements port.TextGenerator.
type FallbackGenerator struct {
	links []*chainLink
	now   func() time.Time
}

// NewFallbackGenerator creates a FallbackGenerator from an ordered list of
// generators and their provider names.
func NewFallbackGenerator(generators []port.TextGenerator, names []string) *FallbackGenerator {
	links := make([]*chainLink, len(generators))
	for i, g := range generators {
		links[i] = &chainLink{name: names[i], gen: g}
	}
	return &FallbackGenerator{links: links, now: time.Now}
}

func (f *FallbackGenerator) Generate(ctx context.Context, input port.GenerateInput) (*port.GenerateOutput, error) {
	log := logger.WithContext(ctx)
	now := f.now()

	// soonest is when the first benched provider becomes usable again.
	var soonest time.Time
	noteBench := func(until time.Time) {
		if soonest.IsZero() || until.Before(soonest) {
			soonest = until
		}
	}

	var failures []error
	onlyRateLimits := true

	for _, link := range f.links {
		if until, benched := link.benchedUntil(now); benched {
			log.Warn("provider benched, skipping", "provider", link.name, "until", until.Format(time.RFC3339))
			noteBench(until)
			continue
		}

		out, err := link.gen.Generate(ctx, input)
		if err == nil {
			return out, nil
		}
		log.Warn("provider failed", "provider", link.name, "error", err)

		// Every later provider would see the same cancelled or expired context.
		if ctx.Err() != nil {
			return nil, err
		}

		failures = append(failures, err)
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			until := now.Add(rlErr.RetryAfter)
			link.bench(until)
			noteBench(until)
			continue
		}
		onlyRateLimits = false
	}

	if onlyRateLimits {
		wait := soonest.Sub(f.now())
		if wait < time.Second {
			wait = time.Second
		}
		return nil, NewRateLimitError("all", errors.New("every provider is rate limited"), int(wait.Seconds()))
	}

	return nil, fmt.Errorf("all %d providers failed: %w", len(failures), failures[len(failures)-1])
}
