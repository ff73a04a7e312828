package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"MarketThermo/internal/domain/repository"
	xhttp "MarketThermo/pkg/http"
	applogger "MarketThermo/pkg/logger"
	"MarketThermo/pkg/metrics"
)

const placeholder = "{url}"

// Relay is a public proxy that fetches a target URL on our behalf.
type Relay struct {
	Name     string
	Template string
}

// Wrap substitutes the escaped target into the relay template.
func (r Relay) Wrap(target string) string {
	return strings.ReplaceAll(r.Template, placeholder, url.QueryEscape(target))
}

// CacheBust appends a _t=<unix ms> parameter to target.
func CacheBust(target string, now time.Time) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + "_t=" + strconv.FormatInt(now.UnixMilli(), 10)
}

// Option configures a Racer.
type Option func(*Racer)

// WithAttemptTimeout bounds each relay attempt independently.
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Racer) {
		if d > 0 {
			r.attemptTimeout = d
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(r *Racer) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(r *Racer) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithClock overrides the time source used for cache busting.
func WithClock(now func() time.Time) Option {
	return func(r *Racer) {
		if now != nil {
			r.now = now
		}
	}
}

// Racer fans a request out through every relay at once and keeps the first
// well-formed answer.
type Racer struct {
	client         *xhttp.Client
	relays         []Relay
	attemptTimeout time.Duration
	now            func() time.Time
	logger         *applogger.Logger
	metrics        repository.Metrics
}

func NewRacer(client *xhttp.Client, relays []Relay, opts ...Option) *Racer {
	r := &Racer{
		client:         client,
		relays:         relays,
		attemptTimeout: 5 * time.Second,
		now:            time.Now,
		logger:         applogger.Nop(),
		metrics:        metrics.Nop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type attempt struct {
	relay string
	doc   []byte
	err   error
}

// Fetch returns the unwrapped JSON document for target from the first relay
// that succeeds. When every relay fails it reports ok=false; it never returns
// an error. Losing attempts are cancelled before Fetch returns.
func (r *Racer) Fetch(ctx context.Context, target string) ([]byte, bool) {
	if len(r.relays) == 0 {
		return nil, false
	}

	busted := CacheBust(target, r.now())

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan attempt, len(r.relays))
	for _, rl := range r.relays {
		go func(rl Relay) {
			doc, err := r.try(raceCtx, rl, busted)
			results <- attempt{relay: rl.Name, doc: doc, err: err}
		}(rl)
	}

	for range r.relays {
		res := <-results
		if res.err == nil {
			cancel()
			r.metrics.RecordRelayAttempt(res.relay, "success")
			r.logger.Debug("relay won",
				applogger.String("relay", res.relay),
				applogger.String("target", target),
			)
			return res.doc, true
		}

		outcome := classify(raceCtx, res.err)
		r.metrics.RecordRelayAttempt(res.relay, outcome)
		r.logger.Debug("relay attempt failed",
			applogger.String("relay", res.relay),
			applogger.String("target", target),
			applogger.String("outcome", outcome),
			applogger.Error(res.err),
		)
	}

	return nil, false
}

func (r *Racer) try(ctx context.Context, rl Relay, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	var body []byte
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    rl.Wrap(target),
	}, &body)
	if err != nil {
		return nil, err
	}

	doc, err := Unwrap(body)
	if err != nil {
		return nil, fmt.Errorf("relay %s: %w", rl.Name, err)
	}
	return doc, nil
}

func classify(raceCtx context.Context, err error) string {
	var se *xhttp.StatusError
	switch {
	case raceCtx.Err() != nil:
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &se):
		return "http_status"
	case errors.Is(err, errUpstream):
		return "upstream_error"
	case errors.Is(err, errInvalidJSON), errors.Is(err, errMalformed), errors.Is(err, errEmptyContents):
		return "malformed"
	default:
		return "network"
	}
}

var _ repository.RawFetcher = (*Racer)(nil)
