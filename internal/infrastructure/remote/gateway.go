// Package remote implements the HTTP gateways to the auth, cart, and product
// services. Every call goes through a named circuit breaker; what happens
// when the breaker is open or the remote fails differs per dependency:
// auth fails closed (invalid token), cart and product reads fail loud
// (service unavailable), cart clearing is fire-and-forget.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marketsquare/order-service/internal/observability"
	"github.com/marketsquare/order-service/internal/pkg/breaker"
)

// Config carries the wiring for all three gateways.
type Config struct {
	// AuthURL is the full token-validation endpoint.
	AuthURL string
	// CartBaseURL is the cart service root; "/cart" is appended.
	CartBaseURL string
	// ProductBaseURL is the catalog root; "/{id}" and "/{id}/stock" are appended.
	ProductBaseURL string
	// InternalAPIKey authenticates this service to auth and product.
	InternalAPIKey string
	// Timeout bounds each outbound call.
	Timeout time.Duration

	BreakerFailureThreshold int
	BreakerWindow           time.Duration
	BreakerCooldown         time.Duration
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// newBreaker builds the named breaker for one dependency and hooks state
// transitions into logs and metrics.
func newBreaker(name string, cfg Config, tel observability.Observability) *breaker.Breaker {
	log := tel.Logger().With(observability.F("breaker", name))
	stateGauge := tel.Metrics().Gauge(observability.MBreakerState)
	transitions := tel.Metrics().Counter(observability.MBreakerTransitions)

	return breaker.New(breaker.Settings{
		Name:             name,
		FailureThreshold: cfg.BreakerFailureThreshold,
		Window:           cfg.BreakerWindow,
		Cooldown:         cfg.BreakerCooldown,
		OnStateChange: func(name string, from, to breaker.State) {
			log.Warn("breaker_state_change",
				observability.F("from", from.String()),
				observability.F("to", to.String()),
			)
			stateGauge.Set(stateValue(to), observability.L("breaker", name))
			transitions.Add(1,
				observability.L("breaker", name),
				observability.L("to", to.String()),
			)
		},
	})
}

func stateValue(s breaker.State) float64 {
	switch s {
	case breaker.StateHalfOpen:
		return 1
	case breaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// caller is the shared plumbing embedded by each gateway: breaker-wrapped
// execution plus per-call metrics.
type caller struct {
	client *http.Client
	cb     *breaker.Breaker
	log    observability.Logger

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func newCaller(peer string, cfg Config, tel observability.Observability) caller {
	return caller{
		client:       newHTTPClient(cfg.Timeout),
		cb:           newBreaker(peer, cfg, tel),
		log:          tel.Logger().With(observability.F("component", peer+"_gateway")),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

func (c *caller) call(peer, endpoint string, fn func() error) error {
	start := time.Now()
	err := c.cb.Do(fn)

	outcome := "success"
	switch {
	case errors.Is(err, breaker.ErrOpen):
		outcome = "short_circuit"
	case err != nil:
		outcome = "error"
	}
	c.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	c.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
	return err
}

// bearer normalizes tokens that arrive with or without the "Bearer " prefix.
func bearer(token string) string {
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}

func rawToken(token string) string {
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}

func decodeJSON(resp *http.Response, dst any) error {
	defer drainAndClose(resp.Body)
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *caller) doRequest(ctx context.Context, method, url string, body io.Reader, set func(*http.Request)) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if set != nil {
		set(req)
	}
	return c.client.Do(req)
}
