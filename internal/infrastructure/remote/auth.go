package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apporder "github.com/marketsquare/order-service/internal/application/order"
	"github.com/marketsquare/order-service/internal/observability"
)

// AuthGateway validates bearer tokens against the auth service.
//
// Auth fails closed: network errors, non-2xx responses, and an open breaker
// all collapse into {Valid: false}, so an auth outage rejects callers exactly
// like an invalid token. That trade-off is deliberate; transient outages
// reject legitimate users rather than letting anyone through.
type AuthGateway struct {
	caller
	url    string
	apiKey string
}

func NewAuthGateway(cfg Config, tel observability.Observability) *AuthGateway {
	if tel == nil {
		tel = observability.Nop()
	}
	return &AuthGateway{
		caller: newCaller("auth", cfg, tel),
		url:    cfg.AuthURL,
		apiKey: cfg.InternalAPIKey,
	}
}

type authRequest struct {
	Token string `json:"token"`
}

type authResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId"`
}

func (g *AuthGateway) ValidateToken(ctx context.Context, token string) (apporder.AuthResult, error) {
	var parsed authResponse

	err := g.call("auth", "validate_token", func() error {
		payload, err := json.Marshal(authRequest{Token: rawToken(token)})
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		resp, err := g.doRequest(ctx, http.MethodPost, g.url, bytes.NewReader(payload), func(req *http.Request) {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Internal-Api-Key", g.apiKey)
			req.Header.Set("Authorization", bearer(token))
		})
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			drainAndClose(resp.Body)
			return fmt.Errorf("auth service: unexpected status %d", resp.StatusCode)
		}
		return decodeJSON(resp, &parsed)
	})
	if err != nil {
		g.log.Warn("auth_validate_fallback", observability.F("error", err.Error()))
		return apporder.AuthResult{Valid: false}, nil
	}

	return apporder.AuthResult{Valid: parsed.Valid, UserID: parsed.UserID}, nil
}
