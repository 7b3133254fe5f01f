package http

import (
	"context"
	nethttp "net/http"
	"time"

	"trustbond-dashboard-ui/internal/connectors/trustbond"
	"trustbond-dashboard-ui/internal/session"
)

func servicesStatusHandler(api *trustbond.Client, sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		payload := map[string]any{
			"generated_at": time.Now().UTC(),
			"services":     map[string]any{},
		}
		services := payload["services"].(map[string]any)

		services["trustbond_api"] = backendStatus(ctx, api)
		services["session_store"] = sessionStoreStatus(ctx, sessions)

		writeJSON(w, nethttp.StatusOK, payload)
	}
}

func backendStatus(ctx context.Context, api *trustbond.Client) map[string]any {
	if api == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "backend integration disabled"}
	}

	start := time.Now()
	rtt, err := api.Ping(ctx)
	recordExternalProbe("trustbond", "Ping", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "base_url": api.BaseURL(), "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "base_url": api.BaseURL(), "ping_ms": rtt.Milliseconds()}
}

func sessionStoreStatus(ctx context.Context, sessions *session.Store) map[string]any {
	if sessions == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "session store disabled"}
	}

	// A read for a nonexistent ID exercises the full query path.
	start := time.Now()
	_, err := sessions.Read(ctx, "status-probe")
	recordSessionOp("Read", time.Since(start).Seconds(), nil)
	if err != nil && err != session.ErrNoSession {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true}
}
