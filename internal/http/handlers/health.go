package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const checkTimeout = 2 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health runs every registered check. Any failure turns the response into a
// 503 so load balancers stop routing to this instance.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	res := healthResponse{Status: "ok"}
	if len(a.Checks) > 0 {
		res.Checks = make(map[string]string, len(a.Checks))
	}
	names := make([]string, 0, len(a.Checks))
	for name := range a.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := a.Checks[name](ctx)
		cancel()
		if err != nil {
			a.Logger.Warn().Err(err).Str("check", name).Msg("health check failed")
			res.Status = "degraded"
			res.Checks[name] = "unavailable"
			continue
		}
		res.Checks[name] = "ok"
	}
	code := http.StatusOK
	if res.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	a.json(w, code, res)
}
