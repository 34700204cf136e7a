package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/gigescrow-backend/api/responses"
	"github.com/angelmondragon/gigescrow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck is any dependency the API cannot serve without.
type ReadinessCheck struct {
	Name string
	Ping func(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GigEscrow-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each dependency and reports the first failure as
// DEPENDENCY_UNAVAILABLE.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GigEscrow-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		for _, check := range checks {
			if check.Ping == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.Name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
