// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package api

import (
	"log/slog"
	"net/http"

	"github.com/kienvo/identra/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// CheckDatabase pings the PostgreSQL pool.
	CheckDatabase func() error

	// CheckCache pings the Redis client.
	CheckCache func() error
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{"status": "ok"})
}

type dependencyCheck struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// readiness handles GET /ready (Readiness probe). It reports 503 when either
// Postgres or Redis is unreachable; the auth flows need both.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	checks := []struct {
		name string
		ping func() error
	}{
		{"postgres", handler.dependencies.CheckDatabase},
		{"redis", handler.dependencies.CheckCache},
	}

	results := make([]dependencyCheck, 0, len(checks))
	httpStatus := http.StatusOK
	status := "ready"

	for _, check := range checks {
		if check.ping == nil {
			continue
		}

		result := dependencyCheck{Name: check.name, IsOK: true}
		if err := check.ping(); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			handler.logger.Error("readiness_check_failed",
				slog.String("dependency", check.name),
				slog.Any("error", err),
			)
		}
		results = append(results, result)
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{Data: map[string]any{
		"status": status,
		"checks": results,
	}})
}
