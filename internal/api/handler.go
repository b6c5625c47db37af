// Package api exposes the forecast mail run as an HTTP cron endpoint.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"forecast-mailer/internal/job"
)

// RunPath is the route the scheduler calls once a day.
const RunPath = "/api/ruvnl-morning"

// Runner executes one forecast mail run.
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// NewRouter returns the HTTP handler for the cron endpoint and health check.
func NewRouter(runner Runner, cronSecret string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireCronToken(cronSecret, logger))
		r.Get(RunPath, runHandler(runner, logger))
		r.Post(RunPath, runHandler(runner, logger))
	})
	return r
}

// RequireCronToken rejects requests whose Authorization header is not
// "Bearer <secret>".
func RequireCronToken(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	expected := []byte("Bearer " + secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("Authorization")
			if got == "" {
				logger.WarnContext(r.Context(), "cron token missing", "remote_addr", r.RemoteAddr)
				writeText(w, job.KindAuthorization.HTTPStatus(), "Token missing")
				return
			}
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				logger.WarnContext(r.Context(), "cron token invalid", "remote_addr", r.RemoteAddr)
				writeText(w, job.KindAuthorization.HTTPStatus(), "Token invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func runHandler(runner Runner, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := uuid.NewString()
		reqLogger := logger.With("run_id", runID, "request_id", middleware.GetReqID(r.Context()))
		reqLogger.InfoContext(r.Context(), "forecast run triggered")

		report, err := runner.Run(r.Context())
		if err != nil {
			var jobErr *job.Error
			if errors.As(err, &jobErr) {
				reqLogger.ErrorContext(r.Context(), "forecast run failed", "kind", string(jobErr.Kind), "error", err)
				writeText(w, jobErr.Kind.HTTPStatus(), jobErr.Message)
				return
			}
			reqLogger.ErrorContext(r.Context(), "forecast run failed", "error", err)
			writeText(w, http.StatusInternalServerError, err.Error())
			return
		}

		reqLogger.InfoContext(r.Context(), "forecast run complete")
		writeText(w, http.StatusOK, report)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
