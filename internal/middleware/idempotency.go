package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/idempotency"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/rs/zerolog/log"
)

// IdempotencyHeader is the client-supplied retry token.
const IdempotencyHeader = "Idempotency-Key"

// Idempotency suppresses duplicate processing of retried requests. The token
// is marked atomically before the handler runs; a token already marked gets
// 409 without touching any store. When the handler answers with a 5xx the
// mark is rolled back so the client can retry safely. Requests without a
// token pass through unguarded.
func Idempotency(guard *idempotency.Guard, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(IdempotencyHeader)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if err := guard.Invalidate(r.Context(), token); err != nil {
				if errors.Is(err, domainErrors.ErrDuplicateIdempotencyKey) {
					metrics.IdempotencyConflicts.Inc()
					writeConflict(w)
					return
				}
				// The guard's backing store is down. Refusing the request
				// is safer than processing a possible duplicate.
				log.Error().Err(err).Msg("idempotency guard unavailable")
				writeGuardUnavailable(w)
				return
			}

			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sw, r)

			if sw.statusCode >= 500 {
				if err := guard.Rollback(r.Context(), token); err != nil {
					log.Error().Err(err).Msg("failed to roll back idempotency token")
				}
			}
		})
	}
}

func writeConflict(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    "IDEM_CONFLICT",
		"message": "Duplicate idempotency key, this request has already been processed",
	})
}

func writeGuardUnavailable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    "ERR_IDEM_UNAVAILABLE",
		"message": "unable to verify request uniqueness, please retry",
	})
}
