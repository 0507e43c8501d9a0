package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/secmon-lab/collectdesk/pkg/utils/metrics"
)

// accessLogger attaches a request scoped logger and logs every request
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logging.With(r.Context(), logger))

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// requestMetrics records duration and count labeled by route pattern
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordRequest(r.Method, route, strconv.Itoa(status), time.Since(start).Seconds())
	})
}

func bearerToken(r *http.Request, allowQuery bool) auth.Token {
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return auth.Token(strings.TrimSpace(v))
	}
	if allowQuery {
		return auth.Token(r.URL.Query().Get("access_token"))
	}
	return ""
}

// authMiddleware resolves the bearer token into an identity and stores it
// in the request context
func authMiddleware(authUC AuthUseCase, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authUC == nil {
				writeError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, "authentication is not configured"))
				return
			}

			var token auth.Token
			if !authUC.IsNoAuthn() {
				token = bearerToken(r, allowQuery)
				if token == "" {
					writeError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, "missing bearer token"))
					return
				}
			}

			id, err := authUC.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := auth.ContextWithIdentity(r.Context(), id)
			ctx = logging.With(ctx, logging.From(ctx).With("user_id", id.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userRateLimit limits requests per authenticated user, falling back to
// the client address
func userRateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if id, ok := auth.IdentityFromContext(r.Context()); ok {
				return "user:" + id.UserID, nil
			}
			return "ip:" + r.RemoteAddr, nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(windowLength.Seconds())))
			writeJSON(r.Context(), w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		}),
	)
}
