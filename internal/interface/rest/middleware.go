package restservice

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/interface/rest/permissions"
	"github.com/solestate/estated/pkg/errors"
	"github.com/solestate/estated/pkg/macaroons"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const requestIDHeader = "X-Request-Id"

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"request_id": reqID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
		}).Debug("http request")
	})
}

// panicRecovery converts a panic into an INTERNAL_ERROR response and logs the
// stack trace.
func panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Errorf("panic-recovery middleware recovered from panic: %v", rec)
				log.Errorf("stack trace: %v", string(debug.Stack()))
				writeError(w, r, somethingWentWrong)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/solestate/estated/internal/interface/rest")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(
			r.Context(), r.Method, trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		// The route pattern is only known once chi has matched the request.
		if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
			span.SetName(fmt.Sprintf("%s %s", r.Method, rctx.RoutePattern()))
		}
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.Int("http.status_code", ww.Status()),
		)
		if ww.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(ww.Status()))
		}
	})
}

const macaroonHeader = "X-Macaroon"

// macaroonAuth rejects requests to route unless they carry a macaroon granting
// the route's permissions. A nil svc disables the check.
func macaroonAuth(svc *macaroons.Service, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if svc == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ops, ok := permissions.AllPermissionsByRoute()[route]
			if !ok {
				writeError(w, r, errors.INTERNAL_ERROR.New(
					"%s: unknown permissions required for route", route,
				))
				return
			}

			mac := r.Header.Get(macaroonHeader)
			if mac == "" {
				writeError(w, r, errors.UNAUTHENTICATED.New("missing macaroon"))
				return
			}
			if err := svc.ValidateMacaroon(r.Context(), ops, mac); err != nil {
				writeError(w, r, errors.PERMISSION_DENIED.New("invalid macaroon").
					WithMetadata(errors.RequestMetadata{Reason: err.Error()}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
