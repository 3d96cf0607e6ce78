package handlers

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-kit/log/level"
	"github.com/julienschmidt/httprouter"

	"github.com/dzoniops/rental-service/auth"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs the request and records it under route.
func (s *Server) instrument(route string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r, ps)
		took := time.Since(start)

		s.metrics.ObserveRequest(r.Method, route, rec.status, took)
		level.Info(s.logger).Log(
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"took", took,
		)
	}
}

// authenticate resolves the bearer token into an Identity stored on the
// request context.
func (s *Server) authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := s.resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				level.Error(s.logger).Log("msg", "identity lookup failed", "err", err)
				respondError(w, http.StatusInternalServerError, "Failed to authenticate")
				return
			}
			level.Debug(s.logger).Log("msg", "unauthenticated request", "path", r.URL.Path, "err", err)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)), ps)
	}
}

func (s *Server) recoverPanic(w http.ResponseWriter, r *http.Request, p any) {
	s.metrics.PanicRecovered()
	level.Error(s.logger).Log("msg", "recovered from panic", "path", r.URL.Path, "panic", p, "stack", debug.Stack())
	respondError(w, http.StatusInternalServerError, "Internal server error")
}
