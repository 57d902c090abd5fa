package server

import (
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/adminpanel/apiserver/internal/handlers"
	"github.com/adminpanel/apiserver/internal/metrics"
	"github.com/adminpanel/apiserver/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// NewRouter builds the HTTP routes and middleware stack.
func NewRouter(deps Deps) chi.Router {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		hlog.NewHandler(deps.Log),
		requestIDLogger,
		hlog.AccessHandler(accessLog),
		middleware.Recoverer,
		recordMetrics,
		middleware.Timeout(60*time.Second),
	)

	router.Get("/healthz", handlers.Healthz(deps.DB))
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, deps.Users)
		})
		r.Route("/roles", func(r chi.Router) {
			handlers.RoleRouter(r, deps.Roles)
		})
		r.Route("/logs", func(r chi.Router) {
			handlers.LogRouter(r, deps.Audit)
		})
	})

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		panic(err)
	}
	router.Handle("/*", http.FileServer(http.FS(static)))

	return router
}

func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	level := zerolog.InfoLevel
	if status >= http.StatusInternalServerError {
		level = zerolog.WarnLevel
	}
	hlog.FromRequest(r).WithLevel(level).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote", r.RemoteAddr).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
