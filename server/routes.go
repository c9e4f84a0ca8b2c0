package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jrsteele09/go-server-session/sessionapi"
)

const (
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)

func (s *Server) initRoutes() {
	// Session API
	s.RegisterRouteHandler("POST "+sessionapi.RouteSession, ChainMiddleware(s.CreateSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+sessionapi.RouteSessionByID, ChainMiddleware(s.ReadSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("PUT "+sessionapi.RouteSessionByID, ChainMiddleware(s.UpdateSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+sessionapi.RouteSessionByID, ChainMiddleware(s.DeleteSessionHandler(), s.APIMiddleware()...))

	// CORS preflight, answered by CorsMiddleware
	s.RegisterRouteHandler("OPTIONS "+sessionapi.RouteSession, ChainMiddleware(noContent, s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+sessionapi.RouteSessionByID, ChainMiddleware(noContent, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	s.RegisterRouteFunc("GET "+RouteHealth, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
