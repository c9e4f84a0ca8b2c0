// Package server exposes a sessionapi.API over HTTP. It is the development
// counterpart of sessionapi.HTTPClient.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jrsteele09/go-server-session/internal/config"
	"github.com/jrsteele09/go-server-session/sessionapi"
)

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	api     sessionapi.API
	metrics *Metrics
	gather  prometheus.Gatherer
}

// New returns a server for api. Metrics are registered on registry and served
// from it at /metrics.
func New(cfg config.Config, api sessionapi.API, registry *prometheus.Registry) (*Server, error) {
	metrics, err := NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to register metrics: %w", err)
	}

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		api:     api,
		metrics: metrics,
		gather:  registry,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Printf("[%-19s] %s\n", colourMethod(method), path)
}

func logError(method, path, error string) {
	errorString := Red + error + ResetColor
	log.Printf("[%-19s] %s %s\n", colourMethod(method), path, errorString)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

