package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-server-session/internal/config"
	"github.com/jrsteele09/go-server-session/server"
	"github.com/jrsteele09/go-server-session/sessionapi/memapi"
	"github.com/jrsteele09/go-server-session/token"
	fakeuserrepo "github.com/jrsteele09/go-server-session/users/repofake"
)

const maxRestarts = 5

func main() {
	for restarts := 0; ; restarts++ {
		err := run()
		if err == nil {
			break
		}
		if restarts == maxRestarts {
			log.Fatalf("Error running server, giving up: %s\n", err)
		}
		log.Printf("Error running server: %s\n", err)
		time.Sleep(1 * time.Second)
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if c.GetEnv() == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	displayAppname(c.GetAppName())

	userRepo := fakeuserrepo.NewFakeUserRepo()
	if _, err := server.BootstrapDemoUser(userRepo, c.GetDemoUsername(), c.GetDemoPassword()); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	secret, err := signingSecret(c)
	if err != nil {
		return err
	}
	issuer := token.NewIssuer(token.NewHMACSigner(secret), c.GetIssuer(), c.GetBearerTTL())
	api := memapi.New(userRepo, issuer, c.GetSessionTTL())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler, err := server.New(c, api, registry)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweepExpiredSessions(ctx, api, c.GetSweepInterval())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	return serve(httpServer, stop)
}

// serve runs httpServer until it fails or stop fires, then shuts it down.
func serve(httpServer *http.Server, stop <-chan os.Signal) error {
	errc := make(chan error, 1)
	go func() {
		errc <- listenAndServe(httpServer)
	}()

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		log.Printf("Received %s, shutting down\n", sig)
		return shutdown(httpServer)
	}
}

// signingSecret returns the configured secret or a random one. A random secret
// invalidates every bearer on restart, which is fine for development.
func signingSecret(c config.Config) (string, error) {
	if s := c.GetSigningSecret(); s != "" {
		return s, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate signing secret: %w", err)
	}
	zlog.Warn().Msg("SIGNING_SECRET not set, using a random secret")
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func sweepExpiredSessions(ctx context.Context, api *memapi.MemAPI, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := api.DeleteExpiredSessions(now); n > 0 {
				zlog.Info().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}

func listenAndServe(httpServer *http.Server) error {
	log.Printf("Server listening on %s\n", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
