/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/Seednode/wordchain/game"
	"github.com/Seednode/wordchain/gateway"
	"github.com/Seednode/wordchain/telemetry"
)

const (
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("wordchain v" + releaseVersion + "\n"))
		if err != nil {
			log.Debug().Err(err).Msg("version write failed")

			return
		}

		log.Debug().
			Str("size", humanize.Bytes(uint64(written))).
			Str("remote", realIP(r)).
			Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
			Msg("served version page")
	}
}

// snapshotter reads engine state through the engine's own queue.
type snapshotter interface {
	Snapshot(ctx context.Context) (game.SnapshotMessage, error)
}

func serveState(cfg *Config, engine snapshotter, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		snap, err := engine.Snapshot(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("state unavailable")
			http.Error(w, "state unavailable", http.StatusServiceUnavailable)

			return
		}

		data, err := json.Marshal(snap)
		if err != nil {
			log.Error().Err(err).Msg("state encoding failed")
			http.Error(w, "state unavailable", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			log.Debug().Err(err).Msg("state write failed")

			return
		}

		log.Debug().
			Str("size", humanize.Bytes(uint64(written))).
			Str("remote", realIP(r)).
			Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
			Msg("served state")
	}
}

func newRouter(cfg *Config, log zerolog.Logger, engine snapshotter, gw *gateway.Gateway) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		log.Error().Any("panic", i).Str("path", r.URL.Path).Msg("handler panicked")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		_, _ = io.WriteString(w, newPage(cfg, "Server Error", "An error has occurred. Please try again."))
	}

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, log))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, log))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, log))

	mux.GET(cfg.prefix+"/qr", serveQR(cfg, log))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, log))

	mux.GET(cfg.prefix+"/state", serveState(cfg, engine, log))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, log))

	mux.GET(cfg.prefix+"/ws", gw.ServeWS)

	if cfg.profile {
		registerProfileHandlers(cfg, mux, log)
	}

	return mux
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	log := newLogger(cfg, os.Stderr)

	log.Info().Str("version", releaseVersion).Msg("starting wordchain")

	shutdownTracing, err := telemetry.Setup(ctx, "wordchain", releaseVersion, cfg.otelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("trace flush failed")
		}
	}()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	engine := game.New(cfg.engineConfig(), log)

	engineCtx, stopEngine := context.WithCancel(context.Background())
	defer stopEngine()

	go func() {
		_ = engine.Run(engineCtx)
	}()

	// Queue exhaustion means events are being lost; stop serving.
	gw := gateway.New(cfg.gatewayConfig(), engine, log, func(err error) {
		cancel(err)
	})

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, log, engine, gw),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	go func() {
		var err error

		log.Info().Msgf("listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancel(err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)

	gw.Close()
	stopEngine()
	<-engine.Done()

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		log.Error().Err(cause).Msg("server stopped")

		return cause
	}

	log.Info().Msg("server stopped")

	return nil
}
