/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// joinURL is the websocket address clients reach this server on, as seen by
// the request. X-Forwarded-Proto is honoured for TLS-terminating proxies.
func joinURL(cfg *Config, r *http.Request) string {
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		switch proto {
		case "https", "wss":
			scheme = "wss"
		default:
			scheme = "ws"
		}
	}

	return scheme + "://" + r.Host + cfg.prefix + "/ws"
}

func serveQR(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		url := joinURL(cfg, r)

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			log.Error().Err(err).Str("url", url).Msg("qr generation failed")
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			log.Debug().Err(err).Msg("qr write failed")

			return
		}

		log.Debug().
			Str("size", humanize.Bytes(uint64(written))).
			Str("remote", realIP(r)).
			Str("url", url).
			Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
			Msg("served qr code")
	}
}
