/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

func homePage(cfg *Config, wsURL string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon(cfg))
	htmlBody.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	htmlBody.WriteString(`<title>wordchain</title></head><body>`)
	htmlBody.WriteString(`<h1>wordchain</h1>`)
	htmlBody.WriteString(`<p>Build a sentence together, one word per turn.</p>`)
	htmlBody.WriteString(fmt.Sprintf(`<img src="%s/qr" width="320" height="320" alt="QR code for %s">`,
		cfg.prefix, html.EscapeString(wsURL)))
	htmlBody.WriteString(fmt.Sprintf(`<p>Websocket: <code>%s</code></p>`, html.EscapeString(wsURL)))
	htmlBody.WriteString(fmt.Sprintf(`<p>Terminal: <code>wordchain join --server %s --name you</code></p>`,
		html.EscapeString(wsURL)))
	htmlBody.WriteString(`<p>Each line you type is submitted as your word. <code>/cancel</code> clears your attempt and <code>/name</code> changes your name before you play.</p>`)
	htmlBody.WriteString(fmt.Sprintf(`<p><a href="%s/state">Current state</a></p>`, cfg.prefix))
	htmlBody.WriteString(`</body></html>`)

	return htmlBody.String()
}

func serveHomePage(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(homePage(cfg, joinURL(cfg, r))))
		if err != nil {
			log.Debug().Err(err).Msg("home page write failed")

			return
		}

		log.Debug().
			Str("size", humanize.Bytes(uint64(written))).
			Str("remote", realIP(r)).
			Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
			Msg("served home page")
	}
}

func serveHealthCheck(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			log.Debug().Err(err).Msg("health check write failed")

			return
		}
	}
}

func serveRobots(cfg *Config, log zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /ws
Disallow: /state
Disallow: /qr`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			log.Debug().Err(err).Msg("robots write failed")

			return
		}
	}
}
