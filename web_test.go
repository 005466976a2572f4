package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/wordchain/game"
	"github.com/Seednode/wordchain/gateway"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	newCmd(cfg)
	cfg.previewInterval = 0
	cfg.roundTimeout = 0
	return cfg
}

type testServer struct {
	engine *game.Engine
	gw     *gateway.Gateway
	srv    *httptest.Server
}

func startServer(t *testing.T, cfg *Config) *testServer {
	t.Helper()

	engine := game.New(cfg.engineConfig(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = engine.Run(ctx) }()

	gw := gateway.New(cfg.gatewayConfig(), engine, zerolog.Nop(), nil)
	srv := httptest.NewServer(newRouter(cfg, zerolog.Nop(), engine, gw))

	t.Cleanup(func() {
		srv.Close()
		gw.Close()
		cancel()
		<-engine.Done()
	})

	return &testServer{engine: engine, gw: gw, srv: srv}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestStaticRoutes(t *testing.T) {
	s := startServer(t, testConfig(t))

	tests := []struct {
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"/healthz", http.StatusOK, "text/plain; charset=utf-8", "Ok"},
		{"/version", http.StatusOK, "text/plain; charset=utf-8", "wordchain v" + releaseVersion},
		{"/robots.txt", http.StatusOK, "text/plain; charset=utf-8", "Disallow: /ws"},
		{"/favicons/favicon.svg", http.StatusOK, "image/svg+xml", "<svg"},
		{"/favicons/site.webmanifest", http.StatusOK, "application/manifest+json", "wordchain"},
		{"/favicons/missing.png", http.StatusNotFound, "", ""},
		{"/", http.StatusOK, "text/html; charset=utf-8", "/ws</code>"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			resp, body := get(t, s.srv.URL+tc.path)
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.contentType != "" {
				assert.Equal(t, tc.contentType, resp.Header.Get("Content-Type"))
			}
			assert.Contains(t, string(body), tc.contains)
			if tc.status == http.StatusOK {
				assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
			}
		})
	}
}

func TestStateReflectsEngine(t *testing.T) {
	s := startServer(t, testConfig(t))

	ob := game.NewOutbox(16)
	require.NoError(t, s.engine.Enqueue(context.Background(), game.Joined{ParticipantID: "a", DisplayName: "alice", Outbox: ob}))
	require.NoError(t, s.engine.Enqueue(context.Background(), game.SubmitWord{ParticipantID: "a", Text: "once"}))

	resp, body := get(t, s.srv.URL+"/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap game.SnapshotMessage
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, []string{"once"}, snap.Words)
	assert.Equal(t, "a", snap.TokenHolderID)
	require.Len(t, snap.Roster, 1)
	assert.Equal(t, "alice", snap.Roster[0].DisplayName)
	assert.Empty(t, snap.You)
}

func TestQRCode(t *testing.T) {
	s := startServer(t, testConfig(t))

	resp, body := get(t, s.srv.URL+"/qr")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))
}

func TestJoinURL(t *testing.T) {
	cfg := &Config{prefix: "/game"}

	r := httptest.NewRequest(http.MethodGet, "http://example.com/game/", nil)
	assert.Equal(t, "ws://example.com/game/ws", joinURL(cfg, r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "wss://example.com/game/ws", joinURL(cfg, r))
}

func TestPrefixedRoutes(t *testing.T) {
	cfg := testConfig(t)
	cfg.prefix = "/wordchain"
	s := startServer(t, cfg)

	resp, _ := get(t, s.srv.URL+"/wordchain/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, s.srv.URL+"/healthz")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
