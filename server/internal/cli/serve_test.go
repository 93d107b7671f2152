package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/painless-params/painless/server/internal/config"
	"github.com/painless-params/painless/server/internal/ws"
)

// startServer runs a server on a random local port and returns its base URL
// and base directory.
func startServer(t *testing.T, watchDir bool, files map[string]string) (baseURL, dir string) {
	t.Helper()

	dir = t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	cfg := config.Default()
	cfg.Server.BaseDir = dir
	cfg.Realtime.Watch = watchDir

	srv, err := newServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, lis) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})

	return "http://" + lis.Addr().String(), dir
}

func dialSocket(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/socket"

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 10*time.Millisecond)

	t.Cleanup(func() { conn.Close() })
	return conn
}

// nextList reads messages until a parameter_list arrives.
func nextList(t *testing.T, conn *websocket.Conn) []map[string]string {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var m ws.Message
		require.NoError(t, json.Unmarshal(raw, &m))
		if m.Event != ws.EventParameterList {
			continue
		}
		var pl struct {
			Parameters []map[string]string `json:"parameters"`
		}
		require.NoError(t, json.Unmarshal(m.Data, &pl))
		return pl.Parameters
	}
}

// waitForList reads lists until one satisfies ok.
func waitForList(t *testing.T, conn *websocket.Conn, ok func([]map[string]string) bool) []map[string]string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if l := nextList(t, conn); ok(l) {
			return l
		}
	}
	t.Fatal("expected parameter list never arrived")
	return nil
}

func sendCommand(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(ws.Message{Event: event, Data: data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func TestServer_ServesPage(t *testing.T) {
	baseURL, _ := startServer(t, false, nil)

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(baseURL + "/")
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 10*time.Millisecond)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestServer_Scenario(t *testing.T) {
	baseURL, dir := startServer(t, false, map[string]string{"a": "1\n", "b": "2\n"})
	conn := dialSocket(t, baseURL)

	assert.Equal(t, []map[string]string{
		{"name": "a", "value": "1"},
		{"name": "b", "value": "2"},
	}, nextList(t, conn))

	sendCommand(t, conn, ws.EventUpdate, ws.UpdateCommand{Parameter: "a", Value: "9"})
	nextList(t, conn)

	b, err := os.ReadFile(filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.Equal(t, "9", string(b))

	sendCommand(t, conn, ws.EventRemove, ws.RemoveCommand{Parameter: "b"})
	assert.Equal(t, []map[string]string{{"name": "a", "value": "9"}}, nextList(t, conn))
}

func TestServer_WatcherPushesExternalChanges(t *testing.T) {
	baseURL, dir := startServer(t, true, nil)
	conn := dialSocket(t, baseURL)
	assert.Empty(t, nextList(t, conn))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "external"), []byte("42\n"), 0o600))

	got := waitForList(t, conn, func(l []map[string]string) bool {
		return len(l) == 1 && l[0]["value"] == "42"
	})
	assert.Equal(t, "external", got[0]["name"])

	require.NoError(t, os.Remove(filepath.Join(dir, "external")))
	waitForList(t, conn, func(l []map[string]string) bool { return len(l) == 0 })
}

func TestServer_LegacyRoutesBroadcast(t *testing.T) {
	baseURL, _ := startServer(t, false, map[string]string{"a": "1"})
	conn := dialSocket(t, baseURL)
	nextList(t, conn)

	resp, err := http.Post(baseURL+"/remove", "application/json", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Empty(t, nextList(t, conn))
}

func TestServer_WatcherFailsOnMissingDir(t *testing.T) {
	cfg := config.Default()
	cfg.Server.BaseDir = filepath.Join(t.TempDir(), "made-by-newServer")

	srv, err := newServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// Pull the directory out from under the server before Run.
	require.NoError(t, os.Remove(cfg.Server.BaseDir))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = srv.Run(context.Background(), lis)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start watcher")
}
