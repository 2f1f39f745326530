package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Code   int
	Header http.Header
	Body   string
}

// get serves h on a real listener so handlers see a net/http response writer.
func get(t *testing.T, h http.Handler, path string) response {
	t.Helper()
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{Code: resp.StatusCode, Header: resp.Header, Body: string(body)}
}

func TestWebNoDataYet(t *testing.T) {
	h := NewRouter(NewWebState(nil), "")

	for _, path := range []string{"/api/status", "/api/vitals", "/api/gps"} {
		rec := get(t, h, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, "no data yet\n", rec.Body, path)
	}

	rec := get(t, h, "/api/alerts")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body)
}

func TestWebStatusAfterTelemetry(t *testing.T) {
	s := NewWebState(nil)
	require.NoError(t, s.HandleVitals([]byte(`{"spo2":96,"heart_rate":110,"motion":1.2,"issues":[]}`)))
	require.NoError(t, s.HandleFix([]byte(`{"lat":48.1173,"lon":11.516667,"has_fix":true,"satellites":8,"fix_quality":1}`)))
	require.NoError(t, s.HandleAlert([]byte(`{"id":"a1","issues":["Low SpO2: 85%"],"call_ok":true,"summary":"call placed"}`)))

	rec := get(t, NewRouter(s, ""), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header.Get("Content-Type"))

	var got StatusResponse
	require.NoError(t, json.Unmarshal([]byte(rec.Body), &got))
	require.NotNil(t, got.Vitals)
	assert.Equal(t, 96, got.Vitals.SpO2)
	require.NotNil(t, got.Fix)
	assert.True(t, got.Fix.HasFix)
	assert.Equal(t, 8, got.Fix.Satellites)
	require.NotNil(t, got.LastAlert)
	assert.Equal(t, "a1", got.LastAlert.ID)
}

func TestWebRejectsBadPayload(t *testing.T) {
	s := NewWebState(nil)
	assert.Error(t, s.HandleVitals([]byte(`{`)))
	assert.Error(t, s.HandleFix([]byte(`nope`)))
	assert.Error(t, s.HandleAlert([]byte(``)))

	_, ok := s.Status()
	assert.False(t, ok)
}

func TestWebAlertsNewestFirstAndCapped(t *testing.T) {
	s := NewWebState(nil)
	for i := 0; i < maxRecentAlerts+5; i++ {
		require.NoError(t, s.HandleAlert([]byte(fmt.Sprintf(`{"id":"a%d"}`, i))))
	}
	// redelivered retained message
	require.NoError(t, s.HandleAlert([]byte(fmt.Sprintf(`{"id":"a%d"}`, maxRecentAlerts+4))))

	alerts := s.Alerts()
	require.Len(t, alerts, maxRecentAlerts)
	assert.Equal(t, fmt.Sprintf("a%d", maxRecentAlerts+4), alerts[0].ID)
	assert.Equal(t, "a5", alerts[len(alerts)-1].ID)
}

func TestWebStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(dir+"/index.html", "<h1>pet</h1>"))

	rec := get(t, NewRouter(NewWebState(nil), dir), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body, "<h1>pet</h1>")
}

func TestWebSocketPushesUpdates(t *testing.T) {
	s := NewWebState(nil)
	srv := httptest.NewServer(NewRouter(s, ""))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return s.hub.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.HandleVitals([]byte(`{"spo2":97,"heart_rate":80,"issues":[]}`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev struct {
		Type string        `json:"type"`
		Data VitalsMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "vitals", ev.Type)
	assert.Equal(t, 97, ev.Data.SpO2)

	conn.Close()
	require.Eventually(t, func() bool { return s.hub.count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketSendsSnapshotOnConnect(t *testing.T) {
	s := NewWebState(nil)
	require.NoError(t, s.HandleVitals([]byte(`{"spo2":93,"heart_rate":70,"issues":[]}`)))
	srv := httptest.NewServer(NewRouter(s, ""))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type string         `json:"type"`
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "status", ev.Type)
	require.NotNil(t, ev.Data.Vitals)
	assert.Equal(t, 93, ev.Data.Vitals.SpO2)
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}
