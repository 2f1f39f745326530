package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/pet_monitor/internal/config"
	"github.com/relabs-tech/pet_monitor/internal/gps"
)

const maxRecentAlerts = 20

// WebState holds the latest telemetry for the dashboard and pushes every
// update to connected websocket clients.
type WebState struct {
	mu     sync.RWMutex
	vitals *VitalsMessage
	fix    *gps.PositionFix
	alerts []AlertMessage // oldest first

	hub *wsHub
	log *zap.Logger
}

func NewWebState(log *zap.Logger) *WebState {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebState{hub: newWSHub(log), log: log}
}

// StatusResponse is the body of /api/status.
type StatusResponse struct {
	Vitals    *VitalsMessage   `json:"vitals"`
	Fix       *gps.PositionFix `json:"gps,omitempty"`
	LastAlert *AlertMessage    `json:"last_alert,omitempty"`
}

type wsEvent struct {
	Type string `json:"type"` // status, vitals, gps, alert
	Data any    `json:"data"`
}

func (s *WebState) HandleVitals(payload []byte) error {
	var v VitalsMessage
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("vitals payload: %w", err)
	}
	s.mu.Lock()
	s.vitals = &v
	s.mu.Unlock()
	s.hub.broadcast(wsEvent{Type: "vitals", Data: v})
	return nil
}

func (s *WebState) HandleFix(payload []byte) error {
	var f gps.PositionFix
	if err := json.Unmarshal(payload, &f); err != nil {
		return fmt.Errorf("gps payload: %w", err)
	}
	s.mu.Lock()
	s.fix = &f
	s.mu.Unlock()
	s.hub.broadcast(wsEvent{Type: "gps", Data: f})
	return nil
}

func (s *WebState) HandleAlert(payload []byte) error {
	var a AlertMessage
	if err := json.Unmarshal(payload, &a); err != nil {
		return fmt.Errorf("alert payload: %w", err)
	}
	s.mu.Lock()
	// retained messages are redelivered on reconnect
	if n := len(s.alerts); n == 0 || s.alerts[n-1].ID != a.ID {
		s.alerts = append(s.alerts, a)
		if len(s.alerts) > maxRecentAlerts {
			s.alerts = s.alerts[len(s.alerts)-maxRecentAlerts:]
		}
	}
	s.mu.Unlock()
	s.hub.broadcast(wsEvent{Type: "alert", Data: a})
	return nil
}

// Status returns the current snapshot; ok is false until vitals arrive.
func (s *WebState) Status() (StatusResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := StatusResponse{Vitals: s.vitals, Fix: s.fix}
	if n := len(s.alerts); n > 0 {
		last := s.alerts[n-1]
		resp.LastAlert = &last
	}
	return resp, s.vitals != nil
}

func (s *WebState) Alerts() []AlertMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AlertMessage, len(s.alerts))
	// newest first
	for i, a := range s.alerts {
		out[len(s.alerts)-1-i] = a
	}
	return out
}

// NewRouter builds the dashboard HTTP API. Static files are served from
// staticDir when it is set.
func NewRouter(s *WebState, staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/vitals", s.handleVitals)
		r.Get("/gps", s.handleFix)
		r.Get("/alerts", s.handleAlerts)
	})
	r.Get("/ws", s.handleWS)

	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}
	return r
}

func (s *WebState) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp, ok := s.Status()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, resp)
}

func (s *WebState) handleVitals(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	v := s.vitals
	s.mu.RUnlock()

	if v == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, v)
}

func (s *WebState) handleFix(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	f := s.fix
	s.mu.RUnlock()

	if f == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, f)
}

func (s *WebState) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.Alerts())
}

func (s *WebState) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("web: websocket upgrade failed", zap.Error(err))
		return
	}

	var initial *wsEvent
	if resp, ok := s.Status(); ok {
		initial = &wsEvent{Type: "status", Data: resp}
	}
	s.hub.join(conn, initial)
	s.log.Debug("web: websocket client joined",
		zap.String("remote", r.RemoteAddr), zap.Int("clients", s.hub.count()))
}

func (s *WebState) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("web: json encode failed", zap.Error(err))
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("web: request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is served on the local network
	},
}

const wsWriteWait = 2 * time.Second

// wsHub fans events out to websocket clients. All writes happen under mu,
// so each connection has a single writer.
type wsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	log     *zap.Logger
}

func newWSHub(log *zap.Logger) *wsHub {
	return &wsHub{clients: make(map[*websocket.Conn]struct{}), log: log}
}

func (h *wsHub) join(conn *websocket.Conn, initial *wsEvent) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	if initial != nil {
		h.writeLocked(conn, *initial)
	}
	h.mu.Unlock()

	// the read side only notices the client going away
	go func() {
		defer h.leave(conn)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
}

func (h *wsHub) leave(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *wsHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *wsHub) broadcast(ev wsEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		h.writeLocked(conn, ev)
	}
}

func (h *wsHub) writeLocked(conn *websocket.Conn, ev wsEvent) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(ev); err != nil {
		h.log.Debug("web: dropping websocket client", zap.Error(err))
		delete(h.clients, conn)
		conn.Close()
	}
}

// subscribeJSON subscribes handle to topic, logging payloads it rejects.
func subscribeJSON(client mqtt.Client, topic string, handle func([]byte) error, log *zap.Logger) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := handle(msg.Payload()); err != nil {
			log.Warn("mqtt: bad payload", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	log.Info("mqtt: subscribed", zap.String("topic", topic))
	return nil
}

// RunWeb serves the dashboard fed from the monitor's MQTT topics until
// SIGINT or SIGTERM.
func RunWeb(cfg *config.Config, log *zap.Logger) error {
	client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Info("web: connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	state := NewWebState(log)
	subs := []struct {
		topic  string
		handle func([]byte) error
	}{
		{cfg.TopicVitals, state.HandleVitals},
		{cfg.TopicGPS, state.HandleFix},
		{cfg.TopicAlert, state.HandleAlert},
	}
	for _, sub := range subs {
		if err := subscribeJSON(client, sub.topic, sub.handle, log); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           NewRouter(state, "web"),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("web: listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("web: stopped")
	return nil
}
