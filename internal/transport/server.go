package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Rajchodisetti/wealth-dashboard/internal/engine"
	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
	"github.com/Rajchodisetti/wealth-dashboard/internal/observ"
	"github.com/Rajchodisetti/wealth-dashboard/internal/store"
)

// Server exposes the engine over HTTP: snapshot and summary reads, the
// websocket stream, the pause/resume visibility signal, health, and
// metrics.
type Server struct {
	httpServer *http.Server
	engine     *engine.Engine
	store      store.Store
	hub        *Hub
	log        *zap.Logger
}

func NewServer(addr string, eng *engine.Engine, st store.Store, hub *Hub, log *zap.Logger) *Server {
	s := &Server{
		engine: eng,
		store:  st,
		hub:    hub,
		log:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/summary", s.handleSummary)
	mux.HandleFunc("/api/v1/engine/pause", s.handlePause)
	mux.HandleFunc("/api/v1/engine/resume", s.handleResume)
	mux.HandleFunc("/api/v1/stream", hub.ServeWS(eng.Snapshot))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", observ.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks serving until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

type kindSummary struct {
	Holdings int     `json:"holdings"`
	Priced   int     `json:"priced"`
	Value    float64 `json:"value"`
}

type summaryResponse struct {
	Investments kindSummary `json:"investments"`
	Commodities kindSummary `json:"commodities"`
	TotalValue  float64     `json:"totalValue"`
	IsLive      bool        `json:"isLive"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	snap := s.engine.Snapshot()
	resp := summaryResponse{
		IsLive:      snap.IsLive,
		GeneratedAt: snap.GeneratedAt,
	}

	for _, kind := range []store.Kind{store.KindInvestment, store.KindCommodity} {
		holdings, err := s.store.Holdings(r.Context(), kind)
		if err != nil {
			s.log.Error("summary read failed", zap.String("kind", string(kind)), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
			return
		}
		sum := summarize(snap, holdings)
		switch kind {
		case store.KindInvestment:
			resp.Investments = sum
		case store.KindCommodity:
			resp.Commodities = sum
		}
	}

	resp.TotalValue = resp.Investments.Value + resp.Commodities.Value
	writeJSON(w, http.StatusOK, resp)
}

// summarize totals one holding kind. Holdings without a price this
// tick contribute their last persisted value so the total does not dip
// when a symbol is briefly unpriced.
func summarize(snap *engine.Snapshot, holdings []store.Holding) kindSummary {
	sum := kindSummary{Holdings: len(holdings)}
	for _, h := range holdings {
		if price, ok := snap.Price(marketdata.NormalizeSymbol(h.Symbol)); ok {
			sum.Priced++
			sum.Value += price * h.Quantity
			continue
		}
		sum.Value += h.CurrentValue
	}
	return sum
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.engine.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"state": schedulerState(s.engine)})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.engine.Resume()
	writeJSON(w, http.StatusOK, map[string]string{"state": schedulerState(s.engine)})
}

func schedulerState(eng *engine.Engine) string {
	if eng.Running() {
		return "running"
	}
	return "stopped"
}

type healthResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	Scheduler     string    `json:"scheduler"`
	StoreHealthy  bool      `json:"storeHealthy"`
	StreamClients int       `json:"streamClients"`
	LastTick      time.Time `json:"lastTick"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storeHealthy := s.store.IsHealthy(r.Context())

	resp := healthResponse{
		Status:        "ok",
		Uptime:        observ.Uptime().Round(time.Second).String(),
		Scheduler:     schedulerState(s.engine),
		StoreHealthy:  storeHealthy,
		StreamClients: s.hub.ClientCount(),
		LastTick:      s.engine.Snapshot().GeneratedAt,
	}

	code := http.StatusOK
	if !storeHealthy {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
