package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/flowgraph"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/store"
)

// Server is the read API over the derived tables, plus a websocket feed of
// newly derived purchases.
type Server struct {
	cfg   *config.Config
	store *store.Store
	flow  *flowgraph.Engine
	hub   *Hub
	srv   *http.Server
}

// NewServer wires routes and the websocket hub.
func NewServer(cfg *config.Config, st *store.Store) *Server {
	s := &Server{
		cfg:   cfg,
		store: st,
		flow:  flowgraph.NewEngine(cfg, st),
		hub:   NewHub(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/daily", s.handleDaily).Methods(http.MethodGet)
	r.HandleFunc("/api/marketplaces", s.handleMarketplaces).Methods(http.MethodGet)
	r.HandleFunc("/api/fees", s.handleFees).Methods(http.MethodGet)
	r.HandleFunc("/api/purchases", s.handlePurchases).Methods(http.MethodGet)
	r.HandleFunc("/api/resales", s.handleResales).Methods(http.MethodGet)
	r.HandleFunc("/api/wallets/{address}", s.handleWallet).Methods(http.MethodGet)
	r.HandleFunc("/api/graph", s.handleGraph).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIPort),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run()
	go s.watchPurchases(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[api] listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

// watchPurchases polls the purchases table and pushes fresh rows to
// websocket subscribers. Analyze runs rewrite the table, so a count change
// is the signal.
func (s *Server) watchPurchases(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	var lastCount int64 = -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		counts, err := s.store.Counts(ctx, "purchases")
		if err != nil {
			continue
		}
		n := counts["purchases"]
		if n == lastCount {
			continue
		}
		if lastCount >= 0 {
			recent, err := s.store.ListPurchases(ctx, 10)
			if err == nil {
				s.hub.Broadcast("purchases", recent)
			}
		}
		lastCount = n
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.Counts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	weeks, err := s.store.ListWeeks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	unclassified, err := s.store.CountUnclassified(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"counts":       counts,
		"weeks":        weeks,
		"unclassified": unclassified,
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	daily, err := s.store.ListDailyMetrics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, daily)
}

func (s *Server) handleMarketplaces(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.ListMarketplaceStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleFees(w http.ResponseWriter, r *http.Request) {
	fees, err := s.store.ListDailyMarketplaceFees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, fees)
}

func (s *Server) handlePurchases(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListPurchases(r.Context(), limitParam(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleResales(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListResales(r.Context(), limitParam(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	summary, err := s.store.WalletSummary(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if summary == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "wallet not found"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	nodeCap := 0
	if v := r.URL.Query().Get("nodes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			nodeCap = n
		}
	}
	graph, err := s.flow.BuildGraph(r.Context(), nodeCap)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}
