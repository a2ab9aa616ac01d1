package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"solusd/core"
	"solusd/core/types"
	"solusd/crypto"
	"solusd/storage/journal"
)

const maxRequestBody = 1 << 20

// Config wires the HTTP surface to its collaborators.
type Config struct {
	ListenAddress string
	Processor     *core.Processor
	// Journal is optional; receipts are not persisted when nil.
	Journal       *journal.Journal
	Authenticator *Authenticator
	RateLimiter   *RateLimiter
	Gatherer      prometheus.Gatherer
	Logger        *slog.Logger
	ShutdownGrace time.Duration
}

// Server exposes the engine's operations and queries over HTTP.
type Server struct {
	cfg     Config
	proc    *core.Processor
	journal *journal.Journal
	hub     *Hub
	logger  *slog.Logger
}

func New(cfg Config) (*Server, error) {
	if cfg.Processor == nil {
		return nil, fmt.Errorf("processor required")
	}
	if cfg.Authenticator == nil {
		return nil, fmt.Errorf("authenticator required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 5 * time.Second
	}
	return &Server{cfg: cfg, proc: cfg.Processor, journal: cfg.Journal, hub: NewHub(), logger: cfg.Logger}, nil
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(v1 chi.Router) {
		if s.cfg.RateLimiter != nil {
			v1.Use(s.cfg.RateLimiter.Middleware)
		}
		v1.Get("/system", s.handleSystem)
		v1.Get("/troves", s.handleSortedTroves)
		v1.Get("/troves/{owner}", s.handleTrove)
		v1.Get("/deposits/{owner}", s.handleDeposit)
		v1.Get("/frontends/{owner}", s.handleFrontEnd)
		v1.Get("/stakers/{owner}", s.handleStaker)
		v1.Get("/surplus/{owner}", s.handleSurplus)
		v1.Get("/stream", s.handleStream)

		v1.Group(func(authed chi.Router) {
			authed.Use(s.cfg.Authenticator.Middleware)
			authed.Post("/operations", s.handleExecute)
			authed.Get("/receipts", s.handleListReceipts)
			authed.Get("/receipts/{id}", s.handleGetReceipt)
		})
	})
	return otelhttp.NewHandler(r, "troved")
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info("troved listening", "addr", s.cfg.ListenAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	ok, err := s.proc.Initialized()
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, core.ErrNotInitialized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "caller unknown", "authorization")
		return
	}
	var req operationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err), "parameter")
		return
	}
	op, err := req.toOperation(caller)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), "parameter")
		return
	}
	receipt, err := s.proc.Execute(r.Context(), op)
	if err != nil {
		writeError(w, err)
		return
	}
	if s.journal != nil {
		if err := s.journal.Append(r.Context(), receipt); err != nil {
			s.logger.Error("journal append failed", "receipt", receipt.ID.String(), "error", err)
		}
	}
	s.hub.Publish(receipt)
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSONError(w, http.StatusNotFound, "journal disabled", "")
		return
	}
	caller, _ := CallerFromContext(r.Context())
	filter := journal.Filter{
		Caller:    caller.String(),
		Operation: types.OpType(strings.TrimSpace(r.URL.Query().Get("op"))),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit", "parameter")
			return
		}
		filter.Limit = limit
	}
	records, err := s.journal.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSONError(w, http.StatusNotFound, "journal disabled", "")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid receipt id", "parameter")
		return
	}
	record, err := s.journal.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFromContext(r.Context())
	if record.Caller != caller.String() {
		writeError(w, journal.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	status, err := s.proc.System()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSortedTroves(w http.ResponseWriter, _ *http.Request) {
	owners, err := s.proc.SortedTroves()
	if err != nil {
		writeError(w, err)
		return
	}
	if owners == nil {
		owners = []crypto.Address{}
	}
	writeJSON(w, http.StatusOK, owners)
}

func (s *Server) handleTrove(w http.ResponseWriter, r *http.Request) {
	s.serveOwnerQuery(w, r, func(owner crypto.Address) (interface{}, error) {
		return s.proc.Trove(owner)
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.serveOwnerQuery(w, r, func(owner crypto.Address) (interface{}, error) {
		return s.proc.Deposit(owner)
	})
}

func (s *Server) handleFrontEnd(w http.ResponseWriter, r *http.Request) {
	s.serveOwnerQuery(w, r, func(owner crypto.Address) (interface{}, error) {
		return s.proc.FrontEnd(owner)
	})
}

func (s *Server) handleStaker(w http.ResponseWriter, r *http.Request) {
	s.serveOwnerQuery(w, r, func(owner crypto.Address) (interface{}, error) {
		return s.proc.Staker(owner)
	})
}

func (s *Server) handleSurplus(w http.ResponseWriter, r *http.Request) {
	s.serveOwnerQuery(w, r, func(owner crypto.Address) (interface{}, error) {
		amount, err := s.proc.Surplus(owner)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"owner": owner, "collateral": amount}, nil
	})
}

func (s *Server) serveOwnerQuery(w http.ResponseWriter, r *http.Request, query func(crypto.Address) (interface{}, error)) {
	owner, err := crypto.DecodeAddress(chi.URLParam(r, "owner"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid owner address", "parameter")
		return
	}
	result, err := query(owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
