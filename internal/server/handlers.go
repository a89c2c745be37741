package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/sectorflow/internal/alignment"
	"github.com/rewired-gh/sectorflow/internal/feed"
	"github.com/rewired-gh/sectorflow/internal/market"
	"github.com/rewired-gh/sectorflow/internal/metrics"
	"github.com/rewired-gh/sectorflow/internal/models"
	"github.com/rewired-gh/sectorflow/internal/spend"
	"github.com/rewired-gh/sectorflow/internal/synth"
)

// User-facing error messages.
const (
	errInvalidAsOf     = "Invalid asOf date."
	errGenerateFeed    = "Failed to generate community feed."
	errNoTickers       = "No tickers provided"
	errInvalidBody     = "Invalid request body."
	errInvalidLimit    = "Invalid limit."
	errHistoryDisabled = "Snapshot history is not enabled."
	errHistoryFailed   = "Failed to load snapshot history."
	errPulseDisabled   = "Market pulse is not enabled."
	errPulseFailed     = "Failed to build market pulse."
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 365
	maxBodyBytes        = 1 << 20
)

// envelope is the {ok, data|error} response shape of the community routes.
type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type marketResponse struct {
	Items []models.ReturnRecord `json:"items"`
}

// spendRequest is the personal spend input shared by the alignment and spend routes.
type spendRequest struct {
	Transactions []spend.Transaction `json:"transactions"`
	SectorMap    map[string]string   `json:"sectorMap"`
}

type autoInvestRequest struct {
	spendRequest
	Rules   []spend.Rule `json:"rules"`
	Enabled *bool        `json:"enabled"`
}

type alignmentRequest struct {
	spendRequest
	AsOf    string   `json:"asOf"`
	Sectors []string `json:"sectors"`
	Tickers []string `json:"tickers"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

// handleCommunity handles GET /api/community
func (s *Server) handleCommunity(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	f, msg := s.communityFeed(r)
	if msg != "" {
		s.writeJSON(w, http.StatusOK, envelope{Error: msg})
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{OK: true, Data: f})
}

// handleBreakdown handles GET /api/community/breakdown
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	f, msg := s.communityFeed(r)
	if msg != "" {
		s.writeJSON(w, http.StatusOK, envelope{Error: msg})
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{OK: true, Data: feed.Breakdown(f)})
}

// handleHistory handles GET /api/community/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, envelope{Error: errHistoryDisabled})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeJSON(w, http.StatusBadRequest, envelope{Error: errInvalidLimit})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	headers, err := s.history.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list snapshots")
		s.writeJSON(w, http.StatusOK, envelope{Error: errHistoryFailed})
		return
	}
	if headers == nil {
		headers = []models.SnapshotHeader{}
	}
	s.writeJSON(w, http.StatusOK, envelope{OK: true, Data: headers})
}

// handleSignals handles GET /api/signals
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{OK: true, Data: synth.Glossary()})
}

// handleMarket handles GET /api/market
func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	maxTickers := market.DefaultMaxTickers
	if s.market != nil {
		maxTickers = s.market.MaxTickers()
	}

	tickers := market.ParseTickers(r.URL.Query().Get("tickers"), maxTickers)
	if len(tickers) == 0 {
		http.Error(w, errNoTickers, http.StatusBadRequest)
		return
	}

	items := []models.ReturnRecord{}
	if s.market != nil {
		records, failures, err := s.market.Returns(r.Context(), tickers)
		if err != nil {
			s.log.Warn().Err(err).Msg("Market request cancelled")
		}
		for _, f := range failures {
			s.log.Debug().Str("ticker", f.Ticker).Err(f.Err).Msg("Ticker omitted")
		}
		if records != nil {
			items = records
		}
	}
	s.writeJSON(w, http.StatusOK, marketResponse{Items: items})
}

// handlePulse handles GET /api/pulse
func (s *Server) handlePulse(w http.ResponseWriter, r *http.Request) {
	if s.pulse == nil {
		s.writeJSON(w, http.StatusOK, envelope{Error: errPulseDisabled})
		return
	}

	p, err := s.pulse.Build(r.Context(), splitList(r.URL.Query().Get("sectors")))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build pulse")
		s.writeJSON(w, http.StatusOK, envelope{Error: errPulseFailed})
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{OK: true, Data: p})
}

// handleAlignment handles POST /api/alignment
func (s *Server) handleAlignment(w http.ResponseWriter, r *http.Request) {
	var req alignmentRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.log.Debug().Err(err).Msg("Malformed alignment request")
		s.writeJSON(w, http.StatusBadRequest, envelope{Error: errInvalidBody})
		return
	}

	asOf, ok := s.parseAsOf(req.AsOf)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, envelope{Error: errInvalidAsOf})
		return
	}

	sectors := req.Sectors
	tickers := req.Tickers
	if len(req.Transactions) > 0 {
		summary := spend.Summarize(req.Transactions, req.SectorMap, s.feed.Universe())
		sectors = append(append([]string{}, sectors...), summary.TopSectors...)
		tickers = append(append([]string{}, tickers...), summary.Tickers...)
	}

	f, err := s.generate(asOf)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to generate community feed")
		s.writeJSON(w, http.StatusOK, envelope{Error: errGenerateFeed})
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{OK: true, Data: alignment.Compute(sectors, tickers, f)})
}

// handleSpendSummary handles POST /api/spend/summary
func (s *Server) handleSpendSummary(w http.ResponseWriter, r *http.Request) {
	var req spendRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{Error: errInvalidBody})
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{OK: true, Data: spend.Summarize(req.Transactions, req.SectorMap, s.feed.Universe())})
}

// handleAutoInvest handles POST /api/spend/autoinvest
func (s *Server) handleAutoInvest(w http.ResponseWriter, r *http.Request) {
	var req autoInvestRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{Error: errInvalidBody})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	summary := spend.Summarize(req.Transactions, req.SectorMap, s.feed.Universe())
	preview, err := spend.PreviewRules(summary, req.Rules, enabled)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{Error: fmt.Sprintf("Invalid auto-invest rule: %v.", err)})
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{OK: true, Data: preview})
}

// communityFeed resolves the asOf query parameter and generates its feed.
// A non-empty message means the request failed.
func (s *Server) communityFeed(r *http.Request) (models.CommunityFeed, string) {
	asOf, ok := s.parseAsOf(r.URL.Query().Get("asOf"))
	if !ok {
		return models.CommunityFeed{}, errInvalidAsOf
	}

	f, err := s.generate(asOf)
	if err != nil {
		s.log.Error().Err(err).Str("as_of", models.FormatDate(asOf)).Msg("Failed to generate community feed")
		return models.CommunityFeed{}, errGenerateFeed
	}
	return f, ""
}

// generate runs the feed generator and turns a panic into an error.
func (s *Server) generate(asOf time.Time) (f models.CommunityFeed, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("feed generation panicked: %v", rec)
		}
		if err != nil {
			s.metrics.ObserveFeed(metrics.ResultError)
		} else {
			s.metrics.ObserveFeed(metrics.ResultOK)
		}
	}()
	return s.feed.Generate(asOf)
}

// parseAsOf returns today for an empty value.
func (s *Server) parseAsOf(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now(), true
	}
	t, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
