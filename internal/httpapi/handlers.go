package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jshsmth/glitch-markets-sub000/internal/service"
	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

type listResponse struct {
	Data  any `json:"data"`
	Count int `json:"count"`
}

type errorResponse struct {
	Error          string `json:"error"`
	Status         int    `json:"status"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r)
	filters := service.MarketFilters{
		Limit:    q.Int("limit"),
		Offset:   q.Int("offset"),
		Active:   q.Bool("active"),
		Closed:   q.Bool("closed"),
		Archived: q.Bool("archived"),
		Category: q.String("category"),
		Q:        q.String("q"),
		SortBy:   q.String("sort_by"),
		Order:    q.String("order"),
	}
	if err := q.Err(); err != nil {
		s.writeBadRequest(w, err)
		return
	}

	markets, err := s.markets.Markets(r.Context(), filters, bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(s, w, markets)
}

func (s *Server) handleMarketByID(w http.ResponseWriter, r *http.Request) {
	market, err := s.markets.MarketByID(r.Context(), r.PathValue("id"), bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if market == nil {
		s.writeNotFound(w, "market not found")
		return
	}
	s.writeJSON(w, http.StatusOK, market)
}

func (s *Server) handleMarketBySlug(w http.ResponseWriter, r *http.Request) {
	market, err := s.markets.MarketBySlug(r.Context(), r.PathValue("slug"), bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if market == nil {
		s.writeNotFound(w, "market not found")
		return
	}
	s.writeJSON(w, http.StatusOK, market)
}

func (s *Server) handleSearchMarkets(w http.ResponseWriter, r *http.Request) {
	filters, err := searchFiltersFromQuery(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}

	markets, err := s.markets.SearchMarkets(r.Context(), filters, bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(s, w, markets)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r)
	filters := service.EventFilters{
		Limit:    q.Int("limit"),
		Offset:   q.Int("offset"),
		Active:   q.Bool("active"),
		Closed:   q.Bool("closed"),
		Archived: q.Bool("archived"),
		Tag:      q.String("tag"),
		Q:        q.String("q"),
		SortBy:   q.String("sort_by"),
		Order:    q.String("order"),
	}
	if err := q.Err(); err != nil {
		s.writeBadRequest(w, err)
		return
	}

	events, err := s.events.Events(r.Context(), filters, bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(s, w, events)
}

func (s *Server) handleEventByID(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.EventByID(r.Context(), r.PathValue("id"), bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if event == nil {
		s.writeNotFound(w, "event not found")
		return
	}
	s.writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleEventBySlug(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.EventBySlug(r.Context(), r.PathValue("slug"), bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if event == nil {
		s.writeNotFound(w, "event not found")
		return
	}
	s.writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleSearchEvents(w http.ResponseWriter, r *http.Request) {
	filters, err := searchFiltersFromQuery(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}

	events, err := s.events.SearchEvents(r.Context(), filters, bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(s, w, events)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r)
	filters := service.SeriesFilters{
		Limit:      q.Int("limit"),
		Offset:     q.Int("offset"),
		Active:     q.Bool("active"),
		Closed:     q.Bool("closed"),
		Recurrence: q.String("recurrence"),
		Q:          q.String("q"),
		SortBy:     q.String("sort_by"),
		Order:      q.String("order"),
	}
	if err := q.Err(); err != nil {
		s.writeBadRequest(w, err)
		return
	}

	series, err := s.series.Series(r.Context(), filters, bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(s, w, series)
}

func (s *Server) handleSeriesByID(w http.ResponseWriter, r *http.Request) {
	series, err := s.series.SeriesByID(r.Context(), r.PathValue("id"), bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if series == nil {
		s.writeNotFound(w, "series not found")
		return
	}
	s.writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r)
	filters := service.CommentFilters{
		ParentEntityType: q.String("parent_entity_type"),
		ParentEntityID:   q.String("parent_entity_id"),
		UserAddress:      q.String("user_address"),
		Limit:            q.Int("limit"),
		Offset:           q.Int("offset"),
	}
	if err := q.Err(); err != nil {
		s.writeBadRequest(w, err)
		return
	}

	comments, err := s.comments.Comments(r.Context(), filters, bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(s, w, comments)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	filters, err := searchFiltersFromQuery(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}

	result, err := s.search.Search(r.Context(), filters, bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		result = &upstream.SearchResult{}
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r)
	filters := service.TeamFilters{
		League: q.String("league"),
		Q:      q.String("q"),
		Limit:  q.Int("limit"),
		Offset: q.Int("offset"),
	}
	if err := q.Err(); err != nil {
		s.writeBadRequest(w, err)
		return
	}

	teams, err := s.sports.Teams(r.Context(), filters, bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(s, w, teams)
}

func (s *Server) handleLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := s.sports.Leagues(r.Context(), bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(s, w, leagues)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r)
	filters := service.LeaderboardFilters{
		Period: q.String("period"),
		Limit:  q.Int("limit"),
	}
	if err := q.Err(); err != nil {
		s.writeBadRequest(w, err)
		return
	}

	standings, err := s.builders.Leaderboard(r.Context(), filters, bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(s, w, standings)
}

func (s *Server) handleBuilderVolume(w http.ResponseWriter, r *http.Request) {
	filters := service.VolumeFilters{Period: r.URL.Query().Get("period")}

	volume, err := s.builders.Volume(r.Context(), r.PathValue("address"), filters, bypassOptions(r)...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if volume == nil {
		s.writeNotFound(w, "builder volume not found")
		return
	}
	s.writeJSON(w, http.StatusOK, volume)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": s.serviceName,
		"version": s.serviceVersion,
	})
}

type readyResponse struct {
	Status       string         `json:"status"`
	CacheEntries int            `json:"cache_entries"`
	Upstream     upstreamHealth `json:"upstream"`
}

type upstreamHealth struct {
	Provider            string `json:"provider"`
	CircuitState        string `json:"circuit_state"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastSuccess         string `json:"last_success,omitempty"`
	LastError           string `json:"last_error,omitempty"`
}

// handleReadyz reports readiness from the upstream health snapshot. An
// open circuit means the gateway cannot serve fresh data and should be
// pulled from rotation.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	health := s.registry.Client().Health()

	resp := readyResponse{
		Status:       "ready",
		CacheEntries: s.registry.CacheLen(),
		Upstream: upstreamHealth{
			Provider:            health.Provider,
			CircuitState:        health.CircuitState,
			ConsecutiveFailures: health.ConsecutiveFailures,
			LastError:           health.LastError,
		},
	}
	if !health.LastSuccess.IsZero() {
		resp.Upstream.LastSuccess = health.LastSuccess.UTC().Format(time.RFC3339)
	}

	status := http.StatusOK
	switch health.CircuitState {
	case "open":
		resp.Status = "unready"
		status = http.StatusServiceUnavailable
	case "half-open":
		resp.Status = "degraded"
	}

	s.writeJSON(w, status, resp)
}

// searchFiltersFromQuery parses the shared public-search parameter set.
func searchFiltersFromQuery(r *http.Request) (service.SearchFilters, error) {
	q := newQueryReader(r)
	filters := service.SearchFilters{
		Q:            q.String("q"),
		LimitPerType: q.Int("limit_per_type"),
		Active:       q.Bool("active"),
		Closed:       q.Bool("closed"),
		Archived:     q.Bool("archived"),
		SortBy:       q.String("sort_by"),
		Order:        q.String("order"),
	}
	return filters, q.Err()
}

// writeList responds with a data envelope, normalizing nil slices so
// clients always receive an array.
func writeList[T any](s *Server, w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	s.writeJSON(w, http.StatusOK, listResponse{Data: items, Count: len(items)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeBadRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:  err.Error(),
		Status: http.StatusBadRequest,
	})
}

func (s *Server) writeNotFound(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusNotFound, errorResponse{
		Error:  msg,
		Status: http.StatusNotFound,
	})
}

// writeError maps service errors onto HTTP statuses: validation
// failures are the caller's fault, upstream failures surface as a bad
// gateway with the upstream status attached, anything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if isValidationError(err) {
		s.writeBadRequest(w, err)
		return
	}

	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		s.writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:          "upstream request failed",
			Status:         http.StatusBadGateway,
			UpstreamStatus: apiErr.StatusCode,
		})
		return
	}

	s.logger.LogError(r.Context(), "request failed", err,
		"request_id", RequestIDFrom(r.Context()),
		"path", r.URL.Path,
	)
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:  "internal error",
		Status: http.StatusInternalServerError,
	})
}

// isValidationError recognizes both struct-level and single-value
// ozzo results.
func isValidationError(err error) bool {
	var errs validation.Errors
	if errors.As(err, &errs) {
		return true
	}
	var single validation.Error
	return errors.As(err, &single)
}
