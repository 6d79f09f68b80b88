package service

import (
	"fmt"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Sort fields accepted by the collection operations. Missing numeric
// values sort as 0, missing dates as the zero time.
const (
	SortVolume    = "volume"
	SortLiquidity = "liquidity"
	SortCreated   = "created"
	SortEnd       = "end"
)

// Sort orders. An empty order with a sort field set means descending.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Leaderboard aggregation periods.
const (
	PeriodDay   = "1d"
	PeriodWeek  = "7d"
	PeriodMonth = "30d"
	PeriodAll   = "all"
)

// MarketFilters narrows and orders the market list operation. Q, SortBy
// and Order are applied client-side after the fetch; the remaining
// fields map to upstream query parameters. The whole struct feeds the
// cache key, so client-side-only fields key separately too.
type MarketFilters struct {
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	Active   *bool  `json:"active,omitempty"`
	Closed   *bool  `json:"closed,omitempty"`
	Archived *bool  `json:"archived,omitempty"`
	Category string `json:"category,omitempty"`
	Q        string `json:"q,omitempty"`
	SortBy   string `json:"sortBy,omitempty"`
	Order    string `json:"order,omitempty"`
}

// Validate implements filter validation; zero values pass as absent.
func (f MarketFilters) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Limit, validation.Min(1), validation.Max(500)),
		validation.Field(&f.Offset, validation.Min(0)),
		validation.Field(&f.Q, validation.Length(1, 256)),
		validation.Field(&f.SortBy, validation.In(SortVolume, SortLiquidity, SortCreated, SortEnd)),
		validation.Field(&f.Order, validation.In(OrderAsc, OrderDesc)),
	)
}

// Query returns the upstream query parameters.
func (f MarketFilters) Query() url.Values {
	q := url.Values{}
	setInt(q, "limit", f.Limit)
	setInt(q, "offset", f.Offset)
	setBool(q, "active", f.Active)
	setBool(q, "closed", f.Closed)
	setBool(q, "archived", f.Archived)
	setString(q, "category", f.Category)
	return q
}

// EventFilters narrows and orders the event list operation.
type EventFilters struct {
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	Active   *bool  `json:"active,omitempty"`
	Closed   *bool  `json:"closed,omitempty"`
	Archived *bool  `json:"archived,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Q        string `json:"q,omitempty"`
	SortBy   string `json:"sortBy,omitempty"`
	Order    string `json:"order,omitempty"`
}

func (f EventFilters) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Limit, validation.Min(1), validation.Max(500)),
		validation.Field(&f.Offset, validation.Min(0)),
		validation.Field(&f.Q, validation.Length(1, 256)),
		validation.Field(&f.SortBy, validation.In(SortVolume, SortLiquidity, SortCreated, SortEnd)),
		validation.Field(&f.Order, validation.In(OrderAsc, OrderDesc)),
	)
}

// Query returns the upstream query parameters.
func (f EventFilters) Query() url.Values {
	q := url.Values{}
	setInt(q, "limit", f.Limit)
	setInt(q, "offset", f.Offset)
	setBool(q, "active", f.Active)
	setBool(q, "closed", f.Closed)
	setBool(q, "archived", f.Archived)
	setString(q, "tag", f.Tag)
	return q
}

// SeriesFilters narrows and orders the series list operation. Series
// carry no end date, so SortEnd is not accepted here.
type SeriesFilters struct {
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	Active     *bool  `json:"active,omitempty"`
	Closed     *bool  `json:"closed,omitempty"`
	Recurrence string `json:"recurrence,omitempty"`
	Q          string `json:"q,omitempty"`
	SortBy     string `json:"sortBy,omitempty"`
	Order      string `json:"order,omitempty"`
}

func (f SeriesFilters) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Limit, validation.Min(1), validation.Max(500)),
		validation.Field(&f.Offset, validation.Min(0)),
		validation.Field(&f.Recurrence, validation.In("daily", "weekly", "monthly")),
		validation.Field(&f.Q, validation.Length(1, 256)),
		validation.Field(&f.SortBy, validation.In(SortVolume, SortLiquidity, SortCreated)),
		validation.Field(&f.Order, validation.In(OrderAsc, OrderDesc)),
	)
}

// Query returns the upstream query parameters.
func (f SeriesFilters) Query() url.Values {
	q := url.Values{}
	setInt(q, "limit", f.Limit)
	setInt(q, "offset", f.Offset)
	setBool(q, "active", f.Active)
	setBool(q, "closed", f.Closed)
	setString(q, "recurrence", f.Recurrence)
	return q
}

// CommentFilters narrows the comment list operation. All fields map to
// upstream query parameters.
type CommentFilters struct {
	ParentEntityType string `json:"parentEntityType,omitempty"`
	ParentEntityID   string `json:"parentEntityId,omitempty"`
	UserAddress      string `json:"userAddress,omitempty"`
	Limit            int    `json:"limit,omitempty"`
	Offset           int    `json:"offset,omitempty"`
}

func (f CommentFilters) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.ParentEntityType, validation.In("market", "event", "series")),
		validation.Field(&f.Limit, validation.Min(1), validation.Max(500)),
		validation.Field(&f.Offset, validation.Min(0)),
	)
}

// Query returns the upstream query parameters.
func (f CommentFilters) Query() url.Values {
	q := url.Values{}
	setString(q, "parent_entity_type", f.ParentEntityType)
	setString(q, "parent_entity_id", f.ParentEntityID)
	setString(q, "user_address", f.UserAddress)
	setInt(q, "limit", f.Limit)
	setInt(q, "offset", f.Offset)
	return q
}

// SearchFilters drive the public-search operations. The upstream only
// understands q and limit_per_type; predicate filters and ordering are
// applied client-side on the returned buckets.
type SearchFilters struct {
	Q            string `json:"q"`
	LimitPerType int    `json:"limitPerType,omitempty"`
	Active       *bool  `json:"active,omitempty"`
	Closed       *bool  `json:"closed,omitempty"`
	Archived     *bool  `json:"archived,omitempty"`
	SortBy       string `json:"sortBy,omitempty"`
	Order        string `json:"order,omitempty"`
}

func (f SearchFilters) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Q, validation.Required, validation.Length(1, 256)),
		validation.Field(&f.LimitPerType, validation.Min(1), validation.Max(100)),
		validation.Field(&f.SortBy, validation.In(SortVolume, SortLiquidity, SortCreated, SortEnd)),
		validation.Field(&f.Order, validation.In(OrderAsc, OrderDesc)),
	)
}

// Query returns the upstream query parameters.
func (f SearchFilters) Query() url.Values {
	q := url.Values{}
	setString(q, "q", f.Q)
	setInt(q, "limit_per_type", f.LimitPerType)
	return q
}

func (f SearchFilters) predicates() predicates {
	return predicates{active: f.Active, closed: f.Closed, archived: f.Archived}
}

// TeamFilters narrows the sports team list operation. Q is matched
// client-side against team names.
type TeamFilters struct {
	League string `json:"league,omitempty"`
	Q      string `json:"q,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

func (f TeamFilters) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Q, validation.Length(1, 256)),
		validation.Field(&f.Limit, validation.Min(1), validation.Max(500)),
		validation.Field(&f.Offset, validation.Min(0)),
	)
}

// Query returns the upstream query parameters.
func (f TeamFilters) Query() url.Values {
	q := url.Values{}
	setString(q, "league", f.League)
	setInt(q, "limit", f.Limit)
	setInt(q, "offset", f.Offset)
	return q
}

// LeaderboardFilters narrow the builder leaderboard operation.
type LeaderboardFilters struct {
	Period string `json:"period,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (f LeaderboardFilters) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Period, validation.In(PeriodDay, PeriodWeek, PeriodMonth, PeriodAll)),
		validation.Field(&f.Limit, validation.Min(1), validation.Max(100)),
	)
}

// Query returns the upstream query parameters.
func (f LeaderboardFilters) Query() url.Values {
	q := url.Values{}
	setString(q, "period", f.Period)
	setInt(q, "limit", f.Limit)
	return q
}

// VolumeFilters narrow the per-builder volume operation.
type VolumeFilters struct {
	Period string `json:"period,omitempty"`
}

func (f VolumeFilters) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Period, validation.In(PeriodDay, PeriodWeek, PeriodMonth, PeriodAll)),
	)
}

// Query returns the upstream query parameters.
func (f VolumeFilters) Query() url.Values {
	q := url.Values{}
	setString(q, "period", f.Period)
	return q
}

// validateKey checks a bare path parameter (id, slug, address).
func validateKey(name, value string) error {
	if err := validation.Validate(value, validation.Required, validation.Length(1, 256)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int) {
	if value > 0 {
		q.Set(key, strconv.Itoa(value))
	}
}

func setBool(q url.Values, key string, value *bool) {
	if value != nil {
		q.Set(key, strconv.FormatBool(*value))
	}
}
