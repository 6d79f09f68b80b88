package upstream

// Market is a tradeable prediction market.
type Market struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
	Archived    bool      `json:"archived"`
	Volume      Number    `json:"volume"`
	Liquidity   Number    `json:"liquidity"`
	StartDate   Timestamp `json:"startDate"`
	EndDate     Timestamp `json:"endDate"`
	CreatedAt   Timestamp `json:"createdAt"`
	Outcomes    []string  `json:"outcomes,omitempty"`
}

// Event groups related markets under one umbrella (e.g. an election).
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
	Archived    bool      `json:"archived"`
	Volume      Number    `json:"volume"`
	Liquidity   Number    `json:"liquidity"`
	StartDate   Timestamp `json:"startDate"`
	EndDate     Timestamp `json:"endDate"`
	CreatedAt   Timestamp `json:"createdAt"`
	Markets     []Market  `json:"markets,omitempty"`
	Tags        []Tag     `json:"tags,omitempty"`
}

// Series is a recurring collection of events (e.g. a weekly game slate).
type Series struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Active     bool      `json:"active"`
	Closed     bool      `json:"closed"`
	Archived   bool      `json:"archived"`
	Volume     Number    `json:"volume"`
	Liquidity  Number    `json:"liquidity"`
	Recurrence string    `json:"recurrence,omitempty"`
	CreatedAt  Timestamp `json:"createdAt"`
}

// Comment is a user comment attached to a market, event, or series.
type Comment struct {
	ID               string    `json:"id"`
	Body             string    `json:"body"`
	ParentEntityType string    `json:"parentEntityType"`
	ParentEntityID   string    `json:"parentEntityId"`
	UserAddress      string    `json:"userAddress"`
	CreatedAt        Timestamp `json:"createdAt"`
}

// Tag labels events and search results.
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// SearchResult is the multi-bucket payload of the public search endpoint.
type SearchResult struct {
	Markets []Market `json:"markets"`
	Events  []Event  `json:"events"`
	Tags    []Tag    `json:"tags"`
}

// Team is a sports team referenced by sports markets.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	League       string `json:"league"`
	Abbreviation string `json:"abbreviation,omitempty"`
	Record       string `json:"record,omitempty"`
	Logo         string `json:"logo,omitempty"`
}

// League is a supported sports league.
type League struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Sport  string `json:"sport"`
	Active bool   `json:"active"`
}

// BuilderStanding is one row of the builder leaderboard.
type BuilderStanding struct {
	Rank    int    `json:"rank"`
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Volume  Number `json:"volume"`
	Trades  int64  `json:"trades"`
}

// BuilderVolume is the aggregate volume attributed to one builder.
type BuilderVolume struct {
	Address   string    `json:"address"`
	Period    string    `json:"period"`
	Volume    Number    `json:"volume"`
	Trades    int64     `json:"trades"`
	UpdatedAt Timestamp `json:"updatedAt"`
}
