package model

// DashboardSummary is the aggregate returned by GET /dashboard/.
type DashboardSummary struct {
	StockTotal          float64               `json:"stock_total"`
	EstimatedStockValue float64               `json:"estimated_stock_value"`
	ActiveRefining      int                   `json:"active_refining"`
	RefiningHistory     []RefiningHistoryItem `json:"refining_history"`
}

// RefiningHistoryItem is one recently collected refining job in the summary.
type RefiningHistoryItem struct {
	ID       int       `json:"id"`
	Material string    `json:"material"`
	Quantity float64   `json:"quantity"`
	EndedAt  Timestamp `json:"ended_at"`
}

// RefiningJob is one in-progress job from GET /refining/active.
type RefiningJob struct {
	ID               int     `json:"id"`
	MaterialName     string  `json:"material_name"`
	Quantity         float64 `json:"quantity"`
	RemainingSeconds int     `json:"remaining_seconds"`
	TotalSeconds     int     `json:"total_seconds"`
}

// Progress returns completion in [0, 1]. Jobs without a known duration count as done.
func (j RefiningJob) Progress() float64 {
	if j.TotalSeconds <= 0 {
		return 1
	}
	p := 1 - float64(j.RemainingSeconds)/float64(j.TotalSeconds)
	return min(max(p, 0), 1)
}

// CompletedRefiningJob is one entry of GET /refining/history.
type CompletedRefiningJob struct {
	ID              int       `json:"id"`
	Material        string    `json:"material"`
	Quantity        float64   `json:"quantity"`
	StartedAt       Timestamp `json:"started_at"`
	CompletedAt     Timestamp `json:"completed_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

// LocationInfo identifies a trading location.
type LocationInfo struct {
	ID           *int   `json:"id,omitempty"`
	Name         string `json:"name"`
	Code         string `json:"code,omitempty"`
	System       string `json:"system,omitempty"`
	Planet       string `json:"planet,omitempty"`
	LocationType string `json:"location_type,omitempty"`
	FullPath     string `json:"full_path,omitempty"`
}

// MaterialMarket is one commodity from GET /market/materials.
// Price fields are nil when no location reports a price.
type MaterialMarket struct {
	ID               int           `json:"id"`
	Name             string        `json:"name"`
	Category         string        `json:"category"`
	Unit             string        `json:"unit"`
	IsMineable       bool          `json:"is_mineable"`
	IsSalvage        bool          `json:"is_salvage"`
	IsTradeGood      bool          `json:"is_trade_good"`
	AvgBuyPrice      *float64      `json:"avg_buy_price"`
	AvgSellPrice     *float64      `json:"avg_sell_price"`
	MinBuyPrice      *float64      `json:"min_buy_price"`
	MaxSellPrice     *float64      `json:"max_sell_price"`
	BestBuyLocation  *LocationInfo `json:"best_buy_location"`
	BestSellLocation *LocationInfo `json:"best_sell_location"`
	AvailableAt      int           `json:"available_at"`
}

// CrewMember is a user that can be referenced by history events.
type CrewMember struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// HistoryEvent is a free-form logged event from GET /stats/history.
type HistoryEvent struct {
	ID                int          `json:"id"`
	UserID            int          `json:"user_id"`
	Title             string       `json:"title"`
	Description       *string      `json:"description"`
	EventType         *string      `json:"event_type"`
	Tags              []string     `json:"tags"`
	CrewMemberIDs     []int        `json:"crew_members_ids"`
	CrewMemberDetails []CrewMember `json:"crew_members_details"`
	Amount            *float64     `json:"amount"`
	Location          *string      `json:"location"`
	EventDate         Timestamp    `json:"event_date"`
	CreatedAt         Timestamp    `json:"created_at"`
}

// HistoryEventInput is the body of POST /stats/history.
type HistoryEventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	EventType   string    `json:"event_type,omitempty"`
	Tags        []string  `json:"tags"`
	CrewMembers []int     `json:"crew_members"`
	Amount      *float64  `json:"amount,omitempty"`
	Location    string    `json:"location,omitempty"`
	EventDate   Timestamp `json:"event_date"`
}

// HistoryFilter narrows GET /stats/history. Empty fields are not sent.
type HistoryFilter struct {
	Search string
	Tag    string
}

// User is an account as returned by the auth endpoints.
type User struct {
	ID        int       `json:"id" yaml:"id"`
	Username  string    `json:"username" yaml:"username"`
	Email     *string   `json:"email" yaml:"email,omitempty"`
	Role      string    `json:"role" yaml:"role"`
	IsActive  bool      `json:"is_active" yaml:"is_active"`
	CreatedAt Timestamp `json:"created_at" yaml:"created_at"`
}

// Token is the POST /auth/login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Credentials is the POST /auth/login body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewUser is the POST /auth/register body.
type NewUser struct {
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
}

// PasswordChange is the POST /auth/change-password body.
type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// PasswordReset is the POST /auth/reset-password/{id} body.
type PasswordReset struct {
	NewPassword string `json:"new_password"`
}

// Roles recognised by the backend.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)
