package model

import "context"

// EconomyReader provides the read-only economy views polled by the dashboard.
type EconomyReader interface {
	Dashboard(ctx context.Context) (DashboardSummary, error)
	ActiveRefining(ctx context.Context) ([]RefiningJob, error)
	RefiningHistory(ctx context.Context, limit, offset int) ([]CompletedRefiningJob, error)
	MarketMaterials(ctx context.Context) ([]MaterialMarket, error)
}

// HistoryStore provides the commerce/event log operations.
type HistoryStore interface {
	HistoryEvents(ctx context.Context, filter HistoryFilter) ([]HistoryEvent, error)
	CreateHistoryEvent(ctx context.Context, in HistoryEventInput) (HistoryEvent, error)
	DeleteHistoryEvent(ctx context.Context, id int) error
	HistoryTags(ctx context.Context) ([]string, error)
	AvailableCrew(ctx context.Context) ([]CrewMember, error)
}

// AccountManager provides authentication and admin account management.
type AccountManager interface {
	Login(ctx context.Context, creds Credentials) (Token, error)
	Me(ctx context.Context) (User, error)
	Users(ctx context.Context) ([]User, error)
	Register(ctx context.Context, in NewUser) (User, error)
	ResetPassword(ctx context.Context, userID int, newPassword string) error
	ChangePassword(ctx context.Context, in PasswordChange) error
}

// Backend is the full contract the dashboard consumes from the remote API.
type Backend interface {
	EconomyReader
	HistoryStore
	AccountManager
}
