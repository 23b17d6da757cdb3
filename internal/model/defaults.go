package model

import "time"

// Shared defaults used by the dashboard, the watch command and the mock backend.
const (
	DefaultAPIURL                  = "http://127.0.0.1:8000"
	DefaultRequestTimeout          = 15 * time.Second
	DefaultDashboardInterval       = 5 * time.Second
	DefaultRefiningInterval        = 5 * time.Second
	DefaultRefiningHistoryInterval = 30 * time.Second
	DefaultMarketInterval          = 30 * time.Second
	DefaultMockAddr                = "127.0.0.1:8000"
)

// Zero intervals mean fetch once on mount and refresh on demand.
const (
	DefaultHistoryInterval time.Duration = 0
	DefaultUsersInterval   time.Duration = 0
)
