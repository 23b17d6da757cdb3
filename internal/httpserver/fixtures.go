package httpserver

import (
	"fmt"
	"os"
	"strings"

	"github.com/stardeck/stardeck/internal/model"
	"gopkg.in/yaml.v3"
)

// Fixtures is the seed data of the mock backend, loaded from YAML.
type Fixtures struct {
	Users     []FixtureUser     `yaml:"users"`
	Stock     []FixtureStock    `yaml:"stock"`
	Materials []FixtureMaterial `yaml:"materials"`
	Refining  []FixtureRefining `yaml:"refining"`
	Completed []FixtureRefining `yaml:"completed"`
	Events    []FixtureEvent    `yaml:"events"`
}

type FixtureUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email,omitempty"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Inactive bool   `yaml:"inactive,omitempty"`
}

// FixtureStock is one inventory line counted by the dashboard summary.
type FixtureStock struct {
	Material string  `yaml:"material"`
	Quantity float64 `yaml:"quantity"`
}

type FixtureLocation struct {
	Name   string `yaml:"name"`
	System string `yaml:"system,omitempty"`
	Planet string `yaml:"planet,omitempty"`
}

type FixtureMaterial struct {
	Name      string           `yaml:"name"`
	Category  string           `yaml:"category"`
	Unit      string           `yaml:"unit,omitempty"`
	Mineable  bool             `yaml:"mineable,omitempty"`
	Salvage   bool             `yaml:"salvage,omitempty"`
	TradeGood bool             `yaml:"trade_good,omitempty"`
	AvgBuy    *float64         `yaml:"avg_buy,omitempty"`
	AvgSell   *float64         `yaml:"avg_sell,omitempty"`
	MinBuy    *float64         `yaml:"min_buy,omitempty"`
	MaxSell   *float64         `yaml:"max_sell,omitempty"`
	BestBuy   *FixtureLocation `yaml:"best_buy,omitempty"`
	BestSell  *FixtureLocation `yaml:"best_sell,omitempty"`
	Locations int              `yaml:"locations,omitempty"`
}

// FixtureRefining describes a refining job relative to server start: a job
// started StartedAgo seconds before boot with TotalSeconds to run.
type FixtureRefining struct {
	Material     string  `yaml:"material"`
	Quantity     float64 `yaml:"quantity"`
	TotalSeconds int     `yaml:"total_seconds"`
	StartedAgo   int     `yaml:"started_ago"`
}

type FixtureEvent struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description,omitempty"`
	Type        string   `yaml:"type,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Amount      *float64 `yaml:"amount,omitempty"`
	Location    string   `yaml:"location,omitempty"`
	User        string   `yaml:"user"`
	Crew        []string `yaml:"crew,omitempty"`
	DaysAgo     int      `yaml:"days_ago,omitempty"`
}

// LoadFixtures reads a fixture file. An empty path yields DefaultFixtures.
func LoadFixtures(path string) (Fixtures, error) {
	if path == "" {
		return DefaultFixtures(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("httpserver: read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("httpserver: parse fixtures %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return Fixtures{}, fmt.Errorf("httpserver: fixtures %s: %w", path, err)
	}
	return f, nil
}

func (f Fixtures) validate() error {
	if len(f.Users) == 0 {
		return fmt.Errorf("at least one user is required")
	}
	seen := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		name := strings.TrimSpace(u.Username)
		if name == "" || u.Password == "" {
			return fmt.Errorf("users[%d]: username and password are required", i)
		}
		if len(u.Password) > 72 {
			return fmt.Errorf("users[%d]: password longer than 72 bytes", i)
		}
		if seen[name] {
			return fmt.Errorf("users[%d]: duplicate username %q", i, name)
		}
		seen[name] = true
		switch u.Role {
		case "", model.RoleAdmin, model.RoleMember:
		default:
			return fmt.Errorf("users[%d]: unknown role %q", i, u.Role)
		}
	}
	for i, e := range f.Events {
		if !seen[e.User] {
			return fmt.Errorf("events[%d]: unknown user %q", i, e.User)
		}
	}
	return nil
}

func price(v float64) *float64 { return &v }

// DefaultFixtures is the built-in data set used when no file is given.
func DefaultFixtures() Fixtures {
	area18 := &FixtureLocation{Name: "Area18", Planet: "ArcCorp", System: "Stanton"}
	lorville := &FixtureLocation{Name: "Lorville", Planet: "Hurston", System: "Stanton"}
	cru := &FixtureLocation{Name: "CRU-L1", System: "Stanton"}

	return Fixtures{
		Users: []FixtureUser{
			{Username: "admin", Password: "admin123", Role: model.RoleAdmin},
			{Username: "pilot", Password: "pilot123", Role: model.RoleMember},
		},
		Stock: []FixtureStock{
			{Material: "Laranite", Quantity: 64},
			{Material: "Agricium", Quantity: 32},
			{Material: "Recycled Material Composite", Quantity: 120},
		},
		Materials: []FixtureMaterial{
			{Name: "Quantanium", Category: "Mineral", Unit: "SCU", Mineable: true,
				AvgSell: price(21870), MaxSell: price(22450), BestSell: area18, Locations: 4},
			{Name: "Laranite", Category: "Mineral", Unit: "SCU", Mineable: true, TradeGood: true,
				AvgBuy: price(2510), AvgSell: price(2890.5), MinBuy: price(2440), MaxSell: price(3020),
				BestBuy: lorville, BestSell: area18, Locations: 9},
			{Name: "Agricium", Category: "Metal", Unit: "SCU", Mineable: true, TradeGood: true,
				AvgBuy: price(2380), AvgSell: price(2705), MinBuy: price(2301), MaxSell: price(2799),
				BestBuy: cru, BestSell: lorville, Locations: 7},
			{Name: "Gold", Category: "Metal", Unit: "SCU", Mineable: true, TradeGood: true,
				AvgBuy: price(5600), AvgSell: price(6120), MinBuy: price(5480), MaxSell: price(6390),
				BestBuy: area18, BestSell: cru, Locations: 6},
			{Name: "Recycled Material Composite", Category: "Salvage", Unit: "SCU", Salvage: true,
				AvgSell: price(1540), MaxSell: price(1610), BestSell: lorville, Locations: 3},
			{Name: "Scrap", Category: "Salvage", Unit: "SCU", Salvage: true, Locations: 0},
		},
		Refining: []FixtureRefining{
			{Material: "Quantanium", Quantity: 12, TotalSeconds: 1800, StartedAgo: 600},
			{Material: "Laranite", Quantity: 40, TotalSeconds: 5400, StartedAgo: 5340},
			{Material: "Gold", Quantity: 8, TotalSeconds: 3600, StartedAgo: 120},
		},
		Completed: []FixtureRefining{
			{Material: "Agricium", Quantity: 32, TotalSeconds: 3600, StartedAgo: 86400},
			{Material: "Laranite", Quantity: 24, TotalSeconds: 7200, StartedAgo: 172800},
		},
		Events: []FixtureEvent{
			{Title: "Sold Laranite at Area18", Type: "sale", Tags: []string{"trade", "mining"},
				Amount: price(184000), Location: "Area18", User: "admin", Crew: []string{"pilot"}, DaysAgo: 1},
			{Title: "Bought ship components", Type: "purchase", Tags: []string{"ship"},
				Amount: price(-52000), Location: "Lorville", User: "pilot", DaysAgo: 3},
			{Title: "Salvage run", Description: "Two hulls stripped near CRU-L1", Type: "salvage",
				Tags: []string{"salvage"}, User: "pilot", Crew: []string{"admin"}, DaysAgo: 5},
		},
	}
}
