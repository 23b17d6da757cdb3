package httpserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stardeck/stardeck/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Error texts double as the "detail" of the response body.
var (
	errBadCredentials = errors.New("Incorrect username or password")
	errInactiveUser   = errors.New("Inactive user")
	errUsernameTaken  = errors.New("Username already registered")
	errWrongPassword  = errors.New("Incorrect password")
	errNotFound       = errors.New("Not found")
	errForbidden      = errors.New("Not enough permissions")
	errPasswordLength = errors.New("Password must be at most 72 bytes")
)

// Mock accounts are throwaway; the minimum cost keeps logins fast.
const hashCost = bcrypt.MinCost

type account struct {
	user model.User
	hash []byte
}

func hashPassword(password string) ([]byte, error) {
	if len(password) > 72 {
		return nil, errPasswordLength
	}
	return bcrypt.GenerateFromPassword([]byte(password), hashCost)
}

func (a *account) checkPassword(password string) bool {
	return a.hash != nil && bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
}

type refiningJob struct {
	id        int
	material  string
	quantity  float64
	total     time.Duration
	startedAt time.Time
}

// Store is the mutable in-memory state behind the mock API.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	accounts  []*account
	tokens    map[string]int
	stock     []FixtureStock
	materials []model.MaterialMarket
	active    []refiningJob
	completed []model.CompletedRefiningJob
	events    []model.HistoryEvent
	nextUser  int
	nextEvent int
}

// NewStore seeds a store from fixtures. Relative times are resolved against now.
func NewStore(f Fixtures, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{
		now:       now,
		tokens:    make(map[string]int),
		stock:     f.Stock,
		nextUser:  1,
		nextEvent: 1,
	}
	boot := now()

	byName := make(map[string]int)
	for _, u := range f.Users {
		role := u.Role
		if role == "" {
			role = model.RoleMember
		}
		a := &account{
			user: model.User{
				ID:        s.nextUser,
				Username:  u.Username,
				Role:      role,
				IsActive:  !u.Inactive,
				CreatedAt: model.Timestamp{Time: boot},
			},
		}
		// Fixtures are validated on load, so a hash failure only locks the account.
		a.hash, _ = hashPassword(u.Password)
		if u.Email != "" {
			email := u.Email
			a.user.Email = &email
		}
		byName[u.Username] = a.user.ID
		s.accounts = append(s.accounts, a)
		s.nextUser++
	}

	for i, m := range f.Materials {
		s.materials = append(s.materials, model.MaterialMarket{
			ID:               i + 1,
			Name:             m.Name,
			Category:         m.Category,
			Unit:             m.Unit,
			IsMineable:       m.Mineable,
			IsSalvage:        m.Salvage,
			IsTradeGood:      m.TradeGood,
			AvgBuyPrice:      m.AvgBuy,
			AvgSellPrice:     m.AvgSell,
			MinBuyPrice:      m.MinBuy,
			MaxSellPrice:     m.MaxSell,
			BestBuyLocation:  location(m.BestBuy),
			BestSellLocation: location(m.BestSell),
			AvailableAt:      m.Locations,
		})
	}

	for i, r := range f.Refining {
		s.active = append(s.active, refiningJob{
			id:        i + 1,
			material:  r.Material,
			quantity:  r.Quantity,
			total:     time.Duration(r.TotalSeconds) * time.Second,
			startedAt: boot.Add(-time.Duration(r.StartedAgo) * time.Second),
		})
	}
	for i, r := range f.Completed {
		started := boot.Add(-time.Duration(r.StartedAgo) * time.Second)
		total := time.Duration(r.TotalSeconds) * time.Second
		s.completed = append(s.completed, model.CompletedRefiningJob{
			ID:              len(f.Refining) + i + 1,
			Material:        r.Material,
			Quantity:        r.Quantity,
			StartedAt:       model.Timestamp{Time: started},
			CompletedAt:     model.Timestamp{Time: started.Add(total)},
			DurationMinutes: int(total / time.Minute),
		})
	}

	for _, e := range f.Events {
		crew := make([]int, 0, len(e.Crew))
		for _, name := range e.Crew {
			if id, ok := byName[name]; ok {
				crew = append(crew, id)
			}
		}
		in := model.HistoryEventInput{
			Title:       e.Title,
			Description: e.Description,
			EventType:   e.Type,
			Tags:        e.Tags,
			CrewMembers: crew,
			Amount:      e.Amount,
			Location:    e.Location,
			EventDate:   model.Timestamp{Time: boot.AddDate(0, 0, -e.DaysAgo)},
		}
		s.createEventLocked(byName[e.User], in)
	}
	return s
}

func location(l *FixtureLocation) *model.LocationInfo {
	if l == nil {
		return nil
	}
	return &model.LocationInfo{Name: l.Name, System: l.System, Planet: l.Planet}
}

func (s *Store) Login(username, password string) (model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(func(a *account) bool { return a.user.Username == username })
	if a == nil || !a.checkPassword(password) {
		return model.Token{}, errBadCredentials
	}
	if !a.user.IsActive {
		return model.Token{}, errInactiveUser
	}
	tok := uuid.NewString()
	s.tokens[tok] = a.user.ID
	return model.Token{AccessToken: tok, TokenType: "bearer", User: a.user}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Store) Authenticate(token string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.tokens[token]
	if !ok {
		return model.User{}, false
	}
	a := s.findLocked(func(a *account) bool { return a.user.ID == id })
	if a == nil || !a.user.IsActive {
		return model.User{}, false
	}
	return a.user, true
}

func (s *Store) Users() []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.user)
	}
	return out
}

func (s *Store) Register(in model.NewUser) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(func(a *account) bool { return a.user.Username == in.Username }) != nil {
		return model.User{}, errUsernameTaken
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}
	role := in.Role
	if role == "" {
		role = model.RoleMember
	}
	a := &account{
		user: model.User{
			ID:        s.nextUser,
			Username:  in.Username,
			Email:     in.Email,
			Role:      role,
			IsActive:  true,
			CreatedAt: model.Timestamp{Time: s.now()},
		},
		hash: hash,
	}
	s.nextUser++
	s.accounts = append(s.accounts, a)
	return a.user, nil
}

func (s *Store) ResetPassword(userID int, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(func(a *account) bool { return a.user.ID == userID })
	if a == nil {
		return errNotFound
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	a.hash = hash
	return nil
}

func (s *Store) ChangePassword(userID int, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(func(a *account) bool { return a.user.ID == userID })
	if a == nil {
		return errNotFound
	}
	if !a.checkPassword(oldPassword) {
		return errWrongPassword
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	a.hash = hash
	return nil
}

func (s *Store) findLocked(match func(*account) bool) *account {
	for _, a := range s.accounts {
		if match(a) {
			return a
		}
	}
	return nil
}

// ActiveRefining reports jobs still held by the refinery with their remaining
// time computed from the start time. Finished jobs report zero until they are
// moved to the history by a later call.
func (s *Store) ActiveRefining() []model.RefiningJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Store) activeLocked() []model.RefiningJob {
	now := s.now()
	out := make([]model.RefiningJob, 0, len(s.active))
	var still []refiningJob
	for _, j := range s.active {
		remaining := j.total - now.Sub(j.startedAt)
		if remaining <= -time.Minute {
			// Collected a minute after it finished.
			s.completed = append(s.completed, model.CompletedRefiningJob{
				ID:              j.id,
				Material:        j.material,
				Quantity:        j.quantity,
				StartedAt:       model.Timestamp{Time: j.startedAt},
				CompletedAt:     model.Timestamp{Time: j.startedAt.Add(j.total)},
				DurationMinutes: int(j.total / time.Minute),
			})
			continue
		}
		still = append(still, j)
		out = append(out, model.RefiningJob{
			ID:               j.id,
			MaterialName:     j.material,
			Quantity:         j.quantity,
			RemainingSeconds: max(int(remaining/time.Second), 0),
			TotalSeconds:     int(j.total / time.Second),
		})
	}
	s.active = still
	return out
}

// RefiningHistory returns completed jobs, most recent first.
func (s *Store) RefiningHistory(limit, offset int) []model.CompletedRefiningJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeLocked()

	sorted := append([]model.CompletedRefiningJob(nil), s.completed...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CompletedAt.After(sorted[j].CompletedAt.Time) })
	if offset >= len(sorted) {
		return []model.CompletedRefiningJob{}
	}
	sorted = sorted[offset:]
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}

func (s *Store) Materials() []model.MaterialMarket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.MaterialMarket(nil), s.materials...)
}

const recentRefiningLimit = 5

// Dashboard aggregates stock, its value at average sell prices and refinery activity.
func (s *Store) Dashboard() model.DashboardSummary {
	active := s.ActiveRefining()
	recent := s.RefiningHistory(recentRefiningLimit, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	prices := make(map[string]float64, len(s.materials))
	for _, m := range s.materials {
		if m.AvgSellPrice != nil {
			prices[m.Name] = *m.AvgSellPrice
		}
	}
	var summary model.DashboardSummary
	for _, st := range s.stock {
		summary.StockTotal += st.Quantity
		summary.EstimatedStockValue += st.Quantity * prices[st.Material]
	}
	for _, j := range active {
		if j.RemainingSeconds > 0 {
			summary.ActiveRefining++
		}
	}
	summary.RefiningHistory = make([]model.RefiningHistoryItem, 0, len(recent))
	for _, r := range recent {
		summary.RefiningHistory = append(summary.RefiningHistory, model.RefiningHistoryItem{
			ID:       r.ID,
			Material: r.Material,
			Quantity: r.Quantity,
			EndedAt:  r.CompletedAt,
		})
	}
	return summary
}

// HistoryEvents filters by a case-insensitive search over title, description
// and location, and by exact tag. Newest events come first.
func (s *Store) HistoryEvents(f model.HistoryFilter) []model.HistoryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.HistoryEvent, 0, len(s.events))
	for _, e := range s.events {
		if f.Tag != "" && !containsString(e.Tags, f.Tag) {
			continue
		}
		if q != "" && !eventMatches(e, q) {
			continue
		}
		out = append(out, s.withCrewLocked(e))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EventDate.After(out[j].EventDate.Time) })
	return out
}

func eventMatches(e model.HistoryEvent, q string) bool {
	fields := []string{e.Title}
	if e.Description != nil {
		fields = append(fields, *e.Description)
	}
	if e.Location != nil {
		fields = append(fields, *e.Location)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *Store) withCrewLocked(e model.HistoryEvent) model.HistoryEvent {
	e.CrewMemberDetails = make([]model.CrewMember, 0, len(e.CrewMemberIDs))
	for _, id := range e.CrewMemberIDs {
		if a := s.findLocked(func(a *account) bool { return a.user.ID == id }); a != nil {
			e.CrewMemberDetails = append(e.CrewMemberDetails, model.CrewMember{ID: id, Username: a.user.Username})
		}
	}
	return e
}

func (s *Store) CreateEvent(userID int, in model.HistoryEventInput) model.HistoryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withCrewLocked(s.createEventLocked(userID, in))
}

func (s *Store) createEventLocked(userID int, in model.HistoryEventInput) model.HistoryEvent {
	e := model.HistoryEvent{
		ID:            s.nextEvent,
		UserID:        userID,
		Title:         in.Title,
		Tags:          append([]string{}, in.Tags...),
		CrewMemberIDs: append([]int{}, in.CrewMembers...),
		Amount:        in.Amount,
		EventDate:     in.EventDate,
		CreatedAt:     model.Timestamp{Time: s.now()},
	}
	if e.EventDate.IsZero() {
		e.EventDate = e.CreatedAt
	}
	if in.Description != "" {
		d := in.Description
		e.Description = &d
	}
	if in.EventType != "" {
		t := in.EventType
		e.EventType = &t
	}
	if in.Location != "" {
		l := in.Location
		e.Location = &l
	}
	s.nextEvent++
	s.events = append(s.events, e)
	return e
}

// DeleteEvent removes an event. Members may only delete their own events.
func (s *Store) DeleteEvent(user model.User, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.events {
		if e.ID != id {
			continue
		}
		if e.UserID != user.ID && user.Role != model.RoleAdmin {
			return errForbidden
		}
		s.events = append(s.events[:i], s.events[i+1:]...)
		return nil
	}
	return errNotFound
}

// Tags lists every tag in use, sorted.
func (s *Store) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	tags := []string{}
	for _, e := range s.events {
		for _, t := range e.Tags {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// Crew lists active users that can be referenced by events.
func (s *Store) Crew() []model.CrewMember {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.CrewMember, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.user.IsActive {
			out = append(out, model.CrewMember{ID: a.user.ID, Username: a.user.Username})
		}
	}
	return out
}
