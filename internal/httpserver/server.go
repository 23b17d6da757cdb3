// Package httpserver is a mock of the economy backend for local development
// and end-to-end tests of the dashboard.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
)

// Options tunes the mock's misbehaviour.
type Options struct {
	// Latency delays every API response.
	Latency time.Duration
	// FailEvery makes every Nth API request fail with a 500. Zero disables it.
	FailEvery int
	Logger    logger.Logger
}

// Server serves the mock API over HTTP.
type Server struct {
	addr      string
	store     *Store
	opts      Options
	log       logger.Logger
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	requests  atomic.Int64
}

const userKey = "user"

// NewServer creates a mock API server backed by store.
func NewServer(addr string, store *Store, opts Options) *Server {
	if addr == "" {
		addr = model.DefaultMockAddr
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		store:     store,
		opts:      opts,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler builds the gin router. It is exported for httptest.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/health", s.handleHealth)

	api := r.Group("", s.latency(), s.failureInjection())
	api.POST("/auth/login", s.handleLogin)
	api.GET("/dashboard/", s.handleDashboard)
	api.GET("/refining/active", s.handleActiveRefining)
	api.GET("/refining/history", s.handleRefiningHistory)
	api.GET("/market/materials", s.handleMaterials)

	authed := api.Group("", s.requireUser())
	authed.GET("/auth/me", s.handleMe)
	authed.POST("/auth/change-password", s.handleChangePassword)
	authed.GET("/stats/history", s.handleHistory)
	authed.POST("/stats/history", s.handleCreateEvent)
	authed.DELETE("/stats/history/:id", s.handleDeleteEvent)
	authed.GET("/stats/history/tags/available", s.handleTags)
	authed.GET("/stats/history/users/available", s.handleCrew)

	admin := authed.Group("", s.requireAdmin())
	admin.GET("/auth/users", s.handleUsers)
	admin.POST("/auth/register", s.handleRegister)
	admin.POST("/auth/reset-password/:id", s.handleResetPassword)

	r.NoRoute(func(c *gin.Context) { detail(c, http.StatusNotFound, "Not Found") })
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()
	s.log.Info("mock backend listening", logger.String("addr", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("mock backend stopped", logger.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Next()
		s.log.Debug("request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("took", time.Since(start)),
			logger.String("request_id", id))
	}
}

func (s *Server) latency() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.Latency <= 0 {
			return
		}
		select {
		case <-time.After(s.opts.Latency):
		case <-c.Request.Context().Done():
			c.Abort()
		}
	}
}

func (s *Server) failureInjection() gin.HandlerFunc {
	return func(c *gin.Context) {
		n := s.requests.Add(1)
		if s.opts.FailEvery > 0 && n%int64(s.opts.FailEvery) == 0 {
			s.log.Info("injecting failure", logger.Int("request", int(n)), logger.String("path", c.Request.URL.Path))
			detail(c, http.StatusInternalServerError, "Injected failure")
		}
	}
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			detail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		user, ok := s.store.Authenticate(token)
		if !ok {
			detail(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		c.Set(userKey, user)
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c).Role != model.RoleAdmin {
			detail(c, http.StatusForbidden, errForbidden.Error())
		}
	}
}

func currentUser(c *gin.Context) model.User {
	u, _ := c.MustGet(userKey).(model.User)
	return u
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		detail(c, http.StatusUnprocessableEntity, "Invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).String(),
		"requests": s.requests.Load(),
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req model.Credentials
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		detail(c, http.StatusUnprocessableEntity, "username and password are required")
		return
	}
	tok, err := s.store.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, errInactiveUser):
		detail(c, http.StatusBadRequest, err.Error())
	case err != nil:
		detail(c, http.StatusUnauthorized, err.Error())
	default:
		s.log.Info("login", logger.String("user", req.Username))
		c.JSON(http.StatusOK, tok)
	}
}

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (s *Server) handleUsers(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Users())
}

func (s *Server) handleRegister(c *gin.Context) {
	var req model.NewUser
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		detail(c, http.StatusUnprocessableEntity, "username and password are required")
		return
	}
	switch req.Role {
	case "", model.RoleAdmin, model.RoleMember:
	default:
		detail(c, http.StatusUnprocessableEntity, "role must be admin or member")
		return
	}
	u, err := s.store.Register(req)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) handleResetPassword(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req model.PasswordReset
	if err := c.ShouldBindJSON(&req); err != nil || req.NewPassword == "" {
		detail(c, http.StatusUnprocessableEntity, "new_password is required")
		return
	}
	switch err := s.store.ResetPassword(id, req.NewPassword); {
	case errors.Is(err, errNotFound):
		detail(c, http.StatusNotFound, "User not found")
		return
	case err != nil:
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset"})
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req model.PasswordChange
	if err := c.ShouldBindJSON(&req); err != nil || req.NewPassword == "" {
		detail(c, http.StatusUnprocessableEntity, "old_password and new_password are required")
		return
	}
	if err := s.store.ChangePassword(currentUser(c).ID, req.OldPassword, req.NewPassword); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Dashboard())
}

func (s *Server) handleActiveRefining(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.ActiveRefining())
}

func (s *Server) handleRefiningHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		detail(c, http.StatusUnprocessableEntity, "limit must be a non-negative integer")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		detail(c, http.StatusUnprocessableEntity, "offset must be a non-negative integer")
		return
	}
	c.JSON(http.StatusOK, s.store.RefiningHistory(limit, offset))
}

func (s *Server) handleMaterials(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Materials())
}

func (s *Server) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.HistoryEvents(model.HistoryFilter{
		Search: c.Query("search"),
		Tag:    c.Query("tag"),
	}))
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	var req model.HistoryEventInput
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		detail(c, http.StatusUnprocessableEntity, "title is required")
		return
	}
	ev := s.store.CreateEvent(currentUser(c).ID, req)
	c.JSON(http.StatusCreated, ev)
}

func (s *Server) handleDeleteEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	switch err := s.store.DeleteEvent(currentUser(c), id); {
	case errors.Is(err, errForbidden):
		detail(c, http.StatusForbidden, err.Error())
	case err != nil:
		detail(c, http.StatusNotFound, "Event not found")
	default:
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleTags(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tags": s.store.Tags()})
}

func (s *Server) handleCrew(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Crew())
}
