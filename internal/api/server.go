// Package api exposes the provider over a JSON HTTP API built on gin.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/justsplit/internal/auth"
	"github.com/mmynk/justsplit/internal/metrics"
	"github.com/mmynk/justsplit/internal/middleware"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/provider"
)

// ProfileWriter stores the user profile created alongside a new account.
type ProfileWriter interface {
	SetUser(ctx context.Context, u models.User) error
}

// Options configures a Server.
type Options struct {
	// Pool is required.
	Pool *provider.Pool

	// LocalAccount, when set, disables authentication: every request acts
	// as this account and the register and login routes are not mounted.
	LocalAccount *auth.Account

	// Authenticator, Accounts and JWT are required unless LocalAccount is set.
	Authenticator auth.Authenticator
	Accounts      auth.AccountStorage
	JWT           *auth.JWTManager

	// Profiles, when set, receives the profile of every registered account.
	Profiles ProfileWriter

	// DefaultCurrency is written into new profiles.
	DefaultCurrency string

	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer

	// StaticDir, when set, serves frontend files for unmatched routes.
	StaticDir string

	Logger *slog.Logger
}

// Server handles the HTTP API.
type Server struct {
	opts   Options
	logger *slog.Logger
}

// New validates opts and returns a Server.
func New(opts Options) (*Server, error) {
	if opts.Pool == nil {
		return nil, errors.New("pool is required")
	}
	if opts.LocalAccount == nil && (opts.Authenticator == nil || opts.Accounts == nil || opts.JWT == nil) {
		return nil, errors.New("authenticator, accounts and jwt manager are required when auth is enabled")
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = provider.DefaultCurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{opts: opts, logger: logger}, nil
}

// Handler builds the gin engine with every route mounted.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS(), middleware.RequestLogger(s.logger))

	r.GET("/health", s.health)
	if s.opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(s.opts.Gatherer)))
	}

	api := r.Group("/api")
	if s.opts.LocalAccount == nil {
		api.POST("/auth/register", s.register)
		api.POST("/auth/login", s.login)
	}

	authed := api.Group("")
	authed.Use(s.authMiddleware())

	authed.POST("/auth/logout", s.logout)
	authed.GET("/auth/me", s.me)

	authed.GET("/state", s.state)
	authed.GET("/state/stream", s.stream)
	authed.POST("/dispatch", s.dispatch)
	authed.GET("/balances", s.balances)

	authed.POST("/users", s.addUser)
	authed.PATCH("/users/:id", s.updateUser)

	authed.POST("/expenses", s.addExpense)
	authed.PUT("/expenses/:id", s.updateExpense)
	authed.DELETE("/expenses/:id", s.deleteExpense)

	authed.POST("/events", s.addEvent)
	authed.PUT("/events/:id", s.updateEvent)
	authed.DELETE("/events/:id", s.deleteEvent)

	authed.POST("/settlements", s.addSettlement)

	authed.POST("/groups", s.addGroup)
	authed.PUT("/groups/:id", s.updateGroup)
	authed.DELETE("/groups/:id", s.deleteGroup)
	for _, ref := range groupRefs {
		authed.POST("/groups/:id/"+ref.path+"/:ref", s.groupRef(ref.add))
		authed.DELETE("/groups/:id/"+ref.path+"/:ref", s.groupRef(ref.remove))
	}

	authed.POST("/friends/request", s.friendOp(asSender, (*provider.Provider).SendFriendRequest))
	authed.POST("/friends/accept", s.friendOp(asRecipient, (*provider.Provider).AcceptFriendRequest))
	authed.POST("/friends/reject", s.friendOp(asRecipient, (*provider.Provider).RejectFriendRequest))
	authed.POST("/friends/remove", s.removeFriend)

	if s.opts.StaticDir != "" {
		r.NoRoute(s.static)
	}
	return r
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	if a := s.opts.LocalAccount; a != nil {
		return middleware.StaticAccount(a.ID, a.Email)
	}
	return middleware.RequireAuth(s.opts.JWT)
}

// account loads the signed-in account.
func (s *Server) account(c *gin.Context) (*auth.Account, error) {
	if a := s.opts.LocalAccount; a != nil {
		return a, nil
	}
	id := middleware.GetUserID(c.Request.Context())
	if id == "" {
		return nil, auth.ErrMissingToken
	}
	a, err := s.opts.Accounts.GetAccountByID(c.Request.Context(), id)
	if errors.Is(err, auth.ErrAccountNotFound) {
		return nil, auth.ErrInvalidToken
	}
	return a, err
}

// session returns the provider of the signed-in account, writing the
// error response itself when there is none.
func (s *Server) session(c *gin.Context) (*provider.Provider, bool) {
	a, err := s.account(c)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	p, err := s.opts.Pool.Get(c.Request.Context(), a)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return p, true
}

// static serves files from StaticDir. Unknown paths get index.html so
// client-side routes resolve; unknown API paths get a 404.
func (s *Server) static(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		middleware.RespondWithError(c, http.StatusNotFound, "Not found")
		return
	}

	urlPath := c.Request.URL.Path
	if urlPath == "/" {
		urlPath = "/index.html"
	}
	filePath := filepath.Join(s.opts.StaticDir, filepath.Clean("/"+urlPath))
	if _, err := os.Stat(filePath); err != nil {
		filePath = filepath.Join(s.opts.StaticDir, "index.html")
	}
	c.File(filePath)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.opts.Pool.Len()})
}
