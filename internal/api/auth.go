package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/justsplit/internal/auth"
	"github.com/mmynk/justsplit/internal/middleware"
	"github.com/mmynk/justsplit/internal/models"
)

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token   string        `json:"token"`
	Account *auth.Account `json:"account"`
}

type meResponse struct {
	Account *auth.Account `json:"account"`
	Profile *models.User  `json:"profile"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	account, err := s.opts.Authenticator.Register(ctx, req.Email, req.DisplayName, req.Password)
	if err != nil {
		s.logger.Warn("Registration failed", "email", req.Email, "error", err)
		s.respondError(c, err)
		return
	}

	if s.opts.Profiles != nil {
		profile := models.User{
			ID:                account.ID,
			Name:              account.DisplayName,
			Email:             account.Email,
			PreferredCurrency: s.opts.DefaultCurrency,
		}
		if err := s.opts.Profiles.SetUser(ctx, profile); err != nil {
			s.respondError(c, err)
			return
		}
	}

	token, err := s.opts.JWT.Generate(account)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("User registered successfully", "user_id", account.ID, "email", account.Email)
	c.JSON(http.StatusCreated, authResponse{Token: token, Account: account})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	account, err := s.opts.Authenticator.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Email, "error", err)
		s.respondError(c, err)
		return
	}

	token, err := s.opts.JWT.Generate(account)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("User logged in", "user_id", account.ID)
	c.JSON(http.StatusOK, authResponse{Token: token, Account: account})
}

// logout drops the account's session. Tokens stay valid until they expire;
// the next request opens a fresh session.
func (s *Server) logout(c *gin.Context) {
	id := middleware.GetUserID(c.Request.Context())
	s.opts.Pool.Release(id)
	s.logger.Info("User logged out", "user_id", id)
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	account, err := s.account(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	p, err := s.opts.Pool.Get(c.Request.Context(), account)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meResponse{Account: account, Profile: p.Snapshot().CurrentUser})
}
