package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/justsplit/internal/calculator"
	"github.com/mmynk/justsplit/internal/middleware"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/provider"
	"github.com/mmynk/justsplit/internal/reducer"
)

type stateResponse struct {
	State             models.State `json:"state"`
	PreferredCurrency string       `json:"preferredCurrency"`
}

func snapshot(p *provider.Provider) stateResponse {
	return stateResponse{State: p.Snapshot(), PreferredCurrency: p.PreferredCurrency()}
}

func (s *Server) state(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snapshot(p))
}

// stream sends the state as a server-sent event now and after every change
// until the client goes away.
func (s *Server) stream(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	changes := p.Watch(ctx)

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	send := func() {
		c.SSEvent("state", snapshot(p))
		c.Writer.Flush()
	}

	send()
	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-changes:
			if !open {
				return
			}
			send()
		}
	}
}

// dispatch applies a tagged action to the session's local state.
func (s *Server) dispatch(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}

	var env reducer.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	action, err := reducer.Decode(env)
	if err != nil {
		s.respondError(c, err)
		return
	}
	state, err := p.Dispatch(action)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateResponse{State: state, PreferredCurrency: p.PreferredCurrency()})
}

func (s *Server) balances(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	result, err := p.Balances(c.Query("groupId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if result.Members == nil {
		result.Members = []calculator.MemberBalance{}
	}
	if result.Debts == nil {
		result.Debts = []calculator.DebtEdge{}
	}
	c.JSON(http.StatusOK, result)
}
