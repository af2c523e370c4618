package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/justsplit/internal/idset"
	"github.com/mmynk/justsplit/internal/middleware"
	"github.com/mmynk/justsplit/internal/models"
	"github.com/mmynk/justsplit/internal/provider"
)

type createdResponse struct {
	ID string `json:"id"`
}

// created answers a create call. With a remote store the entity shows up
// in the state once the live query delivers it.
func (s *Server) created(c *gin.Context, id string, err error) {
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) done(c *gin.Context, err error) {
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Users

type userRequest struct {
	Name              string `json:"name" validate:"required"`
	Email             string `json:"email" validate:"omitempty,email"`
	Phone             string `json:"phone"`
	Avatar            string `json:"avatar"`
	PreferredCurrency string `json:"preferredCurrency" validate:"omitempty,len=3"`
}

func (s *Server) addUser(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	var req userRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	id, err := p.AddUser(c.Request.Context(), models.User{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Avatar:            req.Avatar,
		PreferredCurrency: req.PreferredCurrency,
	})
	s.created(c, id, err)
}

func (s *Server) updateUser(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	var patch models.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if patch.IsEmpty() {
		middleware.RespondWithError(c, http.StatusBadRequest, "Nothing to update")
		return
	}
	s.done(c, p.UpdateUser(c.Request.Context(), c.Param("id"), patch))
}

// Expenses

type expenseRequest struct {
	Description  string   `json:"description" validate:"required"`
	Amount       float64  `json:"amount" validate:"gt=0"`
	Currency     string   `json:"currency" validate:"omitempty,len=3"`
	Date         string   `json:"date" validate:"required"`
	PaidBy       string   `json:"paidBy" validate:"required"`
	Participants []string `json:"participants" validate:"required,min=1,dive,required"`
	EventID      string   `json:"eventId"`
	GroupID      string   `json:"groupId"`
	Notes        string   `json:"notes"`
	Category     string   `json:"category"`
}

func (r expenseRequest) applyTo(e models.Expense) models.Expense {
	e.Description = r.Description
	e.Amount = r.Amount
	if r.Currency != "" {
		e.Currency = r.Currency
	}
	e.Date = r.Date
	e.PaidBy = r.PaidBy
	e.Participants = r.Participants
	e.EventID = r.EventID
	e.GroupID = r.GroupID
	e.Notes = r.Notes
	e.Category = r.Category
	return e
}

func (s *Server) addExpense(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	var req expenseRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	id, err := p.AddExpense(c.Request.Context(), req.applyTo(models.Expense{}))
	s.created(c, id, err)
}

func (s *Server) updateExpense(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	var req expenseRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	existing, found := p.Snapshot().Expense(c.Param("id"))
	if !found {
		s.respondError(c, fmt.Errorf("%w: %s", provider.ErrExpenseNotFound, c.Param("id")))
		return
	}
	s.done(c, p.UpdateExpense(c.Request.Context(), req.applyTo(existing)))
}

func (s *Server) deleteExpense(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	s.done(c, p.DeleteExpense(c.Request.Context(), c.Param("id")))
}

// Events

type eventRequest struct {
	Name              string   `json:"name" validate:"required"`
	Description       string   `json:"description"`
	StartDate         string   `json:"startDate" validate:"required"`
	EndDate           string   `json:"endDate"`
	Members           []string `json:"members" validate:"required,min=1,dive,required"`
	PreferredCurrency string   `json:"preferredCurrency" validate:"omitempty,len=3"`
	GroupID           string   `json:"groupId"`
}

func (r eventRequest) applyTo(ev models.Event) models.Event {
	ev.Name = r.Name
	ev.Description = r.Description
	ev.StartDate = r.StartDate
	ev.EndDate = r.EndDate
	ev.Members = r.Members
	ev.PreferredCurrency = r.PreferredCurrency
	ev.GroupID = r.GroupID
	return ev
}

func (s *Server) addEvent(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	var req eventRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	id, err := p.AddEvent(c.Request.Context(), req.applyTo(models.Event{}))
	s.created(c, id, err)
}

func (s *Server) updateEvent(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	var req eventRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	existing, found := p.Snapshot().Event(c.Param("id"))
	if !found {
		s.respondError(c, fmt.Errorf("%w: %s", provider.ErrEventNotFound, c.Param("id")))
		return
	}
	s.done(c, p.UpdateEvent(c.Request.Context(), req.applyTo(existing)))
}

func (s *Server) deleteEvent(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	s.done(c, p.DeleteEvent(c.Request.Context(), c.Param("id")))
}

// Settlements

type settlementRequest struct {
	FromUser   string   `json:"fromUser" validate:"required"`
	ToUser     string   `json:"toUser" validate:"required,nefield=FromUser"`
	Amount     float64  `json:"amount" validate:"gt=0"`
	Currency   string   `json:"currency" validate:"omitempty,len=3"`
	ExpenseIDs []string `json:"expenseIds" validate:"dive,required"`
	Date       string   `json:"date" validate:"required"`
}

func (s *Server) addSettlement(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	var req settlementRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	id, err := p.AddSettlement(c.Request.Context(), models.Settlement{
		FromUser:   req.FromUser,
		ToUser:     req.ToUser,
		Amount:     req.Amount,
		Currency:   req.Currency,
		ExpenseIDs: req.ExpenseIDs,
		Date:       req.Date,
	})
	s.created(c, id, err)
}

// Groups

type groupRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Members     []string `json:"members" validate:"dive,required"`
}

func (s *Server) addGroup(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	var req groupRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	id, err := p.AddGroup(c.Request.Context(), models.Group{
		Name:        req.Name,
		Description: req.Description,
		Members:     idset.Of(req.Members...),
	})
	s.created(c, id, err)
}

// updateGroup changes name and description; membership and references go
// through the dedicated routes. A members list, when given, replaces the
// current one.
func (s *Server) updateGroup(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	var req groupRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	g, found := p.Snapshot().Group(c.Param("id"))
	if !found {
		s.respondError(c, fmt.Errorf("%w: %s", provider.ErrGroupNotFound, c.Param("id")))
		return
	}
	g.Name = req.Name
	g.Description = req.Description
	if req.Members != nil {
		g.Members = idset.Of(req.Members...)
	}
	s.done(c, p.UpdateGroup(c.Request.Context(), g))
}

func (s *Server) deleteGroup(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	s.done(c, p.DeleteGroup(c.Request.Context(), c.Param("id")))
}

type groupRefOp func(p *provider.Provider, ctx context.Context, groupID, ref string) error

var groupRefs = []struct {
	path        string
	add, remove groupRefOp
}{
	{"members", (*provider.Provider).AddMemberToGroup, (*provider.Provider).RemoveMemberFromGroup},
	{"events", (*provider.Provider).AddEventToGroup, (*provider.Provider).RemoveEventFromGroup},
	{"expenses", (*provider.Provider).AddExpenseToGroup, (*provider.Provider).RemoveExpenseFromGroup},
}

func (s *Server) groupRef(op groupRefOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.session(c)
		if !ok {
			return
		}
		s.done(c, op(p, c.Request.Context(), c.Param("id"), c.Param("ref")))
	}
}

// Friends

// ErrForbidden is returned when a request acts for another user.
var ErrForbidden = errors.New("cannot act on behalf of another user")

var errMissingCounterpart = errors.New("the other user is required")

type friendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type removeFriendRequest struct {
	// UserID defaults to the signed-in user.
	UserID   string `json:"userId"`
	FriendID string `json:"friendId" validate:"required"`
}

type pairOp func(p *provider.Provider, ctx context.Context, from, to string) error

// friendActor names which side of a request the signed-in user must be.
type friendActor int

const (
	// asSender: the caller sends; "to" is required, "from" defaults to the caller.
	asSender friendActor = iota
	// asRecipient: the caller answers; "from" is required, "to" defaults to the caller.
	asRecipient
)

// resolve fills in the caller's side and rejects requests made for someone
// else.
func (r *friendRequest) resolve(actor friendActor, me string) error {
	self, other := &r.From, r.To
	if actor == asRecipient {
		self, other = &r.To, r.From
	}
	if other == "" {
		return errMissingCounterpart
	}
	if *self == "" {
		*self = me
	}
	if *self != me {
		return ErrForbidden
	}
	return nil
}

func (s *Server) friendOp(actor friendActor, op pairOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.session(c)
		if !ok {
			return
		}
		var req friendRequest
		if !middleware.BindJSON(c, &req) {
			return
		}
		if err := req.resolve(actor, p.Snapshot().CurrentUserID()); err != nil {
			s.respondError(c, err)
			return
		}
		s.done(c, op(p, c.Request.Context(), req.From, req.To))
	}
}

func (s *Server) removeFriend(c *gin.Context) {
	p, ok := s.session(c)
	if !ok {
		return
	}
	var req removeFriendRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	me := p.Snapshot().CurrentUserID()
	if req.UserID == "" {
		req.UserID = me
	}
	if req.UserID != me {
		s.respondError(c, ErrForbidden)
		return
	}
	s.done(c, p.RemoveFriend(c.Request.Context(), req.UserID, req.FriendID))
}
