package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/service/booking"
	"github.com/Domenick1991/westbrook/internal/service/payment"
	"github.com/Domenick1991/westbrook/internal/service/pricing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SessionHandler struct {
	service  booking.BookingUseCase
	checkout []gin.HandlerFunc
	logger   *zap.Logger
}

// stateResponse renders a booking state with money rounded to whole units.
type stateResponse struct {
	SessionID string `json:"sessionId"`
	domain.BookingState
	Subtotal   int64  `json:"subtotal"`
	Tax        int64  `json:"tax"`
	TotalPrice int64  `json:"totalPrice"`
	StepName   string `json:"stepName"`
}

type checkoutResponse struct {
	State   stateResponse   `json:"state"`
	Payment *payment.Result `json:"payment,omitempty"`
}

func newStateResponse(sessionID string, s domain.BookingState) *stateResponse {
	return &stateResponse{
		SessionID:    sessionID,
		BookingState: s,
		Subtotal:     pricing.Round(s.Subtotal),
		Tax:          pricing.Round(s.Tax),
		TotalPrice:   pricing.Round(s.TotalPrice),
		StepName:     s.CurrentStep.String(),
	}
}

// NewSessionHandler serves the booking wizard. checkout middleware (rate
// limiting) runs in front of the checkout route only.
func NewSessionHandler(service booking.BookingUseCase, logger *zap.Logger, checkout ...gin.HandlerFunc) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{service: service, checkout: checkout, logger: logger}
}

func (h *SessionHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.PUT("/:id", h.start)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.reset)
	router.PUT("/:id/stay", h.updateStay)
	router.POST("/:id/next", h.next)
	router.POST("/:id/prev", h.prev)
	router.PUT("/:id/guest", h.submitGuest)
	router.PUT("/:id/payment", h.selectPayment)
	router.POST("/:id/checkout", append(append([]gin.HandlerFunc{}, h.checkout...), h.processCheckout)...)
	router.GET("/:id/events", h.events)
}

func (h *SessionHandler) create(c *gin.Context) {
	id := uuid.NewString()
	state, err := h.service.Start(c.Request.Context(), id, prefillFromQuery(c))
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusCreated, newStateResponse(id, *state))
}

func (h *SessionHandler) start(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	state, err := h.service.Start(c.Request.Context(), id, prefillFromQuery(c))
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, newStateResponse(id, *state))
}

func (h *SessionHandler) get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	state, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, newStateResponse(id, *state))
}

func (h *SessionHandler) reset(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.service.Reset(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) updateStay(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req booking.StayInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	state, err := h.service.UpdateStay(c.Request.Context(), id, req)
	h.respond(c, id, state, err)
}

func (h *SessionHandler) next(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	state, err := h.service.Next(c.Request.Context(), id)
	h.respond(c, id, state, err)
}

func (h *SessionHandler) prev(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	state, err := h.service.Prev(c.Request.Context(), id)
	h.respond(c, id, state, err)
}

func (h *SessionHandler) submitGuest(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req domain.GuestInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	state, err := h.service.SubmitGuestInfo(c.Request.Context(), id, req)
	h.respond(c, id, state, err)
}

func (h *SessionHandler) selectPayment(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req booking.PaymentSelection
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	state, err := h.service.SelectPayment(c.Request.Context(), id, req)
	h.respond(c, id, state, err)
}

func (h *SessionHandler) processCheckout(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	res, err := h.service.Checkout(c.Request.Context(), id)
	if err != nil {
		var state *stateResponse
		if res != nil {
			state = newStateResponse(id, res.State)
		}
		writeError(c, h.logger, err, state)
		return
	}
	c.JSON(http.StatusOK, checkoutResponse{State: *newStateResponse(id, res.State), Payment: res.Payment})
}

// events streams the session's state to other open pages, one "state" event
// per write, starting with the current state.
func (h *SessionHandler) events(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	updates, err := h.service.Watch(ctx, id)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if current, err := h.service.Get(ctx, id); err == nil {
		c.SSEvent("state", newStateResponse(id, *current))
		c.Writer.Flush()
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case st, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("state", newStateResponse(id, st))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (h *SessionHandler) respond(c *gin.Context, id string, state *domain.BookingState, err error) {
	if err != nil {
		var body *stateResponse
		if state != nil {
			body = newStateResponse(id, *state)
		}
		writeError(c, h.logger, err, body)
		return
	}
	c.JSON(http.StatusOK, newStateResponse(id, *state))
}

// sessionID reads and validates the :id parameter, writing 400 when it is
// not a UUID.
func sessionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid session id"})
		return "", false
	}
	return id, true
}

func prefillFromQuery(c *gin.Context) booking.Prefill {
	p := booking.Prefill{
		Checkin:  c.Query("checkin"),
		Checkout: c.Query("checkout"),
	}
	if v, err := strconv.Atoi(c.Query("adults")); err == nil {
		p.Adults = &v
	}
	if v, err := strconv.Atoi(c.Query("children")); err == nil {
		p.Children = &v
	}
	return p
}
