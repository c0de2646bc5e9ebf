package api

import (
	"net/http"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/service/availability"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	service availability.AvailabilityUseCase
	logger  *zap.Logger
}

type calendarResponse struct {
	Days domain.AvailabilityMap `json:"days"`
}

type disabledDatesResponse struct {
	Dates []string `json:"dates"`
}

type handoffResponse struct {
	Handoff     domain.Handoff `json:"handoff"`
	RedirectURL string         `json:"redirect_url"`
	Message     string         `json:"message"`
}

func NewAvailabilityHandler(service availability.AvailabilityUseCase, logger *zap.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityHandler{service: service, logger: logger}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id/availability", h.calendar)
	router.GET("/:id/availability/disabled", h.disabled)
	router.POST("/:id/availability/check", h.check)
	router.GET("/:id/handoff", h.handoff)
}

func (h *AvailabilityHandler) calendar(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	m, err := h.service.Calendar(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, calendarResponse{Days: m})
}

func (h *AvailabilityHandler) disabled(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	dates, err := h.service.DisabledDates(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	c.JSON(http.StatusOK, disabledDatesResponse{Dates: out})
}

// check is the room page's "check availability" button: it validates the
// range and stores it for the wizard page.
func (h *AvailabilityHandler) check(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req availability.HandoffInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	res, err := h.service.Handoff(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	msg := availability.MessageAvailable
	if res.Handoff.IsLimited {
		msg = availability.MessageLimited
	}
	c.JSON(http.StatusOK, handoffResponse{Handoff: res.Handoff, RedirectURL: res.RedirectURL, Message: msg})
}

func (h *AvailabilityHandler) handoff(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	hf, err := h.service.GetHandoff(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	if hf == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no pending room selection"})
		return
	}
	c.JSON(http.StatusOK, hf)
}
