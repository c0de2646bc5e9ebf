package api

import (
	"net/http"

	"github.com/Domenick1991/westbrook/internal/domain"
	"github.com/Domenick1991/westbrook/internal/pkg/errs"
	"github.com/Domenick1991/westbrook/internal/service/booking"
	"github.com/Domenick1991/westbrook/internal/service/payment"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	Dates     []string          `json:"dates,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	State     *stateResponse    `json:"state,omitempty"`
}

// writeError maps service errors onto HTTP statuses. state, when known, is
// echoed back so the page can re-render without another round trip.
func writeError(c *gin.Context, logger *zap.Logger, err error, state *stateResponse) {
	var (
		verr *domain.ValidationError
		cerr *domain.ConflictError
		perr *booking.PaymentError
	)
	switch {
	case errs.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields, State: state})
	case errs.As(err, &cerr):
		dates := make([]string, len(cerr.Dates))
		for i, d := range cerr.Dates {
			dates[i] = d.String()
		}
		c.JSON(http.StatusConflict, errorResponse{Error: cerr.Message, Dates: dates, State: state})
	case errs.As(err, &perr):
		c.JSON(http.StatusPaymentRequired, errorResponse{Error: perr.Message, Retryable: perr.Retryable(), State: state})
	case errs.Is(err, booking.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errs.Is(err, booking.ErrInvalidTransition),
		errs.Is(err, booking.ErrBookingClosed),
		errs.Is(err, booking.ErrPaymentRequired),
		errs.Is(err, booking.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), State: state})
	case errs.Is(err, booking.ErrInvalidPaymentMethod), errs.Is(err, payment.ErrUnknownMethod):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
			zap.Strings("stack", errs.ExtractStackLines(err, 5)),
		)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
