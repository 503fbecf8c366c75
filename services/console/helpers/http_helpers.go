package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-console/internal/auctionerrors"
	"auction-console/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToView maps a classified error to an HTTP status and the notification
// text shown to the operator. Auth and authorization errors are redirects and
// are handled by the caller before this is reached.
func MapErrorToView(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusBadRequest, "Bid must be higher than the current price"
	case errors.Is(err, auctionerrors.ErrInvalidAmount):
		return http.StatusBadRequest, "Bid amount must be positive"
	case errors.Is(err, auctionerrors.ErrAuctionInactive):
		return http.StatusConflict, "This auction is not active"
	case errors.Is(err, auctionerrors.ErrValidation):
		return http.StatusBadRequest, "Please check the form and try again"
	case errors.Is(err, auctionerrors.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, auctionerrors.ErrNotConnected), errors.Is(err, auctionerrors.ErrChannelClosed):
		return http.StatusConflict, "Not connected to the live auction"
	case errors.Is(err, auctionerrors.ErrTransport):
		return http.StatusBadGateway, "Could not reach the auction server"
	case errors.Is(err, auctionerrors.ErrAuth):
		return http.StatusUnauthorized, "Please log in again"
	case errors.Is(err, auctionerrors.ErrAuthorization):
		return http.StatusForbidden, "You are not allowed to do that"
	default:
		return http.StatusInternalServerError, "Something went wrong"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
