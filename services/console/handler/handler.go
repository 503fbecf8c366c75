package handler

import (
	"context"
	"errors"
	"fmt"

	"auction-console/internal/auctionerrors"
	"auction-console/internal/live"
	"auction-console/internal/models"
	"auction-console/services/console/helpers"
	"auction-console/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=handler.go -destination=mock_handler.go -package=handler

// AuctionAPI is the REST backend as seen by the views.
type AuctionAPI interface {
	ListAuctions(ctx context.Context) ([]models.Auction, error)
	AuctionsBySeller(ctx context.Context, userID models.ID) ([]models.Auction, error)
	GetAuction(ctx context.Context, id models.ID) (models.Auction, error)
	CreateAuction(ctx context.Context, in models.AuctionInput) (models.Auction, error)
	UpdateAuction(ctx context.Context, id models.ID, in models.AuctionInput) (models.Auction, error)
	DeleteAuction(ctx context.Context, id models.ID) error
	ActivateAuction(ctx context.Context, id models.ID) (models.Auction, error)
	Winner(ctx context.Context, id models.ID) (string, error)
	BidHistory(ctx context.Context, id models.ID) ([]models.Bid, error)
	PlaceBid(ctx context.Context, req models.BidRequest) (models.Bid, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id models.ID) error
	AdminDeleteAuction(ctx context.Context, id models.ID) error
}

// SessionStore is the operator's session.
type SessionStore interface {
	Login(ctx context.Context, creds models.Credentials) (models.Session, error)
	Register(ctx context.Context, reg models.Registration) (models.Session, error)
	Logout(ctx context.Context)
	Current() (models.Session, bool)
	Token() string
}

// Notifier is the notification queue.
type Notifier interface {
	Show(message string, severity models.Severity) string
	Dismiss(id string)
	List() []models.Notification
}

// LiveViews mounts live auction screens.
type LiveViews interface {
	Mount(ctx context.Context, auctionID models.ID, token string) (*live.View, error)
	Get(auctionID models.ID) (*live.View, bool)
	Unmount(v *live.View)
	CloseAll()
}

// Handler serves every console view.
type Handler struct {
	api   AuctionAPI
	store SessionStore
	notes Notifier
	views LiveViews
}

func NewHandler(api AuctionAPI, store SessionStore, notes Notifier, views LiveViews) *Handler {
	return &Handler{api: api, store: store, notes: notes, views: views}
}

// fail renders err. An auth failure ends the session and sends the operator to
// /login. Role failures and missing entities go back to the auction list.
func (h *Handler) fail(c *gin.Context, handlerName string, err error, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["error"] = err.Error()

	switch {
	case errors.Is(err, auctionerrors.ErrAuth):
		utils.Warn(handlerName+": session rejected", fields)
		h.endSession(c.Request.Context())
		h.notes.Show("Your session has ended, please log in again", models.SeverityError)
		utils.Redirect(c, "/login")
		return
	case errors.Is(err, auctionerrors.ErrAuthorization):
		utils.Warn(handlerName+": not permitted", fields)
		h.notes.Show("You are not allowed to do that", models.SeverityWarning)
		utils.Redirect(c, "/auctions")
		return
	case errors.Is(err, auctionerrors.ErrNotFound):
		utils.Warn(handlerName+": not found", fields)
		h.notes.Show("Not found", models.SeverityWarning)
		utils.Redirect(c, "/auctions")
		return
	}

	status, message := helpers.MapErrorToView(err)
	if status >= 500 {
		utils.Error(handlerName+": failed", fields)
	} else {
		utils.Warn(handlerName+": rejected", fields)
	}
	h.notes.Show(message, severityFor(status))
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
}

func (h *Handler) endSession(ctx context.Context) {
	h.views.CloseAll()
	h.store.Logout(ctx)
}

func (h *Handler) session() (*models.Session, bool) {
	sess, ok := h.store.Current()
	if !ok {
		return nil, false
	}
	return &sess, true
}

func severityFor(status int) models.Severity {
	if status >= 500 {
		return models.SeverityError
	}
	return models.SeverityWarning
}
