package handler

import (
	"net/http"

	"auction-console/internal/models"
	"auction-console/services/console/helpers"
	"auction-console/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// AdminDashboardHandler handles GET /admin
func (h *Handler) AdminDashboardHandler(c *gin.Context) {
	var view helpers.AdminView
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		view.Users, err = h.api.ListUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		view.Auctions, err = h.api.ListAuctions(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(c, "AdminDashboardHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, view, "admin dashboard")
}

// AdminDeleteUserHandler handles DELETE /admin/users/:id
func (h *Handler) AdminDeleteUserHandler(c *gin.Context) {
	id := models.ID(c.Param("id"))
	if err := h.api.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, "AdminDeleteUserHandler", err, map[string]any{"user_id": id})
		return
	}

	h.notes.Show("User deleted", models.SeveritySuccess)
	utils.JSONResponse(c, http.StatusOK, gin.H{"id": id}, "user deleted successfully")
	helpers.LogSuccess("AdminDeleteUserHandler", "user deleted", map[string]any{"user_id": id})
}

// AdminDeleteAuctionHandler handles DELETE /admin/auctions/:id
func (h *Handler) AdminDeleteAuctionHandler(c *gin.Context) {
	id := models.ID(c.Param("id"))
	if err := h.api.AdminDeleteAuction(c.Request.Context(), id); err != nil {
		h.fail(c, "AdminDeleteAuctionHandler", err, map[string]any{"auction_id": id})
		return
	}

	h.closeLive(id)
	h.notes.Show("Auction removed", models.SeveritySuccess)
	utils.JSONResponse(c, http.StatusOK, gin.H{"id": id}, "auction removed successfully")
	helpers.LogSuccess("AdminDeleteAuctionHandler", "auction removed", map[string]any{"auction_id": id})
}
