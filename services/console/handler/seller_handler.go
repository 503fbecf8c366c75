package handler

import (
	"net/http"

	"auction-console/internal/models"
	"auction-console/services/console/helpers"
	"auction-console/utils"

	"github.com/gin-gonic/gin"
)

// ShowCreateAuctionHandler handles GET /create-auction
func (h *Handler) ShowCreateAuctionHandler(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, helpers.AuctionForm, "create auction")
}

func (h *Handler) bindAuction(c *gin.Context, handlerName string) (models.AuctionInput, bool) {
	var req helpers.AuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, handlerName, err)
		return models.AuctionInput{}, false
	}
	in := models.AuctionInput{
		Title:       req.Title,
		Description: req.Description,
		StartPrice:  req.StartPrice,
		ImageURL:    req.ImageURL,
	}
	if sess, ok := h.session(); ok {
		in.CreatedByID = sess.UserID
	}
	if err := in.Validate(); err != nil {
		h.fail(c, handlerName, err, nil)
		return models.AuctionInput{}, false
	}
	return in, true
}

// CreateAuctionHandler handles POST /create-auction
func (h *Handler) CreateAuctionHandler(c *gin.Context) {
	in, ok := h.bindAuction(c, "CreateAuctionHandler")
	if !ok {
		return
	}

	auction, err := h.api.CreateAuction(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "CreateAuctionHandler", err, map[string]any{"title": in.Title})
		return
	}

	h.notes.Show("Auction created: "+auction.Title, models.SeveritySuccess)
	helpers.LogSuccess("CreateAuctionHandler", "auction created", map[string]any{"auction_id": auction.ID, "title": auction.Title})
	utils.Redirect(c, "/seller")
}

// SellerDashboardHandler handles GET /seller
func (h *Handler) SellerDashboardHandler(c *gin.Context) {
	sess, _ := h.store.Current()
	auctions, err := h.api.AuctionsBySeller(c.Request.Context(), sess.UserID)
	if err != nil {
		h.fail(c, "SellerDashboardHandler", err, map[string]any{"user_id": sess.UserID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, helpers.SellerView{Session: sess, Auctions: auctions}, "seller auctions retrieved successfully")
}

// UpdateAuctionHandler handles PUT /seller/auctions/:id
func (h *Handler) UpdateAuctionHandler(c *gin.Context) {
	id := models.ID(c.Param("id"))
	in, ok := h.bindAuction(c, "UpdateAuctionHandler")
	if !ok {
		return
	}

	auction, err := h.api.UpdateAuction(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, "UpdateAuctionHandler", err, map[string]any{"auction_id": id})
		return
	}

	h.notes.Show("Auction updated", models.SeveritySuccess)
	utils.JSONResponse(c, http.StatusOK, auction, "auction updated successfully")
	helpers.LogSuccess("UpdateAuctionHandler", "auction updated", map[string]any{"auction_id": id})
}

// DeleteAuctionHandler handles DELETE /seller/auctions/:id
func (h *Handler) DeleteAuctionHandler(c *gin.Context) {
	id := models.ID(c.Param("id"))
	if err := h.api.DeleteAuction(c.Request.Context(), id); err != nil {
		h.fail(c, "DeleteAuctionHandler", err, map[string]any{"auction_id": id})
		return
	}

	h.closeLive(id)
	h.notes.Show("Auction deleted", models.SeveritySuccess)
	utils.JSONResponse(c, http.StatusOK, gin.H{"id": id}, "auction deleted successfully")
	helpers.LogSuccess("DeleteAuctionHandler", "auction deleted", map[string]any{"auction_id": id})
}

// ActivateAuctionHandler handles POST /seller/auctions/:id/activate
func (h *Handler) ActivateAuctionHandler(c *gin.Context) {
	id := models.ID(c.Param("id"))
	auction, err := h.api.ActivateAuction(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "ActivateAuctionHandler", err, map[string]any{"auction_id": id})
		return
	}

	h.notes.Show("Auction activated", models.SeveritySuccess)
	utils.JSONResponse(c, http.StatusOK, auction, "auction activated successfully")
	helpers.LogSuccess("ActivateAuctionHandler", "auction activated", map[string]any{"auction_id": id})
}

// closeLive unmounts the live view of a deleted auction, if one is open.
func (h *Handler) closeLive(id models.ID) {
	if v, ok := h.views.Get(id); ok {
		h.views.Unmount(v)
	}
}
