package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"auction-console/internal/auctionerrors"
	"auction-console/internal/live"
	"auction-console/internal/models"
	"auction-console/services/console/helpers"
	"auction-console/utils"

	"github.com/gin-gonic/gin"
)

// LiveAuctionHandler handles GET /auctions/:id/live
// The request is the lifetime of the live view: the channel opens when the
// stream starts and closes when the client goes away.
func (h *Handler) LiveAuctionHandler(c *gin.Context) {
	id := models.ID(c.Param("id"))
	v, err := h.views.Mount(c.Request.Context(), id, h.store.Token())
	if err != nil {
		h.fail(c, "LiveAuctionHandler", err, map[string]any{"auction_id": id})
		return
	}
	defer h.views.Unmount(v)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	utils.Info("LiveAuctionHandler: stream opened", map[string]any{"auction_id": id})
	writeEvent(c, live.Update{Type: live.UpdateSnapshot, Snapshot: v.Snapshot()})

	for {
		select {
		case u := <-v.Updates():
			writeEvent(c, u)
		case <-v.Done():
			utils.Info("LiveAuctionHandler: view closed", map[string]any{"auction_id": id})
			return
		case <-c.Request.Context().Done():
			utils.Info("LiveAuctionHandler: client disconnected", map[string]any{"auction_id": id})
			return
		}
	}
}

func writeEvent(c *gin.Context, u live.Update) {
	data, err := json.Marshal(u)
	if err != nil {
		utils.Error("LiveAuctionHandler: encode update", map[string]any{"type": u.Type, "error": err.Error()})
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", u.Type, data)
	c.Writer.Flush()
}

// LiveBidHandler handles POST /auctions/:id/live/bids
// It needs an open live view for the auction under the current session.
func (h *Handler) LiveBidHandler(c *gin.Context) {
	id := models.ID(c.Param("id"))
	var req helpers.BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LiveBidHandler", err)
		return
	}

	v, ok := h.views.Get(id)
	if !ok || v.Token() != h.store.Token() {
		err := fmt.Errorf("live bid on %s: %w", id, auctionerrors.ErrNotConnected)
		h.fail(c, "LiveBidHandler", err, map[string]any{"auction_id": id})
		return
	}

	// the view has already notified the operator of any failure
	if err := v.PlaceBid(c.Request.Context(), req.Amount); err != nil {
		status, message := helpers.MapErrorToView(err)
		utils.Warn("LiveBidHandler: bid not sent", map[string]any{"auction_id": id, "amount": req.Amount.String(), "error": err.Error()})
		utils.JSONError(c, status, err, message)
		return
	}

	utils.JSONResponse(c, http.StatusAccepted, helpers.LiveBidView{Amount: req.Amount, Snapshot: v.Snapshot()}, "bid sent")
	helpers.LogSuccess("LiveBidHandler", "bid sent", map[string]any{"auction_id": id, "amount": req.Amount.String()})
}
