package handler

import (
	"fmt"
	"net/http"

	bidding "auction-console/internal/biddingService"
	"auction-console/internal/models"
	"auction-console/services/console/helpers"
	"auction-console/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const leaderboardSize = 10

// HomeHandler handles GET /
func (h *Handler) HomeHandler(c *gin.Context) {
	sess, ok := h.session()
	view := helpers.HomeView{
		Authenticated: ok,
		Session:       sess,
		CreateAuction: helpers.CreateAuctionLink(sess),
		Links:         helpers.Navigation(sess),
	}
	utils.JSONResponse(c, http.StatusOK, view, "home")
}

// ListAuctionsHandler handles GET /auctions
func (h *Handler) ListAuctionsHandler(c *gin.Context) {
	auctions, err := h.api.ListAuctions(c.Request.Context())
	if err != nil {
		h.fail(c, "ListAuctionsHandler", err, nil)
		return
	}
	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
}

// AuctionDetailHandler handles GET /auctions/:id
// Detail and bid history are fetched concurrently and merged in whatever order
// they return.
func (h *Handler) AuctionDetailHandler(c *gin.Context) {
	id := models.ID(c.Param("id"))
	ledger := bidding.NewLedger()
	defer ledger.Close()

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		auction, err := h.api.GetAuction(ctx, id)
		if err != nil {
			return err
		}
		ledger.SetAuction(auction)
		return nil
	})
	g.Go(func() error {
		history, err := h.api.BidHistory(ctx, id)
		if err != nil {
			return err
		}
		ledger.SeedHistory(history)
		return nil
	})
	if err := g.Wait(); err != nil {
		h.fail(c, "AuctionDetailHandler", err, map[string]any{"auction_id": id})
		return
	}

	auction, _ := ledger.Auction()
	sess, _ := h.session()
	view := helpers.AuctionDetailView{
		Auction:     auction,
		Price:       ledger.CurrentPrice(),
		Bids:        ledger.Bids(),
		Leaderboard: ledger.Leaderboard(leaderboardSize),
		LiveURL:     fmt.Sprintf("/auctions/%s/live", id),
		CanBid:      auction.Active && sess != nil && (sess.Role == models.RoleBidder || sess.Role == models.RoleAdmin),
	}
	utils.JSONResponse(c, http.StatusOK, view, "auction retrieved successfully")
}

// WinnerHandler handles GET /auctions/:id/winner
func (h *Handler) WinnerHandler(c *gin.Context) {
	id := models.ID(c.Param("id"))
	winner, err := h.api.Winner(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "WinnerHandler", err, map[string]any{"auction_id": id})
		return
	}
	utils.JSONResponse(c, http.StatusOK, helpers.WinnerView{AuctionID: id, Winner: winner}, "winner retrieved successfully")
}

// PlaceBidHandler handles POST /auctions/:id/bids
// The bid is checked against the latest known price before it is sent; the
// server remains the authority.
func (h *Handler) PlaceBidHandler(c *gin.Context) {
	id := models.ID(c.Param("id"))
	var req helpers.BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	// reject non-positive amounts without a round trip
	if err := bidding.PreValidate(req.Amount, decimal.Zero); err != nil {
		h.fail(c, "PlaceBidHandler", err, map[string]any{"auction_id": id})
		return
	}

	ctx := c.Request.Context()
	auction, err := h.api.GetAuction(ctx, id)
	if err != nil {
		h.fail(c, "PlaceBidHandler", err, map[string]any{"auction_id": id})
		return
	}
	if err := bidding.ValidateForAuction(auction, req.Amount, auction.Price()); err != nil {
		h.fail(c, "PlaceBidHandler", err, map[string]any{"auction_id": id, "amount": req.Amount.String()})
		return
	}

	sess, _ := h.session()
	bidReq := models.BidRequest{Amount: req.Amount, AuctionID: id}
	if sess != nil {
		bidReq.UserID = sess.UserID
	}
	bid, err := h.api.PlaceBid(ctx, bidReq)
	if err != nil {
		h.fail(c, "PlaceBidHandler", err, map[string]any{"auction_id": id, "amount": req.Amount.String()})
		return
	}

	h.notes.Show("Bid placed: "+req.Amount.StringFixed(2), models.SeveritySuccess)
	utils.JSONResponse(c, http.StatusCreated, bid, "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed", map[string]any{"auction_id": id, "amount": req.Amount.String()})
}
