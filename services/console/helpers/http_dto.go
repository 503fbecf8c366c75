package helpers

import (
	"auction-console/internal/live"
	"auction-console/internal/models"

	"github.com/shopspring/decimal"
)

// Request DTOs
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type AuctionRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	StartPrice  decimal.Decimal `json:"startPrice"`
	ImageURL    *string         `json:"imageUrl"`
}

// BidRequest carries only the amount; the auction comes from the route.
type BidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// View models
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

type HomeView struct {
	Authenticated bool            `json:"authenticated"`
	Session       *models.Session `json:"session,omitempty"`
	CreateAuction Link            `json:"createAuction"`
	Links         []Link          `json:"links"`
}

type FormField struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type FormView struct {
	Action string      `json:"action"`
	Fields []FormField `json:"fields"`
}

type AuctionDetailView struct {
	Auction     models.Auction  `json:"auction"`
	Price       decimal.Decimal `json:"price"`
	Bids        []models.Bid    `json:"bids"`
	Leaderboard []models.Bid    `json:"leaderboard"`
	LiveURL     string          `json:"liveUrl"`
	CanBid      bool            `json:"canBid"`
}

type WinnerView struct {
	AuctionID models.ID `json:"auctionId"`
	Winner    string    `json:"winner"`
}

type SellerView struct {
	Session  models.Session   `json:"session"`
	Auctions []models.Auction `json:"auctions"`
}

type AdminView struct {
	Users    []models.User    `json:"users"`
	Auctions []models.Auction `json:"auctions"`
}

// LiveBidView is returned when a live bid was handed to the channel. The bid is
// pending until the broker echoes it back on the stream.
type LiveBidView struct {
	Amount   decimal.Decimal `json:"amount"`
	Snapshot live.Snapshot   `json:"snapshot"`
}

// Navigation returns the links a session may follow.
func Navigation(sess *models.Session) []Link {
	links := []Link{{Label: "Auctions", Href: "/auctions"}}
	if sess == nil {
		return append(links, Link{Label: "Login", Href: "/login"}, Link{Label: "Register", Href: "/register"})
	}
	switch sess.Role {
	case models.RoleSeller:
		links = append(links, Link{Label: "Create Auction", Href: "/create-auction"}, Link{Label: "My Auctions", Href: "/seller"})
	case models.RoleAdmin:
		links = append(links, Link{Label: "Admin", Href: "/admin"})
	}
	return links
}

// CreateAuctionLink points sellers at the listing form and everyone else at login.
func CreateAuctionLink(sess *models.Session) Link {
	if sess != nil && sess.Role == models.RoleSeller {
		return Link{Label: "Create Auction", Href: "/create-auction"}
	}
	return Link{Label: "Create Auction", Href: "/login"}
}

var (
	LoginForm = FormView{Action: "/login", Fields: []FormField{
		{Name: "email", Type: "email", Required: true},
		{Name: "password", Type: "password", Required: true},
	}}
	RegisterForm = FormView{Action: "/register", Fields: []FormField{
		{Name: "username", Type: "text", Required: true},
		{Name: "email", Type: "email", Required: true},
		{Name: "password", Type: "password", Required: true},
		{Name: "role", Type: "select", Required: true, Options: []string{string(models.RoleBidder), string(models.RoleSeller)}},
	}}
	AuctionForm = FormView{Action: "/create-auction", Fields: []FormField{
		{Name: "title", Type: "text", Required: true},
		{Name: "description", Type: "textarea", Required: true},
		{Name: "startPrice", Type: "number", Required: true},
		{Name: "imageUrl", Type: "url"},
	}}
)
