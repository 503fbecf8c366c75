package models

import (
	"fmt"
	"net/mail"
	"strings"

	"auction-console/internal/auctionerrors"

	"github.com/shopspring/decimal"
)

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the form before any network call.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return fmt.Errorf("%w: email and password are required", auctionerrors.ErrValidation)
	}
	return nil
}

// Registration is the sign-up form.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// Validate checks the form before any network call. Admin accounts cannot self-register.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("%w: username is required", auctionerrors.ErrValidation)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("%w: invalid email %q", auctionerrors.ErrValidation, r.Email)
	}
	if len(r.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", auctionerrors.ErrValidation)
	}
	if r.Role != RoleBidder && r.Role != RoleSeller {
		return fmt.Errorf("%w: role must be BIDDER or SELLER", auctionerrors.ErrValidation)
	}
	return nil
}

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
	UserID   ID     `json:"userId,omitempty"`
}

// AuctionInput is the create/update listing form.
type AuctionInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartPrice  decimal.Decimal `json:"startPrice"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	CreatedByID ID              `json:"createdById,omitempty"`
}

// Validate checks the listing form before any network call.
func (in AuctionInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", auctionerrors.ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description is required", auctionerrors.ErrValidation)
	}
	if !in.StartPrice.IsPositive() {
		return fmt.Errorf("%w: start price must be positive", auctionerrors.ErrValidation)
	}
	return nil
}

// BidRequest is the payload of a non-live bid.
type BidRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	AuctionID ID              `json:"auctionId"`
	UserID    ID              `json:"userId,omitempty"`
}
