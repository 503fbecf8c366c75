package models

import (
	"encoding/json"
	"testing"

	"auction-console/internal/auctionerrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBid_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    Bid
	}{
		{
			name:    "history_shape",
			payload: `{"id":7,"amount":150.5,"username":"alice","auctionId":42,"timestamp":"2024-05-01T10:00:00"}`,
			want:    Bid{ID: "7", AuctionID: "42", BidderName: "alice", Amount: decimal.RequireFromString("150.5"), Timestamp: "2024-05-01T10:00:00"},
		},
		{
			name:    "live_topic_shape",
			payload: `{"username":"bob","price":140,"timestamp":[2024,5,1,10,0]}`,
			want:    Bid{BidderName: "bob", Amount: decimal.NewFromInt(140)},
		},
		{
			name:    "canonical_shape",
			payload: `{"auctionId":"42","bidderName":"x","amount":"99.99"}`,
			want:    Bid{AuctionID: "42", BidderName: "x", Amount: decimal.RequireFromString("99.99")},
		},
		{
			name:    "missing_amount",
			payload: `{"bidder":"y"}`,
			want:    Bid{BidderName: "y"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var got Bid
			require.NoError(t, json.Unmarshal([]byte(tc.payload), &got))
			require.Equal(t, tc.want.ID, got.ID)
			require.Equal(t, tc.want.AuctionID, got.AuctionID)
			require.Equal(t, tc.want.BidderName, got.BidderName)
			require.True(t, tc.want.Amount.Equal(got.Amount), "amount: want %s got %s", tc.want.Amount, got.Amount)
			require.Equal(t, tc.want.Timestamp, got.Timestamp)
		})
	}

	var b Bid
	require.Error(t, json.Unmarshal([]byte(`not json`), &b))
}

func TestID_JSON(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}{A: "42", B: "abc"})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":42,"b":"abc"}`, string(out))

	var id ID
	require.NoError(t, json.Unmarshal([]byte(`null`), &id))
	require.Equal(t, ID(""), id)
	require.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestAuction_Price(t *testing.T) {
	t.Parallel()

	var a Auction
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"startPrice":"100","currentPrice":null,"imageUrl":null,"active":true}`), &a))
	require.True(t, a.Price().Equal(decimal.NewFromInt(100)))
	require.Nil(t, a.ImageURL)

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"startPrice":100,"currentPrice":120,"active":true}`), &a))
	require.True(t, a.Price().Equal(decimal.NewFromInt(120)))
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	r, ok := ParseRole(" seller ")
	require.True(t, ok)
	require.Equal(t, RoleSeller, r)

	_, ok = ParseRole("MODERATOR")
	require.False(t, ok)
}

func TestForms_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Credentials{Email: "a@b.com", Password: "secret"}.Validate())
	require.ErrorIs(t, Credentials{Email: "a@b.com"}.Validate(), auctionerrors.ErrValidation)

	reg := Registration{Username: "a", Email: "a@b.com", Password: "secret", Role: RoleBidder}
	require.NoError(t, reg.Validate())
	reg.Role = RoleAdmin
	require.ErrorIs(t, reg.Validate(), auctionerrors.ErrValidation)

	in := AuctionInput{Title: "Watch", Description: "Vintage", StartPrice: decimal.NewFromInt(10)}
	require.NoError(t, in.Validate())
	in.StartPrice = decimal.Zero
	require.ErrorIs(t, in.Validate(), auctionerrors.ErrValidation)
}
