package perftests

import (
	"fmt"
	"math/rand"
	"testing"

	bidding "auction-console/internal/biddingService"
	"auction-console/internal/models"

	"github.com/shopspring/decimal"
)

func randomBid(rnd *rand.Rand, i int) models.Bid {
	return models.Bid{
		AuctionID:  "42",
		BidderName: fmt.Sprintf("user_%d", rnd.Intn(500)),
		Amount:     decimal.NewFromInt(int64(100 + rnd.Intn(10_000))).Shift(-2),
		ID:         models.ID(fmt.Sprintf("bid_%d", i)),
	}
}

// Benchmark 1: Apply - one view merging a live feed
func Benchmark_Ledger_Apply(b *testing.B) {
	ledger := bidding.NewLedger()
	defer ledger.Close()
	rnd := rand.New(rand.NewSource(1))

	bids := make([]models.Bid, b.N)
	for i := range bids {
		bids[i] = randomBid(rnd, i)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ledger.Apply(bids[i])
	}
}

// Benchmark 2: Apply while the view re-renders (readers contend with the feed)
func Benchmark_Ledger_ApplyWithReaders(b *testing.B) {
	ledger := bidding.NewLedger()
	defer ledger.Close()
	ledger.SetAuction(models.Auction{ID: "42", StartPrice: decimal.NewFromInt(1), Active: true})

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(rand.Int63()))
		i := 0
		for pb.Next() {
			if i%4 == 0 {
				ledger.DisplayPrice()
				ledger.Leaderboard(10)
			} else {
				ledger.Apply(models.Bid{AuctionID: "42", BidderName: "u", Amount: decimal.NewFromInt(int64(1 + rnd.Intn(1000)))})
			}
			i++
		}
	})
}

// Benchmark 3: Leaderboard over a long auction
func Benchmark_Ledger_Leaderboard(b *testing.B) {
	for _, size := range []int{100, 1_000, 10_000} {
		b.Run(fmt.Sprintf("bids_%d", size), func(b *testing.B) {
			ledger := bidding.NewLedger()
			defer ledger.Close()
			rnd := rand.New(rand.NewSource(2))
			history := make([]models.Bid, size)
			for i := range history {
				history[i] = randomBid(rnd, i)
			}
			ledger.SeedHistory(history)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ledger.Leaderboard(10)
			}
		})
	}
}

// Benchmark 4: PreValidate on the send path
func Benchmark_PreValidate(b *testing.B) {
	current := decimal.RequireFromString("120")
	amounts := []decimal.Decimal{
		decimal.RequireFromString("100"),
		decimal.RequireFromString("120"),
		decimal.RequireFromString("120.01"),
		decimal.Zero,
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bidding.PreValidate(amounts[i%len(amounts)], current)
	}
}
