package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestValidateWager(t *testing.T) {
	balance := d(10000)

	assert.NoError(t, validateWager(d(1), balance))
	assert.NoError(t, validateWager(d(1000), balance))
	assert.ErrorIs(t, validateWager(decimal.NewFromFloat(0.99), balance), ErrWagerTooSmall)
	assert.ErrorIs(t, validateWager(d(1001), balance), ErrWagerTooLarge)
	assert.ErrorIs(t, validateWager(d(500), d(499)), ErrInsufficientBalance)
}

func TestApplySettlementWin(t *testing.T) {
	user := &DBUser{Balance: d(10000)}

	// $100 at 1.80 pays $180.
	applySettlement(user, d(100), d(180), BetStatusWon)

	assert.True(t, user.Balance.Equal(d(10080)))
	assert.True(t, user.TotalWinnings.Equal(d(80)))
	assert.Equal(t, 1, user.TotalBets)
	assert.Equal(t, 1, user.BetsWon)
	assert.Equal(t, 1, user.BetsSettled)
}

func TestApplySettlementLoss(t *testing.T) {
	user := &DBUser{Balance: d(10000)}

	applySettlement(user, d(100), decimal.Zero, BetStatusLost)

	assert.True(t, user.Balance.Equal(d(9900)))
	assert.True(t, user.TotalLosses.Equal(d(100)))
	assert.Equal(t, 1, user.TotalBets)
	assert.Equal(t, 0, user.BetsWon)
	assert.Equal(t, 1, user.BetsSettled)
}

func TestApplySettlementPushRefunds(t *testing.T) {
	user := &DBUser{Balance: d(10000)}

	applySettlement(user, d(100), d(100), BetStatusPushed)

	// Stake returned, nothing won or lost, and the push never counts
	// toward the settled total that feeds the win rate.
	assert.True(t, user.Balance.Equal(d(10000)))
	assert.True(t, user.TotalWinnings.Equal(decimal.Zero))
	assert.True(t, user.TotalLosses.Equal(decimal.Zero))
	assert.Equal(t, 1, user.TotalBets)
	assert.Equal(t, 0, user.BetsSettled)
}

func TestApplySettlementFlexWin(t *testing.T) {
	user := &DBUser{Balance: d(10000)}

	applySettlement(user, d(50), d(75), BetStatusFlexWon)

	assert.True(t, user.Balance.Equal(d(10025)))
	assert.True(t, user.TotalWinnings.Equal(d(25)))
	assert.Equal(t, 1, user.BetsWon)
}

func TestWinRate(t *testing.T) {
	user := &DBUser{}
	assert.Equal(t, 0.0, user.WinRate())

	user.BetsWon = 3
	user.BetsSettled = 4
	assert.Equal(t, 0.75, user.WinRate())
}
