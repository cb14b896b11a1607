package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"drift/internal/gateway/exchange"
	"drift/internal/plan"
	"drift/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExchange struct {
	mock.Mock
	submissions []exchange.OrderRequest
}

func (m *MockExchange) Name() string { return "mock" }

func (m *MockExchange) Balances(ctx context.Context) (exchange.Balances, error) {
	args := m.Called(ctx)
	return args.Get(0).(exchange.Balances), args.Error(1)
}

func (m *MockExchange) CancelOpenOrders(ctx context.Context, symbols []string) (int, error) {
	args := m.Called(ctx, symbols)
	return args.Int(0), args.Error(1)
}

func (m *MockExchange) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (types.Order, error) {
	m.submissions = append(m.submissions, req)
	args := m.Called(ctx, req)
	return args.Get(0).(types.Order), args.Error(1)
}

func (m *MockExchange) OrderStatus(ctx context.Context, symbol, orderID string) (types.OrderStatus, error) {
	args := m.Called(ctx, symbol, orderID)
	return args.Get(0).(types.OrderStatus), args.Error(1)
}

func (m *MockExchange) LastPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

func usd(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func balancesWith(assets map[string]float64) exchange.Balances {
	b := exchange.Balances{Assets: map[string]decimal.Decimal{}, UpdatedAt: time.Now()}
	for sym, qty := range assets {
		b.Assets[sym] = decimal.NewFromFloat(qty)
	}
	return b
}

func filledOrder(req exchange.OrderRequest) types.Order {
	return types.Order{
		ID:        req.ClientID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  req.Quantity,
		Notional:  req.Notional,
		Status:    types.OrderStatusFilled,
		CreatedAt: time.Now(),
		FilledAt:  time.Now(),
	}
}

func newSequencer(ex exchange.Exchange) *Sequencer {
	return &Sequencer{
		Exchange:     ex,
		Quote:        "USDT",
		Filter:       plan.Filter{MinTradeUSD: usd(10)},
		FillTimeout:  time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

func TestRunCycleExecutesSellsThenBuys(t *testing.T) {
	ex := &MockExchange{}
	ex.On("CancelOpenOrders", mock.Anything, mock.Anything).Return(1, nil)
	ex.On("Balances", mock.Anything).Return(balancesWith(map[string]float64{
		"USDT": 5,
		"DOGE": 100, // 100 DOGE @ 0.30 = $30
	}), nil)
	ex.On("LastPrice", mock.Anything, "DOGE").Return(0.30, nil)
	ex.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "DOGE"
	})).Return(types.Order{
		ID: "drift-1", Symbol: "DOGE", Side: types.SideSell,
		Notional: usd(30), Status: types.OrderStatusFilled,
	}, nil)
	ex.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "SOL"
	})).Return(types.Order{
		ID: "drift-2", Symbol: "SOL", Side: types.SideBuy,
		Notional: usd(32), Status: types.OrderStatusFilled,
	}, nil)

	seq := newSequencer(ex)
	report, err := seq.RunCycle(context.Background(), []types.TradeIntent{
		{Symbol: "SOL", Side: types.SideBuy, Notional: usd(32)},
		{Symbol: "DOGE", Side: types.SideSell, Notional: usd(30)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Cancelled)

	require.Len(t, ex.submissions, 2)
	assert.Equal(t, types.SideSell, ex.submissions[0].Side)
	assert.Equal(t, "DOGE", ex.submissions[0].Symbol)
	assert.Equal(t, types.SideBuy, ex.submissions[1].Side)
	assert.Equal(t, "SOL", ex.submissions[1].Symbol)
	assert.Len(t, report.Executed, 2)
	assert.Empty(t, report.Failed)
}

func TestRunCycleSellQuantityNeverExceedsHeld(t *testing.T) {
	ex := &MockExchange{}
	ex.On("CancelOpenOrders", mock.Anything, mock.Anything).Return(0, nil)
	ex.On("Balances", mock.Anything).Return(balancesWith(map[string]float64{
		"USDT": 0,
		"DOGE": 100,
	}), nil)
	ex.On("LastPrice", mock.Anything, "DOGE").Return(0.30, nil)
	ex.On("SubmitOrder", mock.Anything, mock.Anything).Return(types.Order{Status: types.OrderStatusFilled}, nil)

	seq := newSequencer(ex)
	_, err := seq.RunCycle(context.Background(), []types.TradeIntent{
		{Symbol: "DOGE", Side: types.SideSell, Notional: usd(90)},
	})
	require.NoError(t, err)
	require.Len(t, ex.submissions, 1)
	assert.True(t, ex.submissions[0].Quantity.LessThanOrEqual(decimal.NewFromInt(100)),
		"sell quantity %s exceeds held 100", ex.submissions[0].Quantity)
}

func TestRunCycleFailedSellShrinksFundedBuyBelowMinimum(t *testing.T) {
	ex := &MockExchange{}
	ex.On("CancelOpenOrders", mock.Anything, mock.Anything).Return(0, nil)
	ex.On("Balances", mock.Anything).Return(balancesWith(map[string]float64{
		"USDT": 5,
		"DOGE": 100,
	}), nil)
	ex.On("LastPrice", mock.Anything, "DOGE").Return(0.30, nil)
	ex.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "DOGE"
	})).Return(types.Order{}, errors.New("rejected"))

	// The buy was admitted on the assumption the DOGE sell frees $30.
	// When the sell fails outright, the buy is re-clamped to the $5
	// actually on hand and drops under the trade minimum.
	seq := newSequencer(ex)
	report, err := seq.RunCycle(context.Background(), []types.TradeIntent{
		{Symbol: "SOL", Side: types.SideBuy, Notional: usd(32)},
		{Symbol: "DOGE", Side: types.SideSell, Notional: usd(30)},
	})
	require.NoError(t, err)
	require.Len(t, ex.submissions, 1, "buy must not reach the exchange")
	assert.Equal(t, "DOGE", ex.submissions[0].Symbol)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "SOL", report.Skipped[0].Intent.Symbol)
	assert.Equal(t, plan.SkipBelowMinTrade, report.Skipped[0].Reason)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "DOGE", report.Failed[0].Symbol)
}

func TestRunCycleShortFilledSellClampsBuyNotional(t *testing.T) {
	ex := &MockExchange{}
	ex.On("CancelOpenOrders", mock.Anything, mock.Anything).Return(0, nil)
	ex.On("Balances", mock.Anything).Return(balancesWith(map[string]float64{
		"USDT": 5,
		"DOGE": 100,
	}), nil)
	ex.On("LastPrice", mock.Anything, "DOGE").Return(0.30, nil)
	ex.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "DOGE"
	})).Return(types.Order{
		ID: "drift-1", Symbol: "DOGE", Side: types.SideSell,
		Notional: usd(12), Status: types.OrderStatusFilled,
	}, nil)
	ex.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "SOL"
	})).Return(types.Order{
		ID: "drift-2", Symbol: "SOL", Side: types.SideBuy,
		Notional: usd(17), Status: types.OrderStatusFilled,
	}, nil)

	seq := newSequencer(ex)
	report, err := seq.RunCycle(context.Background(), []types.TradeIntent{
		{Symbol: "SOL", Side: types.SideBuy, Notional: usd(32)},
		{Symbol: "DOGE", Side: types.SideSell, Notional: usd(30)},
	})
	require.NoError(t, err)
	require.Len(t, ex.submissions, 2)
	assert.Equal(t, "SOL", ex.submissions[1].Symbol)
	// $5 cash plus the $12 actually filled, never the planned $30.
	assert.True(t, ex.submissions[1].Notional.Equal(usd(17)),
		"buy notional %s not clamped to freed capital", ex.submissions[1].Notional)
	assert.Len(t, report.Executed, 2)
}

func TestRunCycleAggregatesFailures(t *testing.T) {
	ex := &MockExchange{}
	ex.On("CancelOpenOrders", mock.Anything, mock.Anything).Return(0, nil)
	ex.On("Balances", mock.Anything).Return(balancesWith(map[string]float64{"USDT": 100}), nil)
	ex.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "BTC"
	})).Return(types.Order{}, errors.New("rejected"))
	ex.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "ETH"
	})).Return(types.Order{Status: types.OrderStatusFilled}, nil)

	seq := newSequencer(ex)
	report, err := seq.RunCycle(context.Background(), []types.TradeIntent{
		{Symbol: "BTC", Side: types.SideBuy, Notional: usd(40)},
		{Symbol: "ETH", Side: types.SideBuy, Notional: usd(40)},
	})
	require.NoError(t, err, "one rejected order must not fail the cycle")
	assert.Len(t, report.Failed, 1)
	assert.Len(t, report.Executed, 1)
	assert.Equal(t, "BTC", report.Failed[0].Symbol)
	assert.Equal(t, types.OrderStatusFailed, report.Failed[0].Status)
	assert.NotEmpty(t, report.Failed[0].Error)
}

func TestRunCycleBalanceSyncFailureIsFatal(t *testing.T) {
	ex := &MockExchange{}
	ex.On("CancelOpenOrders", mock.Anything, mock.Anything).Return(0, nil)
	ex.On("Balances", mock.Anything).Return(exchange.Balances{}, errors.New("down"))

	seq := newSequencer(ex)
	_, err := seq.RunCycle(context.Background(), []types.TradeIntent{
		{Symbol: "BTC", Side: types.SideBuy, Notional: usd(40)},
	})
	assert.Error(t, err)
}

func TestRunCycleFillTimeoutLeavesPending(t *testing.T) {
	ex := &MockExchange{}
	ex.On("CancelOpenOrders", mock.Anything, mock.Anything).Return(0, nil)
	ex.On("Balances", mock.Anything).Return(balancesWith(map[string]float64{"USDT": 100}), nil)
	ex.On("SubmitOrder", mock.Anything, mock.Anything).
		Return(types.Order{ID: "drift-x", Symbol: "BTC", Status: types.OrderStatusPending}, nil)
	ex.On("OrderStatus", mock.Anything, "BTC", "drift-x").Return(types.OrderStatusPending, nil)

	seq := newSequencer(ex)
	seq.FillTimeout = 30 * time.Millisecond
	report, err := seq.RunCycle(context.Background(), []types.TradeIntent{
		{Symbol: "BTC", Side: types.SideBuy, Notional: usd(40)},
	})
	require.NoError(t, err)
	require.Len(t, report.Pending, 1)
	assert.Equal(t, types.OrderStatusPending, report.Pending[0].Status)
	assert.Empty(t, report.Failed)
}
