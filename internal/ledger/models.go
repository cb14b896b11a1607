package ledger

import (
	"encoding/json"
	"strings"
	"time"

	"drift/internal/types"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type orderModel struct {
	ID        int64  `gorm:"column:id;primaryKey"`
	ClientID  string `gorm:"column:client_id;uniqueIndex"`
	Symbol    string `gorm:"column:symbol;index"`
	Side      string `gorm:"column:side"`
	Quantity  string `gorm:"column:quantity"`
	Price     string `gorm:"column:price"`
	Notional  string `gorm:"column:notional"`
	Status    string `gorm:"column:status;index"`
	Strategy  string `gorm:"column:strategy;index"`
	Reasoning string `gorm:"column:reasoning"`
	Error     string `gorm:"column:error"`
	CreatedAt int64  `gorm:"column:created_at;index"`
	FilledAt  int64  `gorm:"column:filled_at"`
	UpdatedAt int64  `gorm:"column:updated_at"`
}

func (orderModel) TableName() string { return "orders" }

type snapshotModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Timestamp     int64          `gorm:"column:timestamp;index"`
	Cash          string         `gorm:"column:cash"`
	TotalValue    string         `gorm:"column:total_value"`
	PnL           string         `gorm:"column:pnl"`
	PnLPct        float64        `gorm:"column:pnl_pct"`
	HoldingsJSON  datatypes.JSON `gorm:"column:holdings"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
}

func (snapshotModel) TableName() string { return "portfolio_snapshots" }

type strategyWeightModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	Strategy      string  `gorm:"column:strategy;uniqueIndex"`
	Fraction      float64 `gorm:"column:fraction"`
	LifetimePL    string  `gorm:"column:lifetime_pl"`
	WinRate       float64 `gorm:"column:win_rate"`
	Trades        int     `gorm:"column:trades"`
	UpdatedAtUnix int64   `gorm:"column:updated_at"`
}

func (strategyWeightModel) TableName() string { return "strategy_weights" }

type tradeOutcomeModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	Strategy      string  `gorm:"column:strategy;index"`
	Symbol        string  `gorm:"column:symbol;index"`
	RealizedPnL   string  `gorm:"column:realized_pnl"`
	ClosedAtUnix  int64   `gorm:"column:closed_at;index"`
	EntryNotional string  `gorm:"column:entry_notional"`
	ReturnPct     float64 `gorm:"column:return_pct"`
}

func (tradeOutcomeModel) TableName() string { return "trade_outcomes" }

func newOrderModel(o types.Order) orderModel {
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	return orderModel{
		ClientID:  strings.TrimSpace(o.ID),
		Symbol:    strings.ToUpper(strings.TrimSpace(o.Symbol)),
		Side:      string(o.Side),
		Quantity:  o.Quantity.String(),
		Price:     o.Price.String(),
		Notional:  o.Notional.String(),
		Status:    string(o.Status),
		Strategy:  strings.TrimSpace(o.Strategy),
		Reasoning: o.Reasoning,
		Error:     o.Error,
		CreatedAt: o.CreatedAt.UnixMilli(),
		FilledAt:  timeToMillis(o.FilledAt),
		UpdatedAt: now.UnixMilli(),
	}
}

func orderModelToRecord(m orderModel) types.Order {
	return types.Order{
		ID:        m.ClientID,
		Symbol:    m.Symbol,
		Side:      types.Side(m.Side),
		Quantity:  mustDecimal(m.Quantity),
		Price:     mustDecimal(m.Price),
		Notional:  mustDecimal(m.Notional),
		Status:    types.OrderStatus(m.Status),
		Strategy:  m.Strategy,
		Reasoning: m.Reasoning,
		Error:     m.Error,
		CreatedAt: millisToTime(m.CreatedAt),
		FilledAt:  millisToTime(m.FilledAt),
	}
}

func newSnapshotModel(s types.PortfolioSnapshot) snapshotModel {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	holdings, _ := json.Marshal(s.Holdings)
	return snapshotModel{
		Timestamp:     s.Timestamp.UnixMilli(),
		Cash:          s.Cash.String(),
		TotalValue:    s.TotalValue.String(),
		PnL:           s.PnL.String(),
		PnLPct:        s.PnLPct,
		HoldingsJSON:  datatypes.JSON(holdings),
		CreatedAtUnix: time.Now().UnixMilli(),
	}
}

func snapshotModelToRecord(m snapshotModel) types.PortfolioSnapshot {
	rec := types.PortfolioSnapshot{
		Timestamp:  millisToTime(m.Timestamp),
		Cash:       mustDecimal(m.Cash),
		TotalValue: mustDecimal(m.TotalValue),
		PnL:        mustDecimal(m.PnL),
		PnLPct:     m.PnLPct,
	}
	if len(m.HoldingsJSON) > 0 {
		_ = json.Unmarshal(m.HoldingsJSON, &rec.Holdings)
	}
	return rec
}

func newStrategyWeightModel(w types.StrategyWeight) strategyWeightModel {
	return strategyWeightModel{
		Strategy:      strings.TrimSpace(w.Strategy),
		Fraction:      w.Fraction,
		LifetimePL:    w.LifetimePL.String(),
		WinRate:       w.WinRate,
		Trades:        w.Trades,
		UpdatedAtUnix: time.Now().UnixMilli(),
	}
}

func strategyWeightModelToRecord(m strategyWeightModel) types.StrategyWeight {
	return types.StrategyWeight{
		Strategy:   m.Strategy,
		Fraction:   m.Fraction,
		LifetimePL: mustDecimal(m.LifetimePL),
		WinRate:    m.WinRate,
		Trades:     m.Trades,
	}
}

func mustDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func timeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisToTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v)
}
