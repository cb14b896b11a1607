// Package ledger persists orders, portfolio snapshots, strategy weights
// and realized trade outcomes in SQLite, and computes the performance
// aggregates the reallocator consumes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"drift/internal/types"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Store implements the performance ledger on Gorm + SQLite.
type Store struct {
	db *gorm.DB
}

// Open initializes the ledger at path, creating parent directories and
// migrating the schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ledger: store path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&orderModel{},
		&snapshotModel{},
		&strategyWeightModel{},
		&tradeOutcomeModel{},
	); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: keep the pool small so the status server's reads
	// don't contend with the cycle writer.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --------------------------- Orders ---------------------------

// UpsertOrder records an order, keyed by client id. A pending order that
// later resolves is updated in place rather than duplicated.
func (s *Store) UpsertOrder(ctx context.Context, order types.Order) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger store not initialized")
	}
	if strings.TrimSpace(order.ID) == "" {
		return fmt.Errorf("order id required")
	}
	model := newOrderModel(order)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "client_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"quantity", "price", "notional", "status", "error", "filled_at", "updated_at",
			}),
		}).
		Create(&model).Error
}

// UpsertOrders records a batch inside one transaction.
func (s *Store) UpsertOrders(ctx context.Context, orders []types.Order) error {
	if s == nil || s.db == nil || len(orders) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, order := range orders {
			if strings.TrimSpace(order.ID) == "" {
				continue
			}
			model := newOrderModel(order)
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "client_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"quantity", "price", "notional", "status", "error", "filled_at", "updated_at",
				}),
			}).Create(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListOrders returns the most recent orders, newest first.
func (s *Store) ListOrders(ctx context.Context, limit int) ([]types.Order, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("ledger store not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var models []orderModel
	if err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]types.Order, 0, len(models))
	for _, m := range models {
		out = append(out, orderModelToRecord(m))
	}
	return out, nil
}

// PendingOrders returns orders last seen pending, oldest first, for
// next-cycle reconciliation.
func (s *Store) PendingOrders(ctx context.Context) ([]types.Order, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("ledger store not initialized")
	}
	var models []orderModel
	if err := s.db.WithContext(ctx).
		Where("status = ?", string(types.OrderStatusPending)).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]types.Order, 0, len(models))
	for _, m := range models {
		out = append(out, orderModelToRecord(m))
	}
	return out, nil
}

// FilledOrdersBySymbol returns every filled order for a symbol in fill
// order, the replay input for average entry price.
func (s *Store) FilledOrdersBySymbol(ctx context.Context, symbol string) ([]types.Order, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("ledger store not initialized")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	var models []orderModel
	if err := s.db.WithContext(ctx).
		Where("symbol = ? AND status = ?", symbol, string(types.OrderStatusFilled)).
		Order("filled_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]types.Order, 0, len(models))
	for _, m := range models {
		out = append(out, orderModelToRecord(m))
	}
	return out, nil
}

// ------------------------- Snapshots --------------------------

// AppendSnapshot records an end-of-cycle portfolio snapshot.
func (s *Store) AppendSnapshot(ctx context.Context, snap types.PortfolioSnapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger store not initialized")
	}
	model := newSnapshotModel(snap)
	return s.db.WithContext(ctx).Create(&model).Error
}

// LatestSnapshot returns the most recent snapshot, or ok=false when the
// ledger is empty.
func (s *Store) LatestSnapshot(ctx context.Context) (types.PortfolioSnapshot, bool, error) {
	if s == nil || s.db == nil {
		return types.PortfolioSnapshot{}, false, fmt.Errorf("ledger store not initialized")
	}
	var model snapshotModel
	err := s.db.WithContext(ctx).Order("timestamp DESC, id DESC").First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.PortfolioSnapshot{}, false, nil
		}
		return types.PortfolioSnapshot{}, false, err
	}
	return snapshotModelToRecord(model), true, nil
}

// FirstSnapshot returns the oldest snapshot, the baseline for lifetime
// P&L, or ok=false when the ledger is empty.
func (s *Store) FirstSnapshot(ctx context.Context) (types.PortfolioSnapshot, bool, error) {
	if s == nil || s.db == nil {
		return types.PortfolioSnapshot{}, false, fmt.Errorf("ledger store not initialized")
	}
	var model snapshotModel
	err := s.db.WithContext(ctx).Order("timestamp ASC, id ASC").First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.PortfolioSnapshot{}, false, nil
		}
		return types.PortfolioSnapshot{}, false, err
	}
	return snapshotModelToRecord(model), true, nil
}

// SnapshotsSince returns snapshots at or after the cutoff, oldest first.
func (s *Store) SnapshotsSince(ctx context.Context, since time.Time) ([]types.PortfolioSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("ledger store not initialized")
	}
	var models []snapshotModel
	query := s.db.WithContext(ctx).Order("timestamp ASC, id ASC")
	if !since.IsZero() {
		query = query.Where("timestamp >= ?", since.UnixMilli())
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]types.PortfolioSnapshot, 0, len(models))
	for _, m := range models {
		out = append(out, snapshotModelToRecord(m))
	}
	return out, nil
}

// ---------------------- Strategy weights ----------------------

// SaveStrategyWeights upserts the current ensemble weights, one row per
// strategy.
func (s *Store) SaveStrategyWeights(ctx context.Context, weights []types.StrategyWeight) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger store not initialized")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range weights {
			if strings.TrimSpace(w.Strategy) == "" {
				continue
			}
			model := newStrategyWeightModel(w)
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "strategy"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"fraction", "lifetime_pl", "win_rate", "trades", "updated_at",
				}),
			}).Create(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// StrategyWeights returns the persisted ensemble weights.
func (s *Store) StrategyWeights(ctx context.Context) ([]types.StrategyWeight, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("ledger store not initialized")
	}
	var models []strategyWeightModel
	if err := s.db.WithContext(ctx).Order("strategy ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]types.StrategyWeight, 0, len(models))
	for _, m := range models {
		out = append(out, strategyWeightModelToRecord(m))
	}
	return out, nil
}

// ----------------------- Trade outcomes -----------------------

// TradeOutcome is one realized round trip attributed to a strategy.
type TradeOutcome struct {
	Strategy      string
	Symbol        string
	RealizedPnL   string
	EntryNotional string
	ReturnPct     float64
	ClosedAt      time.Time
}

// AppendTradeOutcome records a realized round trip.
func (s *Store) AppendTradeOutcome(ctx context.Context, outcome TradeOutcome) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger store not initialized")
	}
	if outcome.ClosedAt.IsZero() {
		outcome.ClosedAt = time.Now()
	}
	model := tradeOutcomeModel{
		Strategy:      strings.TrimSpace(outcome.Strategy),
		Symbol:        strings.ToUpper(strings.TrimSpace(outcome.Symbol)),
		RealizedPnL:   outcome.RealizedPnL,
		EntryNotional: outcome.EntryNotional,
		ReturnPct:     outcome.ReturnPct,
		ClosedAtUnix:  outcome.ClosedAt.UnixMilli(),
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// TradeOutcomesSince returns realized round trips at or after the cutoff.
func (s *Store) TradeOutcomesSince(ctx context.Context, since time.Time) ([]TradeOutcome, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("ledger store not initialized")
	}
	var models []tradeOutcomeModel
	query := s.db.WithContext(ctx).Order("closed_at ASC, id ASC")
	if !since.IsZero() {
		query = query.Where("closed_at >= ?", since.UnixMilli())
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]TradeOutcome, 0, len(models))
	for _, m := range models {
		out = append(out, TradeOutcome{
			Strategy:      m.Strategy,
			Symbol:        m.Symbol,
			RealizedPnL:   m.RealizedPnL,
			EntryNotional: m.EntryNotional,
			ReturnPct:     m.ReturnPct,
			ClosedAt:      millisToTime(m.ClosedAtUnix),
		})
	}
	return out, nil
}
