package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateRecord is the cart_states row.
type StateRecord struct {
	SessionID     string          `gorm:"column:session_id;primaryKey"`
	Document      string          `gorm:"column:document"`
	ItemCount     int             `gorm:"column:item_count"`
	TotalQuantity int             `gorm:"column:total_quantity"`
	Total         decimal.Decimal `gorm:"column:total;type:numeric(14,2)"`
	ServerSynced  bool            `gorm:"column:server_synced"`
	Version       int64           `gorm:"column:version"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (StateRecord) TableName() string { return "cart_states" }

// SQLStore persists cart documents through GORM. The denormalized columns
// exist for reporting; the document is the source of truth except for
// server_synced, which MarkSynced flips in place.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore builds a GORM-backed Persister.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Load(ctx context.Context, sessionID string) (*State, error) {
	var rec StateRecord
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", sessionID, err)
	}

	var state State
	if err := json.Unmarshal([]byte(rec.Document), &state); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", sessionID, err)
	}
	state.ServerSynced = rec.ServerSynced
	state.Version = rec.Version
	return &state, nil
}

func (s *SQLStore) Save(ctx context.Context, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", state.SessionID, err)
	}
	rec := StateRecord{
		SessionID:     state.SessionID,
		Document:      string(payload),
		ItemCount:     state.Summary.ItemCount,
		TotalQuantity: state.Summary.TotalQuantity,
		Total:         state.Summary.Total,
		ServerSynced:  state.ServerSynced,
		Version:       state.Version,
		UpdatedAt:     state.UpdatedAt,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save cart %s: %w", state.SessionID, err)
	}
	return nil
}

func (s *SQLStore) MarkSynced(ctx context.Context, sessionID string, version int64) error {
	err := s.db.WithContext(ctx).
		Model(&StateRecord{}).
		Where("session_id = ? AND version = ?", sessionID, version).
		Update("server_synced", true).Error
	if err != nil {
		return fmt.Errorf("mark cart %s synced: %w", sessionID, err)
	}
	return nil
}

// PurgeBefore deletes carts untouched since cutoff and returns how many rows went.
func (s *SQLStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&StateRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge carts: %w", res.Error)
	}
	return res.RowsAffected, nil
}
