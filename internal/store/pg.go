package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/varus-ledger/internal/domain"
	"github.com/feral-file/varus-ledger/internal/ledger"
	"github.com/feral-file/varus-ledger/internal/store/schema"
)

// nextTokenIDKey is the key_value_store key holding the allocator counter
const nextTokenIDKey = "next_token_id"

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the ledger tables
func (s *pgStore) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&schema.Token{},
		&schema.TokenMetadata{},
		&schema.OwnerIndexEntry{},
		&schema.AllowlistEntry{},
		&schema.KeyValueStore{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ApplyChangeset commits one operation's writes in a single transaction.
// The engine calls this before touching its own state, so a failure here
// aborts the whole operation on both sides.
func (s *pgStore) ApplyChangeset(ctx context.Context, cs *ledger.Changeset) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range cs.Mints {
			doc, err := json.Marshal(w.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata for token %d: %w", w.Token.ID, err)
			}

			token := schema.Token{
				TokenID: uint64(w.Token.ID),
				Owner:   string(w.Token.Owner),
			}
			if err := tx.Create(&token).Error; err != nil {
				return fmt.Errorf("failed to insert token %d: %w", w.Token.ID, err)
			}

			metadata := schema.TokenMetadata{
				TokenID:  uint64(w.Token.ID),
				Document: datatypes.JSON(doc),
				Hash:     w.MetadataHash,
			}
			if err := tx.Create(&metadata).Error; err != nil {
				return fmt.Errorf("failed to insert metadata for token %d: %w", w.Token.ID, err)
			}

			if err := appendOwnerIndex(tx, w.Token.Owner, w.Token.ID); err != nil {
				return err
			}
		}

		for _, m := range cs.Moves {
			result := tx.Model(&schema.Token{}).
				Where("token_id = ?", uint64(m.TokenID)).
				Update("owner", string(m.To))
			if result.Error != nil {
				return fmt.Errorf("failed to update owner of token %d: %w", m.TokenID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("token %d missing from store: %w", m.TokenID, domain.ErrTokenNotFound)
			}

			err := tx.Where("owner = ? AND token_id = ?", string(m.From), uint64(m.TokenID)).
				Delete(&schema.OwnerIndexEntry{}).Error
			if err != nil {
				return fmt.Errorf("failed to unindex token %d from %q: %w", m.TokenID, m.From, err)
			}

			if err := appendOwnerIndex(tx, m.To, m.TokenID); err != nil {
				return err
			}
		}

		if cs.AllowlistAdd != nil {
			var count int64
			if err := tx.Model(&schema.AllowlistEntry{}).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count allowlist: %w", err)
			}
			entry := schema.AllowlistEntry{
				Account:  string(*cs.AllowlistAdd),
				Position: count,
			}
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
			if err != nil {
				return fmt.Errorf("failed to insert allowlist entry %q: %w", *cs.AllowlistAdd, err)
			}
		}

		kv := schema.KeyValueStore{
			Key:   nextTokenIDKey,
			Value: strconv.FormatUint(uint64(cs.NextID), 10),
		}
		if err := tx.Save(&kv).Error; err != nil {
			return fmt.Errorf("failed to save allocator counter: %w", err)
		}

		return nil
	})
}

// appendOwnerIndex inserts an owner-index row at the next position for the
// owner. Positions stay monotonic per owner even after removals, which is all
// enumeration order needs.
func appendOwnerIndex(tx *gorm.DB, owner domain.AccountID, id domain.TokenID) error {
	var next int64
	err := tx.Model(&schema.OwnerIndexEntry{}).
		Where("owner = ?", string(owner)).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&next).Error
	if err != nil {
		return fmt.Errorf("failed to compute index position for %q: %w", owner, err)
	}

	entry := schema.OwnerIndexEntry{
		Owner:    string(owner),
		TokenID:  uint64(id),
		Position: next,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to index token %d under %q: %w", id, owner, err)
	}
	return nil
}

// LoadSnapshot reads the full persisted ledger state. An empty database
// yields an empty snapshot, not an error.
func (s *pgStore) LoadSnapshot(ctx context.Context) (*ledger.Snapshot, error) {
	db := s.db.WithContext(ctx)
	snap := &ledger.Snapshot{
		OwnerOrder: make(map[domain.AccountID][]domain.TokenID),
	}

	var kv schema.KeyValueStore
	err := db.Where("key = ?", nextTokenIDKey).First(&kv).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fresh ledger
	case err != nil:
		return nil, fmt.Errorf("failed to load allocator counter: %w", err)
	default:
		next, err := strconv.ParseUint(kv.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse allocator counter: %w", err)
		}
		snap.NextID = domain.TokenID(next)
	}

	var tokens []schema.Token
	if err := db.Preload("Metadata").Order("token_id").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	for _, t := range tokens {
		w := ledger.TokenWrite{
			Token: domain.Token{
				ID:    domain.TokenID(t.TokenID),
				Owner: domain.AccountID(t.Owner),
			},
		}
		if t.Metadata != nil {
			if err := json.Unmarshal(t.Metadata.Document, &w.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for token %d: %w", t.TokenID, err)
			}
			w.MetadataHash = t.Metadata.Hash
		}
		snap.Tokens = append(snap.Tokens, w)
	}

	var index []schema.OwnerIndexEntry
	if err := db.Order("owner, position").Find(&index).Error; err != nil {
		return nil, fmt.Errorf("failed to load owner index: %w", err)
	}
	for _, entry := range index {
		owner := domain.AccountID(entry.Owner)
		snap.OwnerOrder[owner] = append(snap.OwnerOrder[owner], domain.TokenID(entry.TokenID))
	}

	var allowlist []schema.AllowlistEntry
	if err := db.Order("position").Find(&allowlist).Error; err != nil {
		return nil, fmt.Errorf("failed to load allowlist: %w", err)
	}
	for _, entry := range allowlist {
		snap.Allowlist = append(snap.Allowlist, domain.AccountID(entry.Account))
	}

	return snap, nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings
// into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// database/sql treats MaxIdleConns > MaxOpenConns as misconfiguration
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}
