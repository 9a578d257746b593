package schema

import (
	"time"
)

// Token represents the tokens table - the system of record for token
// existence and current ownership. The token id is the primary key and comes
// from the ledger's allocator, never from the database.
type Token struct {
	TokenID uint64 `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	// Owner is the current holder; the sink account for burned tokens
	Owner     string    `gorm:"column:owner;not null;type:text;index:idx_tokens_owner"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`

	// Associations
	Metadata *TokenMetadata `gorm:"foreignKey:TokenID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}
