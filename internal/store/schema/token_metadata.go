package schema

import (
	"time"

	"gorm.io/datatypes"
)

// TokenMetadata represents the token_metadata table - the immutable metadata
// document written at mint, one row per token.
type TokenMetadata struct {
	TokenID uint64 `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	// Document is the full metadata record as JSONB
	Document datatypes.JSON `gorm:"column:document;type:jsonb"`
	// Hash is the SHA-256 of the canonical JSON form of Document, used to
	// detect drift between the engine and the persisted snapshot
	Hash      string    `gorm:"column:hash;not null;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`

	// Associations
	Token Token `gorm:"foreignKey:TokenID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the TokenMetadata model
func (TokenMetadata) TableName() string {
	return "token_metadata"
}
