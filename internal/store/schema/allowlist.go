package schema

import "time"

// AllowlistEntry represents the allowlist table - accounts with voluntary
// protected status. Membership is append-only; Position carries insertion
// order for enumeration.
type AllowlistEntry struct {
	Account   string    `gorm:"column:account;primaryKey;type:text"`
	Position  int64     `gorm:"column:position;not null;index:idx_allowlist_position"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

// TableName specifies the table name for the AllowlistEntry model
func (AllowlistEntry) TableName() string {
	return "allowlist"
}
