package schema

// OwnerIndexEntry represents the owner_index table - the derived secondary
// index mapping an owner to its tokens. Position carries the insertion order
// within an owner's set; positions are monotonic per owner but not dense
// after removals.
type OwnerIndexEntry struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Owner    string `gorm:"column:owner;not null;type:text;uniqueIndex:idx_owner_index_owner_token,priority:1;index:idx_owner_index_owner_position,priority:1"`
	TokenID  uint64 `gorm:"column:token_id;not null;uniqueIndex:idx_owner_index_owner_token,priority:2"`
	Position int64  `gorm:"column:position;not null;index:idx_owner_index_owner_position,priority:2"`
}

// TableName specifies the table name for the OwnerIndexEntry model
func (OwnerIndexEntry) TableName() string {
	return "owner_index"
}
