package model

// KVEntry backs the key/value cache. ExpiresAtUnixMs of 0 means no expiry.
type KVEntry struct {
	Key             string `gorm:"column:key;type:text;primaryKey"`
	Value           string `gorm:"column:value;type:text;not null"`
	ExpiresAtUnixMs int64  `gorm:"column:expires_at_unix_ms;not null;default:0"`
	UpdatedAt       string `gorm:"column:updated_at;type:text;not null"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
