package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// APIKey is the durable record for one issued API credential. The plaintext
// secret is never stored; only its SHA-256 digest is kept in KeyHash.
type APIKey struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	KeyID   string `gorm:"type:varchar(64);not null;uniqueIndex"`  // Public key identifier.
	KeyHash string `gorm:"type:varchar(256);not null;uniqueIndex"` // SHA-256 digest of the secret.

	Name        string `gorm:"type:varchar(255);not null"` // Display name for the key.
	Description string `gorm:"type:text"`                  // Optional description.

	DailyLimit   *int64 `gorm:"check:daily_limit > 0"`   // Requests per day; nil means unlimited.
	MonthlyLimit *int64 `gorm:"check:monthly_limit > 0"` // Requests per month; nil means unlimited.

	DailyUsage   int64 `gorm:"not null;default:0"` // Requests since the last daily reset.
	MonthlyUsage int64 `gorm:"not null;default:0"` // Requests since the last monthly reset.
	TotalUsage   int64 `gorm:"not null;default:0"` // Requests ever.

	AllowedDomains datatypes.JSON // JSON array of allowed origins; null means all.
	AllowedIPs     datatypes.JSON // JSON array of allowed IP addresses; null means all.

	IsActive  bool       `gorm:"not null;default:true;index"` // Whether the key is enabled.
	ExpiresAt *time.Time `gorm:"index"`                       // Optional expiration timestamp.

	LastUsedAt *time.Time // Last successful validation time.
	LastUsedIP string     `gorm:"type:varchar(45)"` // IP observed at last successful validation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
	CreatedBy string    `gorm:"type:varchar(255)"`       // Who issued this key.

	DailyResetAt   time.Time `gorm:"not null"` // Next daily rollover boundary (UTC).
	MonthlyResetAt time.Time `gorm:"not null"` // Next monthly rollover boundary (UTC).

	RequestLogs []RequestLog `gorm:"foreignKey:KeyID;references:KeyID;constraint:OnDelete:CASCADE"` // Audit rows, cascade-deleted with the key.
}

// Status returns the current key status based on active flag and expiry.
func (k *APIKey) Status() string {
	if !k.IsActive {
		return "revoked"
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now().UTC()) {
		return "expired"
	}
	return "active"
}

// Domains decodes the allowed-domain list. A nil result means all domains.
func (k *APIKey) Domains() []string {
	return decodeStringList(k.AllowedDomains)
}

// IPs decodes the allowed-IP list. A nil result means all addresses.
func (k *APIKey) IPs() []string {
	return decodeStringList(k.AllowedIPs)
}

// EncodeStringList marshals an allow-list into its JSON column form.
// Nil or empty input encodes as null, i.e. "all allowed".
func EncodeStringList(values []string) datatypes.JSON {
	if len(values) == 0 {
		return nil
	}
	data, errMarshal := json.Marshal(values)
	if errMarshal != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if errUnmarshal := json.Unmarshal(raw, &out); errUnmarshal != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
