package models

import "time"

// RequestLog records one request that passed API key validation. Rows are
// append-only; the accounting core never reads them back.
type RequestLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	KeyID string `gorm:"type:varchar(64);index"` // Public identifier of the key that made the request.

	Endpoint   string `gorm:"type:varchar(500);not null;index"` // Request path.
	Method     string `gorm:"type:varchar(10);not null"`        // HTTP method.
	StatusCode int    `gorm:"not null"`                         // Final response status.

	ResponseTimeMs int64 `gorm:"not null;default:0"` // Latency in milliseconds.
	RequestSize    int64 `gorm:"not null;default:0"` // Request body size in bytes.
	ResponseSize   int64 `gorm:"not null;default:0"` // Response body size in bytes.

	UserAgent string `gorm:"type:text"`        // Client User-Agent header.
	IPAddress string `gorm:"type:varchar(45)"` // Client address.
	Referer   string `gorm:"type:text"`        // Referer header.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Row timestamp.
}
