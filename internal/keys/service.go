package keys

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cinelist/cineapi/internal/models"
)

// Verdict reason strings surfaced to callers on rejection.
const (
	ReasonInvalidKey       = "Invalid API key"
	ReasonDeactivated      = "API key is deactivated"
	ReasonExpired          = "API key has expired"
	ReasonIPNotAllowed     = "IP address not allowed"
	ReasonDomainNotAllowed = "Domain not allowed"
	ReasonDailyLimit       = "Daily limit exceeded"
	ReasonMonthlyLimit     = "Monthly limit exceeded"
)

// ErrKeyNotFound indicates no key exists for the given public identifier.
var ErrKeyNotFound = errors.New("keys: key not found")

// Clock supplies the current time. Injectable for rollover tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Verdict is the result of validating a credential.
type Verdict struct {
	Valid  bool
	Key    *models.APIKey
	Reason string

	// Remaining quota figures; nil when the corresponding limit is unlimited.
	RemainingDaily   *int64
	RemainingMonthly *int64
}

// Service owns API key issuance, validation and quota accounting.
type Service struct {
	db    *gorm.DB
	clock Clock
}

// NewService constructs a Service with the system clock.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, clock: systemClock{}}
}

// NewServiceWithClock constructs a Service with an injected clock.
func NewServiceWithClock(db *gorm.DB, clock Clock) *Service {
	if clock == nil {
		clock = systemClock{}
	}
	return &Service{db: db, clock: clock}
}

// CreateParams holds inputs for key issuance.
type CreateParams struct {
	Name           string
	Description    string
	DailyLimit     *int64 // nil means unlimited.
	MonthlyLimit   *int64 // nil means unlimited.
	AllowedDomains []string
	AllowedIPs     []string
	ExpiresAt      *time.Time
	CreatedBy      string
}

// Create issues a new API key and returns the stored record together with
// the plaintext secret. The secret is not recoverable afterwards.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.APIKey, string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, "", fmt.Errorf("keys: create: name is required")
	}

	material, errGenerate := GenerateKeyMaterial()
	if errGenerate != nil {
		return nil, "", errGenerate
	}

	now := s.clock.Now()
	createdBy := strings.TrimSpace(p.CreatedBy)
	if createdBy == "" {
		createdBy = "cli"
	}

	record := models.APIKey{
		KeyID:          material.KeyID,
		KeyHash:        material.KeyHash,
		Name:           strings.TrimSpace(p.Name),
		Description:    p.Description,
		DailyLimit:     p.DailyLimit,
		MonthlyLimit:   p.MonthlyLimit,
		AllowedDomains: models.EncodeStringList(p.AllowedDomains),
		AllowedIPs:     models.EncodeStringList(p.AllowedIPs),
		IsActive:       true,
		ExpiresAt:      p.ExpiresAt,
		CreatedBy:      createdBy,
		DailyResetAt:   nextDailyReset(now),
		MonthlyResetAt: nextMonthlyReset(now),
	}
	if errCreate := s.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		return nil, "", fmt.Errorf("keys: create: %w", errCreate)
	}
	return &record, material.Secret, nil
}

// Validate checks a secret against the stored records and returns a verdict.
// A non-nil error means the persistence layer failed mid-validation; every
// policy outcome, including unknown keys, is reported through the verdict.
//
// Checks run cheapest first: hash lookup, active flag, expiry, IP policy,
// domain policy, then the rollover and limit checks that need a second read.
func (s *Service) Validate(ctx context.Context, secret, ipAddress, origin string) (Verdict, error) {
	keyHash := HashSecret(secret)

	var key models.APIKey
	errFind := s.db.WithContext(ctx).Where("key_hash = ?", keyHash).First(&key).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		return Verdict{Reason: ReasonInvalidKey}, nil
	case errFind != nil:
		return Verdict{}, fmt.Errorf("keys: validate: lookup: %w", errFind)
	}

	now := s.clock.Now()

	if !key.IsActive {
		return Verdict{Reason: ReasonDeactivated}, nil
	}
	if key.ExpiresAt != nil && now.After(*key.ExpiresAt) {
		return Verdict{Reason: ReasonExpired}, nil
	}
	if ipAddress != "" && key.IPs() != nil && !IPAllowed(key.IPs(), ipAddress) {
		return Verdict{Reason: ReasonIPNotAllowed}, nil
	}
	if origin != "" && key.Domains() != nil && !DomainAllowed(key.Domains(), origin) {
		return Verdict{Reason: ReasonDomainNotAllowed}, nil
	}

	if errReset := s.ResetIfDue(ctx, key.KeyID); errReset != nil {
		return Verdict{}, errReset
	}

	// Re-read after the potential rollover so limit checks see fresh counters.
	var current models.APIKey
	if errReload := s.db.WithContext(ctx).Where("key_id = ?", key.KeyID).First(&current).Error; errReload != nil {
		return Verdict{}, fmt.Errorf("keys: validate: reload: %w", errReload)
	}

	if current.DailyLimit != nil && current.DailyUsage >= *current.DailyLimit {
		return Verdict{Reason: ReasonDailyLimit}, nil
	}
	if current.MonthlyLimit != nil && current.MonthlyUsage >= *current.MonthlyLimit {
		return Verdict{Reason: ReasonMonthlyLimit}, nil
	}

	verdict := Verdict{Valid: true, Key: &current}
	if current.DailyLimit != nil {
		remaining := *current.DailyLimit - current.DailyUsage
		verdict.RemainingDaily = &remaining
	}
	if current.MonthlyLimit != nil {
		remaining := *current.MonthlyLimit - current.MonthlyUsage
		verdict.RemainingMonthly = &remaining
	}
	return verdict, nil
}

// ResetIfDue rolls over usage counters whose boundary has passed. Each
// rollover is a conditional UPDATE guarded by the stored boundary, so two
// concurrent callers at the boundary instant cannot double-apply it, and
// re-running with the same clock value is a no-op.
func (s *Service) ResetIfDue(ctx context.Context, keyID string) error {
	now := s.clock.Now()

	if errDaily := s.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("key_id = ? AND daily_reset_at <= ?", keyID, now).
		Updates(map[string]any{
			"daily_usage":    0,
			"daily_reset_at": nextDailyReset(now),
			"updated_at":     now,
		}).Error; errDaily != nil {
		return fmt.Errorf("keys: daily reset: %w", errDaily)
	}

	if errMonthly := s.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("key_id = ? AND monthly_reset_at <= ?", keyID, now).
		Updates(map[string]any{
			"monthly_usage":    0,
			"monthly_reset_at": nextMonthlyReset(now),
			"updated_at":       now,
		}).Error; errMonthly != nil {
		return fmt.Errorf("keys: monthly reset: %w", errMonthly)
	}

	return nil
}

// IncrementUsage adds one request to all usage counters and stamps the last
// use. The increment runs server-side so concurrent requests for the same
// key cannot lose updates. Authorization already happened by the time this
// runs, so failures are logged and dropped rather than surfaced.
func (s *Service) IncrementUsage(ctx context.Context, keyID, ipAddress string) {
	now := s.clock.Now()
	errUpdate := s.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("key_id = ?", keyID).
		UpdateColumns(map[string]any{
			"daily_usage":   gorm.Expr("daily_usage + 1"),
			"monthly_usage": gorm.Expr("monthly_usage + 1"),
			"total_usage":   gorm.Expr("total_usage + 1"),
			"last_used_at":  now,
			"last_used_ip":  ipAddress,
			"updated_at":    now,
		}).Error
	if errUpdate != nil {
		log.WithError(errUpdate).WithField("key_id", keyID).Warn("keys: increment usage failed")
	}
}

// AppendRequestLog appends one audit row. Failures are logged and dropped;
// the response this row describes has already been sent.
func (s *Service) AppendRequestLog(ctx context.Context, entry models.RequestLog) {
	if errCreate := s.db.WithContext(ctx).Create(&entry).Error; errCreate != nil {
		log.WithError(errCreate).WithField("key_id", entry.KeyID).Warn("keys: request log append failed")
	}
}

// List returns all keys ordered by creation time.
func (s *Service) List(ctx context.Context) ([]models.APIKey, error) {
	var rows []models.APIKey
	if errFind := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("keys: list: %w", errFind)
	}
	return rows, nil
}

// GetByKeyID fetches one key by its public identifier.
func (s *Service) GetByKeyID(ctx context.Context, keyID string) (*models.APIKey, error) {
	var key models.APIKey
	errFind := s.db.WithContext(ctx).Where("key_id = ?", keyID).First(&key).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		return nil, ErrKeyNotFound
	case errFind != nil:
		return nil, fmt.Errorf("keys: get: %w", errFind)
	}
	return &key, nil
}

// OptionalInt64 carries an optional update to a nullable limit.
// Set false leaves the field untouched; Set true with a nil Value clears
// the limit to unlimited.
type OptionalInt64 struct {
	Set   bool
	Value *int64
}

// OptionalTime carries an optional update to a nullable timestamp.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

// OptionalStrings carries an optional update to an allow-list. Set true with
// an empty slice clears the list to "all allowed".
type OptionalStrings struct {
	Set    bool
	Values []string
}

// UpdateParams enumerates every updatable attribute of a key. Unset fields
// are left untouched.
type UpdateParams struct {
	Name           *string
	Description    *string
	DailyLimit     OptionalInt64
	MonthlyLimit   OptionalInt64
	AllowedDomains OptionalStrings
	AllowedIPs     OptionalStrings
	ExpiresAt      OptionalTime
	IsActive       *bool
}

// Update applies the set fields of p to the key and returns the updated record.
func (s *Service) Update(ctx context.Context, keyID string, p UpdateParams) (*models.APIKey, error) {
	updates := map[string]any{}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, fmt.Errorf("keys: update: name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if p.DailyLimit.Set {
		updates["daily_limit"] = p.DailyLimit.Value
	}
	if p.MonthlyLimit.Set {
		updates["monthly_limit"] = p.MonthlyLimit.Value
	}
	if p.AllowedDomains.Set {
		updates["allowed_domains"] = models.EncodeStringList(p.AllowedDomains.Values)
	}
	if p.AllowedIPs.Set {
		updates["allowed_ips"] = models.EncodeStringList(p.AllowedIPs.Values)
	}
	if p.ExpiresAt.Set {
		updates["expires_at"] = p.ExpiresAt.Value
	}
	if p.IsActive != nil {
		updates["is_active"] = *p.IsActive
	}

	if len(updates) > 0 {
		updates["updated_at"] = s.clock.Now()
		result := s.db.WithContext(ctx).Model(&models.APIKey{}).
			Where("key_id = ?", keyID).
			Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("keys: update: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrKeyNotFound
		}
	}
	return s.GetByKeyID(ctx, keyID)
}

// Revoke deactivates a key. The record and its usage history are kept.
func (s *Service) Revoke(ctx context.Context, keyID string) (*models.APIKey, error) {
	inactive := false
	return s.Update(ctx, keyID, UpdateParams{IsActive: &inactive})
}

// Delete permanently removes a key. Request log rows cascade with it.
func (s *Service) Delete(ctx context.Context, keyID string) error {
	result := s.db.WithContext(ctx).Where("key_id = ?", keyID).Delete(&models.APIKey{})
	if result.Error != nil {
		return fmt.Errorf("keys: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// nextDailyReset returns the start of the UTC day after now.
func nextDailyReset(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

// nextMonthlyReset returns the first instant of the UTC month after now.
func nextMonthlyReset(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
