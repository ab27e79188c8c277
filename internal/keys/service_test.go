package keys

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/cinelist/cineapi/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func setupKeysDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:keys_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.APIKey{}, &models.RequestLog{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func int64Ptr(v int64) *int64 { return &v }

func TestCreateStoresDigestNotSecret(t *testing.T) {
	conn := setupKeysDB(t)
	svc := NewService(conn)

	record, secret, errCreate := svc.Create(context.Background(), CreateParams{Name: "client"})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if secret == "" {
		t.Fatalf("expected a plaintext secret")
	}
	if record.KeyHash == secret {
		t.Fatalf("secret stored in plaintext")
	}
	if record.KeyHash != HashSecret(secret) {
		t.Fatalf("stored hash does not match the secret digest")
	}
	if !record.IsActive {
		t.Fatalf("expected new key to be active")
	}
	if record.CreatedBy != "cli" {
		t.Fatalf("expected default creator cli, got %q", record.CreatedBy)
	}
}

func TestCreateRequiresName(t *testing.T) {
	conn := setupKeysDB(t)
	svc := NewService(conn)

	if _, _, errCreate := svc.Create(context.Background(), CreateParams{Name: "  "}); errCreate == nil {
		t.Fatalf("expected error for blank name")
	}
}

func TestCreateSetsResetBoundaries(t *testing.T) {
	conn := setupKeysDB(t)
	clock := &fakeClock{now: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)}
	svc := NewServiceWithClock(conn, clock)

	record, _, errCreate := svc.Create(context.Background(), CreateParams{Name: "client"})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	wantDaily := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !record.DailyResetAt.UTC().Equal(wantDaily) {
		t.Fatalf("expected daily reset %v, got %v", wantDaily, record.DailyResetAt)
	}
	wantMonthly := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if !record.MonthlyResetAt.UTC().Equal(wantMonthly) {
		t.Fatalf("expected monthly reset %v, got %v", wantMonthly, record.MonthlyResetAt)
	}
}

func TestValidateUnknownSecret(t *testing.T) {
	conn := setupKeysDB(t)
	svc := NewService(conn)

	verdict, errValidate := svc.Validate(context.Background(), "sk_nope", "", "")
	if errValidate != nil {
		t.Fatalf("validate: %v", errValidate)
	}
	if verdict.Valid {
		t.Fatalf("expected invalid verdict")
	}
	if verdict.Reason != ReasonInvalidKey {
		t.Fatalf("expected reason %q, got %q", ReasonInvalidKey, verdict.Reason)
	}
}

func TestValidateDeactivatedKey(t *testing.T) {
	conn := setupKeysDB(t)
	svc := NewService(conn)

	record, secret, errCreate := svc.Create(context.Background(), CreateParams{Name: "client"})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if _, errRevoke := svc.Revoke(context.Background(), record.KeyID); errRevoke != nil {
		t.Fatalf("revoke: %v", errRevoke)
	}

	verdict, errValidate := svc.Validate(context.Background(), secret, "", "")
	if errValidate != nil {
		t.Fatalf("validate: %v", errValidate)
	}
	if verdict.Valid || verdict.Reason != ReasonDeactivated {
		t.Fatalf("expected reason %q, got valid=%v reason=%q", ReasonDeactivated, verdict.Valid, verdict.Reason)
	}
}

func TestValidateExpiredKey(t *testing.T) {
	conn := setupKeysDB(t)
	clock := &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := NewServiceWithClock(conn, clock)

	expires := clock.Now().Add(time.Hour)
	_, secret, errCreate := svc.Create(context.Background(), CreateParams{Name: "client", ExpiresAt: &expires})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	verdict, _ := svc.Validate(context.Background(), secret, "", "")
	if !verdict.Valid {
		t.Fatalf("expected key valid before expiry, got %q", verdict.Reason)
	}

	clock.Advance(2 * time.Hour)
	verdict, _ = svc.Validate(context.Background(), secret, "", "")
	if verdict.Valid || verdict.Reason != ReasonExpired {
		t.Fatalf("expected reason %q, got valid=%v reason=%q", ReasonExpired, verdict.Valid, verdict.Reason)
	}
}

func TestValidatePolicyOrdering(t *testing.T) {
	// A key that fails both the IP and the domain policy is rejected for
	// the IP first.
	conn := setupKeysDB(t)
	svc := NewService(conn)

	_, secret, errCreate := svc.Create(context.Background(), CreateParams{
		Name:           "client",
		AllowedDomains: []string{"example.com"},
		AllowedIPs:     []string{"203.0.113.9"},
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	verdict, _ := svc.Validate(context.Background(), secret, "198.51.100.1", "https://evil.com")
	if verdict.Valid || verdict.Reason != ReasonIPNotAllowed {
		t.Fatalf("expected reason %q, got valid=%v reason=%q", ReasonIPNotAllowed, verdict.Valid, verdict.Reason)
	}

	verdict, _ = svc.Validate(context.Background(), secret, "203.0.113.9", "https://evil.com")
	if verdict.Valid || verdict.Reason != ReasonDomainNotAllowed {
		t.Fatalf("expected reason %q, got valid=%v reason=%q", ReasonDomainNotAllowed, verdict.Valid, verdict.Reason)
	}

	verdict, _ = svc.Validate(context.Background(), secret, "203.0.113.9", "https://example.com")
	if !verdict.Valid {
		t.Fatalf("expected valid verdict, got %q", verdict.Reason)
	}
}

func TestValidateMissingContextSkipsPolicies(t *testing.T) {
	// No source IP or origin on the request means the corresponding
	// allow-lists are not evaluated.
	conn := setupKeysDB(t)
	svc := NewService(conn)

	_, secret, errCreate := svc.Create(context.Background(), CreateParams{
		Name:           "client",
		AllowedDomains: []string{"example.com"},
		AllowedIPs:     []string{"203.0.113.9"},
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	verdict, _ := svc.Validate(context.Background(), secret, "", "")
	if !verdict.Valid {
		t.Fatalf("expected valid verdict, got %q", verdict.Reason)
	}
}

func TestValidateDailyLimit(t *testing.T) {
	conn := setupKeysDB(t)
	svc := NewService(conn)

	record, secret, errCreate := svc.Create(context.Background(), CreateParams{
		Name:       "client",
		DailyLimit: int64Ptr(2),
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	for i := 0; i < 2; i++ {
		verdict, errValidate := svc.Validate(context.Background(), secret, "", "")
		if errValidate != nil {
			t.Fatalf("validate: %v", errValidate)
		}
		if !verdict.Valid {
			t.Fatalf("request %d: expected valid verdict, got %q", i+1, verdict.Reason)
		}
		want := int64(2 - i)
		if verdict.RemainingDaily == nil || *verdict.RemainingDaily != want {
			t.Fatalf("request %d: expected remaining %d, got %v", i+1, want, verdict.RemainingDaily)
		}
		svc.IncrementUsage(context.Background(), record.KeyID, "")
	}

	verdict, _ := svc.Validate(context.Background(), secret, "", "")
	if verdict.Valid || verdict.Reason != ReasonDailyLimit {
		t.Fatalf("expected reason %q, got valid=%v reason=%q", ReasonDailyLimit, verdict.Valid, verdict.Reason)
	}
}

func TestValidateMonthlyLimit(t *testing.T) {
	conn := setupKeysDB(t)
	svc := NewService(conn)

	record, secret, errCreate := svc.Create(context.Background(), CreateParams{
		Name:         "client",
		MonthlyLimit: int64Ptr(1),
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	svc.IncrementUsage(context.Background(), record.KeyID, "")

	verdict, _ := svc.Validate(context.Background(), secret, "", "")
	if verdict.Valid || verdict.Reason != ReasonMonthlyLimit {
		t.Fatalf("expected reason %q, got valid=%v reason=%q", ReasonMonthlyLimit, verdict.Valid, verdict.Reason)
	}
}

func TestValidateUnlimitedKeyHasNoRemaining(t *testing.T) {
	conn := setupKeysDB(t)
	svc := NewService(conn)

	_, secret, errCreate := svc.Create(context.Background(), CreateParams{Name: "client"})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	verdict, _ := svc.Validate(context.Background(), secret, "", "")
	if !verdict.Valid {
		t.Fatalf("expected valid verdict, got %q", verdict.Reason)
	}
	if verdict.RemainingDaily != nil || verdict.RemainingMonthly != nil {
		t.Fatalf("expected nil remaining for unlimited key")
	}
}

func TestDailyRolloverClearsUsage(t *testing.T) {
	conn := setupKeysDB(t)
	clock := &fakeClock{now: time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)}
	svc := NewServiceWithClock(conn, clock)

	record, secret, errCreate := svc.Create(context.Background(), CreateParams{
		Name:       "client",
		DailyLimit: int64Ptr(1),
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	svc.IncrementUsage(context.Background(), record.KeyID, "")

	verdict, _ := svc.Validate(context.Background(), secret, "", "")
	if verdict.Valid || verdict.Reason != ReasonDailyLimit {
		t.Fatalf("expected exhausted key, got valid=%v reason=%q", verdict.Valid, verdict.Reason)
	}

	// Cross midnight UTC. The first validation after the boundary rolls
	// the counter over and passes.
	clock.Set(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	verdict, errValidate := svc.Validate(context.Background(), secret, "", "")
	if errValidate != nil {
		t.Fatalf("validate: %v", errValidate)
	}
	if !verdict.Valid {
		t.Fatalf("expected valid verdict after rollover, got %q", verdict.Reason)
	}
	if verdict.RemainingDaily == nil || *verdict.RemainingDaily != 1 {
		t.Fatalf("expected full daily quota after rollover, got %v", verdict.RemainingDaily)
	}

	current, errGet := svc.GetByKeyID(context.Background(), record.KeyID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	wantBoundary := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if !current.DailyResetAt.UTC().Equal(wantBoundary) {
		t.Fatalf("expected next boundary %v, got %v", wantBoundary, current.DailyResetAt)
	}
	if current.MonthlyUsage != 1 {
		t.Fatalf("monthly usage should survive a daily rollover, got %d", current.MonthlyUsage)
	}
}

func TestMonthlyRolloverClearsUsage(t *testing.T) {
	conn := setupKeysDB(t)
	clock := &fakeClock{now: time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)}
	svc := NewServiceWithClock(conn, clock)

	record, secret, errCreate := svc.Create(context.Background(), CreateParams{
		Name:         "client",
		MonthlyLimit: int64Ptr(1),
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	svc.IncrementUsage(context.Background(), record.KeyID, "")

	clock.Set(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	verdict, errValidate := svc.Validate(context.Background(), secret, "", "")
	if errValidate != nil {
		t.Fatalf("validate: %v", errValidate)
	}
	if !verdict.Valid {
		t.Fatalf("expected valid verdict after monthly rollover, got %q", verdict.Reason)
	}

	current, errGet := svc.GetByKeyID(context.Background(), record.KeyID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if current.TotalUsage != 1 {
		t.Fatalf("total usage must never reset, got %d", current.TotalUsage)
	}
	wantBoundary := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	if !current.MonthlyResetAt.UTC().Equal(wantBoundary) {
		t.Fatalf("expected next boundary %v, got %v", wantBoundary, current.MonthlyResetAt)
	}
}

func TestResetIfDueIdempotent(t *testing.T) {
	conn := setupKeysDB(t)
	clock := &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	svc := NewServiceWithClock(conn, clock)

	record, _, errCreate := svc.Create(context.Background(), CreateParams{Name: "client"})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	clock.Set(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if errReset := svc.ResetIfDue(context.Background(), record.KeyID); errReset != nil {
		t.Fatalf("reset: %v", errReset)
	}
	svc.IncrementUsage(context.Background(), record.KeyID, "")

	// A second rollover at the same instant must not wipe the new usage.
	if errReset := svc.ResetIfDue(context.Background(), record.KeyID); errReset != nil {
		t.Fatalf("reset: %v", errReset)
	}

	current, errGet := svc.GetByKeyID(context.Background(), record.KeyID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if current.DailyUsage != 1 {
		t.Fatalf("expected usage 1 after idempotent reset, got %d", current.DailyUsage)
	}
}

func TestIncrementUsageConcurrent(t *testing.T) {
	conn := setupKeysDB(t)
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)

	svc := NewService(conn)
	record, _, errCreate := svc.Create(context.Background(), CreateParams{Name: "client"})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	const workers = 8
	const perWorker = 5
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				svc.IncrementUsage(context.Background(), record.KeyID, "203.0.113.9")
			}
		}()
	}
	wg.Wait()

	current, errGet := svc.GetByKeyID(context.Background(), record.KeyID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	want := int64(workers * perWorker)
	if current.DailyUsage != want || current.MonthlyUsage != want || current.TotalUsage != want {
		t.Fatalf("expected all counters at %d, got daily=%d monthly=%d total=%d",
			want, current.DailyUsage, current.MonthlyUsage, current.TotalUsage)
	}
	if current.LastUsedAt == nil {
		t.Fatalf("expected last used timestamp to be stamped")
	}
	if current.LastUsedIP != "203.0.113.9" {
		t.Fatalf("expected last used ip recorded, got %q", current.LastUsedIP)
	}
}

func TestUpdateClearsAndSetsLimits(t *testing.T) {
	conn := setupKeysDB(t)
	svc := NewService(conn)

	record, _, errCreate := svc.Create(context.Background(), CreateParams{
		Name:       "client",
		DailyLimit: int64Ptr(10),
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	updated, errUpdate := svc.Update(context.Background(), record.KeyID, UpdateParams{
		DailyLimit:   OptionalInt64{Set: true, Value: nil},
		MonthlyLimit: OptionalInt64{Set: true, Value: int64Ptr(500)},
	})
	if errUpdate != nil {
		t.Fatalf("update: %v", errUpdate)
	}
	if updated.DailyLimit != nil {
		t.Fatalf("expected daily limit cleared, got %v", *updated.DailyLimit)
	}
	if updated.MonthlyLimit == nil || *updated.MonthlyLimit != 500 {
		t.Fatalf("expected monthly limit 500, got %v", updated.MonthlyLimit)
	}
}

func TestUpdateUnknownKey(t *testing.T) {
	conn := setupKeysDB(t)
	svc := NewService(conn)

	name := "renamed"
	if _, errUpdate := svc.Update(context.Background(), "ck_missing", UpdateParams{Name: &name}); errUpdate != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound, got %v", errUpdate)
	}
}

func TestDeleteRemovesKeyAndLogs(t *testing.T) {
	conn := setupKeysDB(t)
	svc := NewService(conn)

	record, _, errCreate := svc.Create(context.Background(), CreateParams{Name: "client"})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	svc.AppendRequestLog(context.Background(), models.RequestLog{
		KeyID:    record.KeyID,
		Endpoint: "/movies",
		Method:   "GET",
	})

	if errDelete := svc.Delete(context.Background(), record.KeyID); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	if _, errGet := svc.GetByKeyID(context.Background(), record.KeyID); errGet != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", errGet)
	}
	if errDelete := svc.Delete(context.Background(), record.KeyID); errDelete != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound on second delete, got %v", errDelete)
	}
}
