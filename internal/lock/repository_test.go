package lock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/halo-bridge/internal/infrastructure/database"
	_ "github.com/nerrad567/halo-bridge/migrations"
)

// openTestDB creates a migrated SQLite database in a temp directory.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	return db
}

func testLock(deviceID, name string) *Lock {
	now := time.Now().UTC()
	return &Lock{
		ID:             StableID(deviceID),
		DeviceID:       deviceID,
		Name:           name,
		Model:          "HALO-01",
		Serial:         "SN-" + deviceID,
		DoorStatus:     StateSecured,
		TargetState:    StateSecured,
		BatteryPercent: 90,
		BatteryStatus:  "Normal",
		FirstSeen:      now,
		UpdatedAt:      now,
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	want := testLock("dev-1", "Front Door")
	if err := repo.Create(ctx, want); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if got.DeviceID != "dev-1" || got.Name != "Front Door" {
		t.Errorf("got %+v, want dev-1/Front Door", got)
	}
	if got.DoorStatus != StateSecured || got.TargetState != StateSecured {
		t.Errorf("state = %s/%s, want secured/secured", got.DoorStatus, got.TargetState)
	}
	if got.BatteryPercent != 90 {
		t.Errorf("BatteryPercent = %d, want 90", got.BatteryPercent)
	}
}

func TestRepositoryCreateDuplicate(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	if err := repo.Create(ctx, testLock("dev-1", "Front Door")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := repo.Create(ctx, testLock("dev-1", "Duplicate"))
	if !errors.Is(err, ErrLockExists) {
		t.Errorf("duplicate Create error = %v, want ErrLockExists", err)
	}
}

func TestRepositoryUpdate(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	lock := testLock("dev-1", "Front Door")
	if err := repo.Create(ctx, lock); err != nil {
		t.Fatalf("Create: %v", err)
	}

	lock.DoorStatus = StateUnsecured
	lock.TargetState = StateUnsecured
	lock.BatteryPercent = 39
	if err := repo.Update(ctx, lock); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(ctx, lock.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DoorStatus != StateUnsecured || got.BatteryPercent != 39 {
		t.Errorf("got %+v, want unsecured at 39%%", got)
	}
	if !got.LowBattery() {
		t.Error("39 percent should report low battery")
	}
}

func TestRepositoryUpdateMissing(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db.DB)

	err := repo.Update(context.Background(), testLock("dev-ghost", "Ghost"))
	if !errors.Is(err, ErrLockNotFound) {
		t.Errorf("Update of missing lock error = %v, want ErrLockNotFound", err)
	}
}

func TestRepositoryDelete(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	lock := testLock("dev-1", "Front Door")
	if err := repo.Create(ctx, lock); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Delete(ctx, lock.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, lock.ID); !errors.Is(err, ErrLockNotFound) {
		t.Errorf("GetByID after Delete error = %v, want ErrLockNotFound", err)
	}

	if err := repo.Delete(ctx, lock.ID); !errors.Is(err, ErrLockNotFound) {
		t.Errorf("second Delete error = %v, want ErrLockNotFound", err)
	}
}

func TestRepositoryList(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	if err := repo.Create(ctx, testLock("dev-2", "Back Door")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, testLock("dev-1", "Front Door")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	locks, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(locks) != 2 {
		t.Fatalf("got %d locks, want 2", len(locks))
	}
	// Ordered by name.
	if locks[0].Name != "Back Door" || locks[1].Name != "Front Door" {
		t.Errorf("order = %q, %q; want Back Door, Front Door", locks[0].Name, locks[1].Name)
	}
}
