//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testVector(seed float64) embedding.Vector {
	var v embedding.Vector
	for i := range v {
		v[i] = seed + float64(i)/1000.0
	}
	return v
}

func TestIdentityRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(pool)

	t.Run("CreateAndList", func(t *testing.T) {
		vec := testVector(0.123456789)
		created, err := repo.CreateIdentity(ctx, database.Identity{
			Name:         "Alice",
			EmployeeCode: "E100",
			Embedding:    vec,
		})
		if err != nil {
			t.Fatalf("Failed to create identity: %v", err)
		}
		if created.ID == 0 {
			t.Error("Expected generated ID")
		}

		identities, err := repo.ListIdentities(ctx)
		if err != nil {
			t.Fatalf("Failed to list identities: %v", err)
		}
		if len(identities) != 1 {
			t.Fatalf("Expected 1 identity, got %d", len(identities))
		}
		if identities[0].Embedding != vec {
			t.Error("Stored embedding differs from the inserted one")
		}
	})

	t.Run("DuplicateEmployeeCode", func(t *testing.T) {
		_, err := repo.CreateIdentity(ctx, database.Identity{
			Name:         "Alice Again",
			EmployeeCode: "E100",
			Embedding:    testVector(0.5),
		})
		if !errors.Is(err, database.ErrDuplicateEmployeeCode) {
			t.Fatalf("Expected ErrDuplicateEmployeeCode, got %v", err)
		}

		count, err := repo.CountIdentities(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 identity, got %d", count)
		}
	})

	t.Run("ConcurrentDuplicates", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = repo.CreateIdentity(ctx, database.Identity{
					Name:         fmt.Sprintf("Racer %d", i),
					EmployeeCode: "E200",
					Embedding:    testVector(float64(i)),
				})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, database.ErrDuplicateEmployeeCode):
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}
		if succeeded != 1 {
			t.Errorf("Expected exactly 1 successful insert, got %d", succeeded)
		}
	})

	t.Run("GetIdentityNotFound", func(t *testing.T) {
		_, err := repo.GetIdentity(ctx, 999999)
		if !errors.Is(err, database.ErrIdentityNotFound) {
			t.Errorf("Expected ErrIdentityNotFound, got %v", err)
		}
	})

	t.Run("NearestIdentities", func(t *testing.T) {
		results, err := repo.NearestIdentities(ctx, testVector(0.123456789), 1)
		if err != nil {
			t.Fatalf("Failed to find nearest: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("Expected 1 result, got %d", len(results))
		}
		if results[0].Identity.EmployeeCode != "E100" {
			t.Errorf("Expected E100, got %s", results[0].Identity.EmployeeCode)
		}
		if results[0].Distance != 0 {
			t.Errorf("Expected exact distance 0, got %f", results[0].Distance)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	identity, err := store.CreateIdentity(ctx, database.Identity{
		Name:         "Bob",
		EmployeeCode: "E300",
		Embedding:    testVector(0.2),
	})
	if err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}

	t.Run("MarkOncePerDay", func(t *testing.T) {
		rec, err := store.MarkAttendance(ctx, database.AttendanceRecord{
			IdentityID: identity.ID,
			Date:       "2026-03-02",
			Time:       "08:15:00",
		})
		if err != nil {
			t.Fatalf("Failed to mark attendance: %v", err)
		}
		if rec.Status != database.StatusPresent {
			t.Errorf("Expected Present, got %s", rec.Status)
		}

		_, err = store.MarkAttendance(ctx, database.AttendanceRecord{
			IdentityID: identity.ID,
			Date:       "2026-03-02",
			Time:       "09:00:00",
		})
		if !errors.Is(err, database.ErrAlreadyMarked) {
			t.Errorf("Expected ErrAlreadyMarked, got %v", err)
		}

		if _, err := store.MarkAttendance(ctx, database.AttendanceRecord{
			IdentityID: identity.ID,
			Date:       "2026-03-03",
			Time:       "08:01:00",
		}); err != nil {
			t.Errorf("Expected next day to succeed, got %v", err)
		}
	})

	t.Run("UnknownIdentity", func(t *testing.T) {
		_, err := store.MarkAttendance(ctx, database.AttendanceRecord{
			IdentityID: 424242,
			Date:       "2026-03-02",
			Time:       "08:15:00",
		})
		if !errors.Is(err, database.ErrIdentityNotFound) {
			t.Errorf("Expected ErrIdentityNotFound, got %v", err)
		}
	})

	t.Run("ConcurrentMarks", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = store.MarkAttendance(ctx, database.AttendanceRecord{
					IdentityID: identity.ID,
					Date:       "2026-03-04",
					Time:       fmt.Sprintf("08:00:%02d", i),
				})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, database.ErrAlreadyMarked):
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}
		if succeeded != 1 {
			t.Errorf("Expected exactly 1 successful mark, got %d", succeeded)
		}
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		_, err := store.MarkAttendance(ctx, database.AttendanceRecord{
			IdentityID: identity.ID,
			Date:       "2026-03-05",
			Time:       "08:00:00",
			Status:     "Absent",
		})
		if err == nil {
			t.Error("Expected error for unknown status")
		}
	})

	t.Run("ListAndCount", func(t *testing.T) {
		records, err := store.ListAttendance(ctx, database.AttendanceFilter{Date: "2026-03-02"})
		if err != nil {
			t.Fatalf("Failed to list attendance: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}
		if records[0].Name != "Bob" || records[0].Time != "08:15:00" {
			t.Errorf("Unexpected record: %+v", records[0])
		}

		count, err := store.CountAttendance(ctx, "2026-03-03")
		if err != nil {
			t.Fatalf("Failed to count attendance: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1, got %d", count)
		}
	})

	t.Run("MigrationsApplied", func(t *testing.T) {
		versions, err := pool.MigrationsApplied(ctx)
		if err != nil {
			t.Fatalf("Failed to list migrations: %v", err)
		}
		if len(versions) != 2 {
			t.Errorf("Expected 2 migrations, got %v", versions)
		}
	})
}
