package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

const identityColumns = "id, name, employee_code, face_embedding, created_at"

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (database.Identity, error) {
	var (
		identity database.Identity
		raw      []byte
	)
	if err := row.Scan(&identity.ID, &identity.Name, &identity.EmployeeCode, &raw, &identity.CreatedAt); err != nil {
		return identity, err
	}
	vec, err := embedding.Decode(raw)
	if err != nil {
		return identity, fmt.Errorf("identity %d: %w", identity.ID, err)
	}
	identity.Embedding = vec
	return identity, nil
}

// ListIdentities returns all identities in ascending ID order.
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+identityColumns+" FROM identities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// GetIdentity returns the identity with the given ID.
func (r *IdentityRepository) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	identity, err := scanIdentity(r.pool.QueryRow(ctx, "SELECT "+identityColumns+" FROM identities WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &identity, nil
}

// CountIdentities returns the number of registered identities.
func (r *IdentityRepository) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// CreateIdentity inserts an identity. The employee code pre-check and the insert share a
// transaction; a concurrent insert that slips between them is caught by the unique constraint.
func (r *IdentityRepository) CreateIdentity(ctx context.Context, identity database.Identity) (*database.Identity, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(
		ctx, "SELECT EXISTS(SELECT 1 FROM identities WHERE employee_code = $1)", identity.EmployeeCode,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check employee code: %w", err)
	}
	if exists {
		return nil, database.ErrDuplicateEmployeeCode
	}

	var (
		id        int64
		createdAt time.Time
	)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO identities (name, employee_code, face_embedding, embedding_vec)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, identity.Name, identity.EmployeeCode, identity.Embedding.Encode(),
		pgvector.NewVector(identity.Embedding.Float32()),
	).Scan(&id, &createdAt)
	if err != nil {
		if _, ok := constraintViolation(err, codeUniqueViolation); ok {
			return nil, database.ErrDuplicateEmployeeCode
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if _, ok := constraintViolation(err, codeUniqueViolation); ok {
			return nil, database.ErrDuplicateEmployeeCode
		}
		return nil, fmt.Errorf("commit identity: %w", err)
	}

	identity.ID = id
	identity.CreatedAt = createdAt
	return &identity, nil
}

// NearestIdentities ranks identities by pgvector L2 distance to the probe.
// The vector column holds float32 copies, so distances are recomputed from the
// exact float64 embeddings before returning.
func (r *IdentityRepository) NearestIdentities(
	ctx context.Context, probe embedding.Vector, limit int,
) ([]database.NearestIdentity, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE embedding_vec IS NOT NULL
		ORDER BY embedding_vec <-> $1
		LIMIT $2
	`, pgvector.NewVector(probe.Float32()), limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest identities: %w", err)
	}
	defer rows.Close()

	var results []database.NearestIdentity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		results = append(results, database.NearestIdentity{
			Identity: identity,
			Distance: embedding.Distance(probe, identity.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearest identities: %w", err)
	}
	return results, nil
}
