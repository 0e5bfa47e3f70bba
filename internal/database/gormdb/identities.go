package gormdb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// ListIdentities returns all identities in ascending ID order.
func (s *Store) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	var models []identityModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}

	identities := make([]database.Identity, 0, len(models))
	for _, m := range models {
		identity, err := m.identity()
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	return identities, nil
}

// GetIdentity returns the identity with the given ID.
func (s *Store) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	var m identityModel
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, database.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	identity, err := m.identity()
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// CountIdentities returns the number of registered identities.
func (s *Store) CountIdentities(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&identityModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return int(count), nil
}

// CreateIdentity inserts an identity after checking the employee code inside the same transaction.
func (s *Store) CreateIdentity(ctx context.Context, identity database.Identity) (*database.Identity, error) {
	m := identityModel{
		Name:          identity.Name,
		EmployeeCode:  identity.EmployeeCode,
		FaceEmbedding: identity.Embedding.Encode(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&identityModel{}).Where("employee_code = ?", m.EmployeeCode).Count(&count).Error; err != nil {
			return fmt.Errorf("check employee code: %w", err)
		}
		if count > 0 {
			return database.ErrDuplicateEmployeeCode
		}
		return tx.Create(&m).Error
	})
	switch {
	case errors.Is(err, database.ErrDuplicateEmployeeCode), isDuplicate(err):
		return nil, database.ErrDuplicateEmployeeCode
	case err != nil:
		return nil, fmt.Errorf("insert identity: %w", err)
	}

	identity.ID = m.ID
	identity.CreatedAt = m.CreatedAt
	return &identity, nil
}
