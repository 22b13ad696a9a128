package repository

import (
	"context"
	"fmt"

	"github.com/naciremadream81/permitpro-v1/internal/models"
	"gorm.io/gorm"
)

// ContractorRepository defines the interface for contractor registry operations.
type ContractorRepository interface {
	List(ctx context.Context) ([]models.Contractor, error)
	FindByID(ctx context.Context, id int64) (*models.Contractor, error)
	Create(ctx context.Context, contractor *models.Contractor) error
	Update(ctx context.Context, contractor *models.Contractor) error
	Delete(ctx context.Context, id int64) error
}

type contractorRepository struct {
	db *gorm.DB
}

// NewContractorRepository creates a new ContractorRepository instance.
func NewContractorRepository(db *gorm.DB) ContractorRepository {
	return &contractorRepository{db: db}
}

func (r *contractorRepository) List(ctx context.Context) ([]models.Contractor, error) {
	var contractors []models.Contractor
	if err := r.db.WithContext(ctx).Order("name, id").Find(&contractors).Error; err != nil {
		return nil, fmt.Errorf("failed to list contractors: %w", err)
	}
	return contractors, nil
}

func (r *contractorRepository) FindByID(ctx context.Context, id int64) (*models.Contractor, error) {
	var contractor models.Contractor
	if err := r.db.WithContext(ctx).First(&contractor, id).Error; err != nil {
		return nil, fmt.Errorf("failed to find contractor by id %d: %w", id, translate(err))
	}
	return &contractor, nil
}

func (r *contractorRepository) Create(ctx context.Context, contractor *models.Contractor) error {
	if err := r.db.WithContext(ctx).Create(contractor).Error; err != nil {
		return fmt.Errorf("failed to create contractor: %w", err)
	}
	return nil
}

func (r *contractorRepository) Update(ctx context.Context, contractor *models.Contractor) error {
	db := r.db.WithContext(ctx)
	result := db.Model(contractor).Select("*").Omit("created_at").Updates(contractor)
	if err := confirmUpdated(db, result, &models.Contractor{}, "id = ?", contractor.ID); err != nil {
		return fmt.Errorf("failed to update contractor id %d: %w", contractor.ID, err)
	}
	return nil
}

func (r *contractorRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Contractor{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete contractor id %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete contractor id %d: %w", id, ErrNotFound)
	}
	return nil
}
