package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/naciremadream81/permitpro-v1/internal/models"
	"gorm.io/gorm"
)

// PackageFilter restricts package queries. A nil OwnerID matches every owner.
type PackageFilter struct {
	OwnerID *int64
}

// PermitRepository defines the interface for permit package persistence.
type PermitRepository interface {
	// Create stores pkg with its checklist, contractors and documents in one
	// transaction and assigns ids and the permit number.
	Create(ctx context.Context, pkg *models.PermitPackage) error
	FindByID(ctx context.Context, id int64) (*models.PermitPackage, error)
	// List returns matching packages, most recently created first.
	List(ctx context.Context, filter PackageFilter) ([]models.PermitPackage, error)
	UpdateStatus(ctx context.Context, id int64, status models.PermitStatus, updatedAt time.Time) error
	AddDocument(ctx context.Context, doc *models.Document, updatedAt time.Time) error
	UpdateChecklistItem(ctx context.Context, item *models.ChecklistItem, updatedAt time.Time) error
	Stats(ctx context.Context, filter PackageFilter) (*models.PackageStats, error)
}

type permitRepository struct {
	db *gorm.DB
}

// NewPermitRepository creates a new PermitRepository instance.
func NewPermitRepository(db *gorm.DB) PermitRepository {
	return &permitRepository{db: db}
}

func (r *permitRepository) Create(ctx context.Context, pkg *models.PermitPackage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pkg).Error; err != nil {
			return err
		}
		pkg.PermitNumber = models.FormatPermitNumber(pkg.PermitType, pkg.CreatedAt.Year(), pkg.ID)
		return tx.Model(pkg).UpdateColumn("permit_number", pkg.PermitNumber).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create package: %w", err)
	}
	return nil
}

func (r *permitRepository) FindByID(ctx context.Context, id int64) (*models.PermitPackage, error) {
	var pkg models.PermitPackage
	err := withChildren(r.db.WithContext(ctx)).First(&pkg, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find package by id %d: %w", id, translate(err))
	}
	return &pkg, nil
}

func (r *permitRepository) List(ctx context.Context, filter PackageFilter) ([]models.PermitPackage, error) {
	var packages []models.PermitPackage
	query := withChildren(r.db.WithContext(ctx))
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if err := query.Order("created_at DESC, id DESC").Find(&packages).Error; err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	return packages, nil
}

func (r *permitRepository) UpdateStatus(ctx context.Context, id int64, status models.PermitStatus, updatedAt time.Time) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.PermitPackage{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"status": status, "updated_at": updatedAt})
	if err := confirmUpdated(db, result, &models.PermitPackage{}, "id = ?", id); err != nil {
		return fmt.Errorf("failed to update status of package %d: %w", id, err)
	}
	return nil
}

func (r *permitRepository) AddDocument(ctx context.Context, doc *models.Document, updatedAt time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, doc.PackageID, updatedAt); err != nil {
			return err
		}
		return tx.Create(doc).Error
	})
	if err != nil {
		return fmt.Errorf("failed to add document to package %d: %w", doc.PackageID, err)
	}
	return nil
}

func (r *permitRepository) UpdateChecklistItem(ctx context.Context, item *models.ChecklistItem, updatedAt time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ChecklistItem{}).
			Where("id = ? AND package_id = ?", item.ID, item.PackageID).
			UpdateColumns(map[string]interface{}{
				"completed":    item.Completed,
				"completed_at": item.CompletedAt,
				"notes":        item.Notes,
			})
		if err := confirmUpdated(tx, result, &models.ChecklistItem{}, "id = ? AND package_id = ?", item.ID, item.PackageID); err != nil {
			return err
		}
		return touch(tx, item.PackageID, updatedAt)
	})
	if err != nil {
		return fmt.Errorf("failed to update checklist item %d: %w", item.ID, err)
	}
	return nil
}

func (r *permitRepository) Stats(ctx context.Context, filter PackageFilter) (*models.PackageStats, error) {
	type statusCount struct {
		Status models.PermitStatus
		Total  int64
	}
	var counts []statusCount
	query := r.db.WithContext(ctx).Model(&models.PermitPackage{}).Select("status, COUNT(*) AS total")
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if err := query.Group("status").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count packages: %w", err)
	}

	stats := &models.PackageStats{}
	for _, c := range counts {
		stats.TotalPackages += c.Total
		switch c.Status {
		case models.StatusDraft:
			stats.DraftPackages = c.Total
		case models.StatusSubmitted:
			stats.SubmittedPackages = c.Total
		case models.StatusCompleted:
			stats.CompletedPackages = c.Total
		}
	}

	docs := r.db.WithContext(ctx).Model(&models.Document{}).
		Joins("JOIN packages ON packages.id = documents.package_id")
	if filter.OwnerID != nil {
		docs = docs.Where("packages.owner_id = ?", *filter.OwnerID)
	}
	if err := docs.Count(&stats.TotalDocuments).Error; err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	stats.CompletionRate = completionRate(stats.CompletedPackages, stats.TotalPackages)
	return stats, nil
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Contractors", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("ChecklistItems", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at, id") })
}

func touch(tx *gorm.DB, packageID int64, updatedAt time.Time) error {
	result := tx.Model(&models.PermitPackage{}).
		Where("id = ?", packageID).
		UpdateColumn("updated_at", updatedAt)
	return confirmUpdated(tx, result, &models.PermitPackage{}, "id = ?", packageID)
}

// completionRate is the rounded percentage of completed packages.
func completionRate(completed, total int64) int {
	if total == 0 {
		return 0
	}
	return int((completed*100 + total/2) / total)
}
