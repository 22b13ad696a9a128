package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/naciremadream81/permitpro-v1/internal/models"
)

// In-memory repositories back STORE_DRIVER=memory and tests. Values are
// copied in and out so callers never alias stored state.

var (
	_ UserRepository       = (*MemoryUserRepository)(nil)
	_ ContractorRepository = (*MemoryContractorRepository)(nil)
	_ PermitRepository     = (*MemoryPermitRepository)(nil)
)

// =============================================================================
// Users
// =============================================================================

// MemoryUserRepository keeps users in a map keyed by id.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]models.User
}

// NewMemoryUserRepository creates an empty user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[int64]models.User{}}
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("failed to find user by email %s: %w", email, ErrNotFound)
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("failed to find user by id %d: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("failed to create user: duplicate email %s", user.Email)
		}
	}
	r.nextID++
	now := time.Now().UTC()
	user.ID = r.nextID
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return fmt.Errorf("failed to update user id %d: %w", user.ID, ErrNotFound)
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

// =============================================================================
// Contractors
// =============================================================================

// MemoryContractorRepository keeps contractors in a map keyed by id.
type MemoryContractorRepository struct {
	mu          sync.RWMutex
	nextID      int64
	contractors map[int64]models.Contractor
}

// NewMemoryContractorRepository creates an empty contractor repository.
func NewMemoryContractorRepository() *MemoryContractorRepository {
	return &MemoryContractorRepository{contractors: map[int64]models.Contractor{}}
}

func (r *MemoryContractorRepository) List(_ context.Context) ([]models.Contractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Contractor, 0, len(r.contractors))
	for _, c := range r.contractors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryContractorRepository) FindByID(_ context.Context, id int64) (*models.Contractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contractors[id]
	if !ok {
		return nil, fmt.Errorf("failed to find contractor by id %d: %w", id, ErrNotFound)
	}
	return &c, nil
}

func (r *MemoryContractorRepository) Create(_ context.Context, contractor *models.Contractor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	contractor.ID = r.nextID
	if contractor.CreatedAt.IsZero() {
		contractor.CreatedAt = time.Now().UTC()
	}
	if contractor.UpdatedAt.IsZero() {
		contractor.UpdatedAt = contractor.CreatedAt
	}
	r.contractors[contractor.ID] = *contractor
	return nil
}

func (r *MemoryContractorRepository) Update(_ context.Context, contractor *models.Contractor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contractors[contractor.ID]; !ok {
		return fmt.Errorf("failed to update contractor id %d: %w", contractor.ID, ErrNotFound)
	}
	r.contractors[contractor.ID] = *contractor
	return nil
}

func (r *MemoryContractorRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contractors[id]; !ok {
		return fmt.Errorf("failed to delete contractor id %d: %w", id, ErrNotFound)
	}
	delete(r.contractors, id)
	return nil
}

// =============================================================================
// Permit packages
// =============================================================================

// MemoryPermitRepository keeps packages, with their children embedded, in a
// map keyed by id.
type MemoryPermitRepository struct {
	mu               sync.RWMutex
	nextPackageID    int64
	nextItemID       int64
	nextContractorID int64
	packages         map[int64]*models.PermitPackage
}

// NewMemoryPermitRepository creates an empty package repository.
func NewMemoryPermitRepository() *MemoryPermitRepository {
	return &MemoryPermitRepository{packages: map[int64]*models.PermitPackage{}}
}

// Len returns the number of stored packages.
func (r *MemoryPermitRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.packages)
}

func (r *MemoryPermitRepository) Create(_ context.Context, pkg *models.PermitPackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextPackageID++
	pkg.ID = r.nextPackageID
	pkg.PermitNumber = models.FormatPermitNumber(pkg.PermitType, pkg.CreatedAt.Year(), pkg.ID)
	for i := range pkg.ChecklistItems {
		r.nextItemID++
		pkg.ChecklistItems[i].ID = r.nextItemID
		pkg.ChecklistItems[i].PackageID = pkg.ID
	}
	for i := range pkg.Contractors {
		r.nextContractorID++
		pkg.Contractors[i].ID = r.nextContractorID
		pkg.Contractors[i].PackageID = pkg.ID
	}
	for i := range pkg.Documents {
		pkg.Documents[i].PackageID = pkg.ID
	}

	r.packages[pkg.ID] = pkg.Clone()
	return nil
}

func (r *MemoryPermitRepository) FindByID(_ context.Context, id int64) (*models.PermitPackage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pkg, ok := r.packages[id]
	if !ok {
		return nil, fmt.Errorf("failed to find package by id %d: %w", id, ErrNotFound)
	}
	return pkg.Clone(), nil
}

func (r *MemoryPermitRepository) List(_ context.Context, filter PackageFilter) ([]models.PermitPackage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.PermitPackage, 0, len(r.packages))
	for _, pkg := range r.packages {
		if filter.OwnerID != nil && pkg.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, *pkg.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryPermitRepository) UpdateStatus(_ context.Context, id int64, status models.PermitStatus, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[id]
	if !ok {
		return fmt.Errorf("failed to update status of package %d: %w", id, ErrNotFound)
	}
	pkg.Status = status
	pkg.UpdatedAt = updatedAt
	return nil
}

func (r *MemoryPermitRepository) AddDocument(_ context.Context, doc *models.Document, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[doc.PackageID]
	if !ok {
		return fmt.Errorf("failed to add document to package %d: %w", doc.PackageID, ErrNotFound)
	}
	pkg.Documents = append(pkg.Documents, *doc)
	pkg.UpdatedAt = updatedAt
	return nil
}

func (r *MemoryPermitRepository) UpdateChecklistItem(_ context.Context, item *models.ChecklistItem, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[item.PackageID]
	if !ok {
		return fmt.Errorf("failed to update checklist item %d: %w", item.ID, ErrNotFound)
	}
	stored, ok := pkg.Item(item.ID)
	if !ok {
		return fmt.Errorf("failed to update checklist item %d: %w", item.ID, ErrNotFound)
	}
	stored.Completed = item.Completed
	stored.CompletedAt = item.Clone().CompletedAt
	stored.Notes = item.Notes
	pkg.UpdatedAt = updatedAt
	return nil
}

func (r *MemoryPermitRepository) Stats(_ context.Context, filter PackageFilter) (*models.PackageStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &models.PackageStats{}
	for _, pkg := range r.packages {
		if filter.OwnerID != nil && pkg.OwnerID != *filter.OwnerID {
			continue
		}
		stats.TotalPackages++
		stats.TotalDocuments += int64(len(pkg.Documents))
		switch pkg.Status {
		case models.StatusDraft:
			stats.DraftPackages++
		case models.StatusSubmitted:
			stats.SubmittedPackages++
		case models.StatusCompleted:
			stats.CompletedPackages++
		}
	}
	stats.CompletionRate = completionRate(stats.CompletedPackages, stats.TotalPackages)
	return stats, nil
}
