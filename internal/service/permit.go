package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/naciremadream81/permitpro-v1/internal/catalog"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/repository"
	"github.com/naciremadream81/permitpro-v1/internal/storage"
	"github.com/naciremadream81/permitpro-v1/internal/validation"
)

// CustomerInput is the customer block of a create request.
type CustomerInput struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"omitempty,phone"`
	Email   string `json:"email" binding:"omitempty,email"`
	Address string `json:"address"`
}

// PropertyInput is the property block of a create request.
type PropertyInput struct {
	Address  string `json:"address"`
	ParcelID string `json:"parcelId"`
	Zoning   string `json:"zoning"`
}

// ContractorSelection names registry contractors to snapshot onto a package.
type ContractorSelection struct {
	Primary        *int64  `json:"primary"`
	Subcontractors []int64 `json:"subcontractors"`
}

// CreatePackageRequest holds the fields accepted when creating a package.
type CreatePackageRequest struct {
	Customer    CustomerInput       `json:"customer"`
	Property    PropertyInput       `json:"property"`
	County      string              `json:"county" binding:"required,county"`
	PermitType  string              `json:"permitType" binding:"required"`
	Contractors ContractorSelection `json:"contractors"`
}

// DocumentInput attaches a document by reference.
type DocumentInput struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url"`
}

// UploadInput attaches a document whose bytes are kept in the blob store.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ChecklistUpdate changes a checklist item. Nil fields are left unchanged.
type ChecklistUpdate struct {
	Completed *bool   `json:"completed"`
	Notes     *string `json:"notes"`
}

// PermitObserver is told about package lifecycle events.
type PermitObserver interface {
	PackageCreated(permitType string)
	StatusChanged(from, to models.PermitStatus)
	DocumentAdded(uploaded bool)
}

// PermitService manages permit packages on behalf of an authenticated caller.
// Packages the caller may not see are reported as ErrNotFound.
type PermitService interface {
	Create(ctx context.Context, identity *models.Identity, req CreatePackageRequest) (*models.PermitPackage, error)
	Get(ctx context.Context, identity *models.Identity, id int64) (*models.PermitPackage, error)
	List(ctx context.Context, identity *models.Identity) ([]models.PermitPackage, error)
	SetStatus(ctx context.Context, identity *models.Identity, id int64, status models.PermitStatus) (*models.PermitPackage, error)
	AddDocument(ctx context.Context, identity *models.Identity, id int64, input DocumentInput) (*models.Document, error)
	UploadDocument(ctx context.Context, identity *models.Identity, id int64, input UploadInput) (*models.Document, error)
	OpenDocument(ctx context.Context, identity *models.Identity, id int64, documentID string) (*models.Document, io.ReadCloser, error)
	SetChecklistItemState(ctx context.Context, identity *models.Identity, id, itemID int64, update ChecklistUpdate) (*models.ChecklistItem, error)
	Stats(ctx context.Context, identity *models.Identity) (*models.PackageStats, error)
	PrepareArchive(ctx context.Context, identity *models.Identity, id int64) (*Archive, error)
	ExportSpreadsheet(ctx context.Context, identity *models.Identity, w io.Writer) error
}

type permitService struct {
	packages    repository.PermitRepository
	contractors repository.ContractorRepository
	blobs       storage.BlobStore
	observer    PermitObserver
	now         func() time.Time
}

// PermitOption customises a PermitService.
type PermitOption func(*permitService)

// WithObserver reports lifecycle events to o.
func WithObserver(o PermitObserver) PermitOption {
	return func(s *permitService) { s.observer = o }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) PermitOption {
	return func(s *permitService) { s.now = now }
}

// NewPermitService creates a new PermitService instance.
func NewPermitService(packages repository.PermitRepository, contractors repository.ContractorRepository, blobs storage.BlobStore, opts ...PermitOption) PermitService {
	s := &permitService{
		packages:    packages,
		contractors: contractors,
		blobs:       blobs,
		observer:    noopObserver{},
		now:         utcNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *permitService) Create(ctx context.Context, identity *models.Identity, req CreatePackageRequest) (*models.PermitPackage, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	template, err := catalog.Template(req.PermitType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPermitType, req.PermitType)
	}
	if !catalog.ValidCounty(req.County) {
		return nil, fmt.Errorf("%w: unknown county %q", ErrInvalidInput, req.County)
	}

	customer, err := buildCustomer(req.Customer)
	if err != nil {
		return nil, err
	}

	contractors, err := s.snapshotContractors(ctx, req.Contractors)
	if err != nil {
		return nil, err
	}

	items := make([]models.ChecklistItem, len(template.Items))
	for i, t := range template.Items {
		items[i] = models.ChecklistItem{
			Position:    i,
			Title:       t.Title,
			Description: t.Description,
			Required:    t.Required,
		}
	}

	now := s.now()
	pkg := &models.PermitPackage{
		OwnerID:  identity.UserID,
		Customer: customer,
		Property: models.Property{
			Address:  strings.TrimSpace(req.Property.Address),
			ParcelID: strings.TrimSpace(req.Property.ParcelID),
			Zoning:   strings.TrimSpace(req.Property.Zoning),
		},
		County:         req.County,
		PermitType:     template.Key,
		Status:         models.StatusDraft,
		Contractors:    contractors,
		ChecklistItems: items,
		Documents:      []models.Document{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.packages.Create(ctx, pkg); err != nil {
		return nil, err
	}
	pkg.Normalize()
	s.observer.PackageCreated(pkg.PermitType)
	return pkg, nil
}

func (s *permitService) Get(ctx context.Context, identity *models.Identity, id int64) (*models.PermitPackage, error) {
	return s.load(ctx, identity, id)
}

func (s *permitService) List(ctx context.Context, identity *models.Identity) ([]models.PermitPackage, error) {
	filter, err := visibleTo(identity)
	if err != nil {
		return nil, err
	}
	packages, err := s.packages.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if packages == nil {
		packages = []models.PermitPackage{}
	}
	for i := range packages {
		packages[i].Normalize()
	}
	return packages, nil
}

func (s *permitService) SetStatus(ctx context.Context, identity *models.Identity, id int64, status models.PermitStatus) (*models.PermitPackage, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	pkg, err := s.load(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	previous := pkg.Status
	updatedAt := s.advance(pkg.UpdatedAt)
	if err := s.packages.UpdateStatus(ctx, pkg.ID, status, updatedAt); err != nil {
		return nil, notFound(err)
	}
	pkg.Status = status
	pkg.UpdatedAt = updatedAt
	s.observer.StatusChanged(previous, status)
	return pkg, nil
}

func (s *permitService) AddDocument(ctx context.Context, identity *models.Identity, id int64, input DocumentInput) (*models.Document, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: document name is required", ErrInvalidInput)
	}
	pkg, err := s.load(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	updatedAt := s.advance(pkg.UpdatedAt)
	doc := newDocument(identity, pkg, name, updatedAt)
	doc.URL = strings.TrimSpace(input.URL)
	if err := s.packages.AddDocument(ctx, doc, updatedAt); err != nil {
		return nil, notFound(err)
	}
	s.observer.DocumentAdded(false)
	return doc, nil
}

func (s *permitService) UploadDocument(ctx context.Context, identity *models.Identity, id int64, input UploadInput) (*models.Document, error) {
	if s.blobs == nil {
		return nil, errors.New("document uploads are not configured")
	}
	name := strings.TrimSpace(input.Filename)
	if name == "" || input.Body == nil {
		return nil, fmt.Errorf("%w: a file is required", ErrInvalidInput)
	}
	pkg, err := s.load(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.ObjectKey(pkg.ID, name)
	if err := s.blobs.Put(ctx, key, contentType, input.Body); err != nil {
		return nil, err
	}

	updatedAt := s.advance(pkg.UpdatedAt)
	doc := newDocument(identity, pkg, name, updatedAt)
	doc.ObjectKey = key
	doc.ContentType = contentType
	doc.Size = input.Size
	doc.URL = fmt.Sprintf("/api/permits/%d/documents/%s/content", pkg.ID, doc.ID)
	if err := s.packages.AddDocument(ctx, doc, updatedAt); err != nil {
		// The bytes are unreferenced once the document row is missing.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return nil, notFound(err)
	}
	s.observer.DocumentAdded(true)
	return doc, nil
}

func (s *permitService) OpenDocument(ctx context.Context, identity *models.Identity, id int64, documentID string) (*models.Document, io.ReadCloser, error) {
	pkg, err := s.load(ctx, identity, id)
	if err != nil {
		return nil, nil, err
	}
	for i := range pkg.Documents {
		doc := pkg.Documents[i]
		if doc.ID != documentID {
			continue
		}
		if doc.ObjectKey == "" || s.blobs == nil {
			return nil, nil, ErrNotFound
		}
		rc, err := s.blobs.Open(ctx, doc.ObjectKey)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return nil, nil, ErrNotFound
			}
			return nil, nil, err
		}
		return &doc, rc, nil
	}
	return nil, nil, ErrNotFound
}

func (s *permitService) SetChecklistItemState(ctx context.Context, identity *models.Identity, id, itemID int64, update ChecklistUpdate) (*models.ChecklistItem, error) {
	pkg, err := s.load(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	item, ok := pkg.Item(itemID)
	if !ok {
		return nil, ErrItemNotFound
	}

	updatedAt := s.advance(pkg.UpdatedAt)
	if update.Completed != nil {
		item.Completed = *update.Completed
		if item.Completed {
			completedAt := updatedAt
			item.CompletedAt = &completedAt
		} else {
			item.CompletedAt = nil
		}
	}
	if update.Notes != nil {
		item.Notes = *update.Notes
	}

	if err := s.packages.UpdateChecklistItem(ctx, item, updatedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	out := item.Clone()
	return &out, nil
}

func (s *permitService) Stats(ctx context.Context, identity *models.Identity) (*models.PackageStats, error) {
	filter, err := visibleTo(identity)
	if err != nil {
		return nil, err
	}
	return s.packages.Stats(ctx, filter)
}

// load fetches a package the caller may see.
func (s *permitService) load(ctx context.Context, identity *models.Identity, id int64) (*models.PermitPackage, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}
	pkg, err := s.packages.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !identity.Role.SeesAllPackages() && pkg.OwnerID != identity.UserID {
		return nil, ErrNotFound
	}
	pkg.Normalize()
	return pkg, nil
}

// advance returns the current time, never earlier than previous.
func (s *permitService) advance(previous time.Time) time.Time {
	now := s.now()
	if now.Before(previous) {
		return previous
	}
	return now
}

// newDocument builds the next version of name on pkg.
func newDocument(identity *models.Identity, pkg *models.PermitPackage, name string, at time.Time) *models.Document {
	version := 1
	for _, d := range pkg.Documents {
		if d.Name == name {
			version++
		}
	}
	uploader := identity.Name
	if uploader == "" {
		uploader = identity.Email
	}
	return &models.Document{
		ID:         uuid.NewString(),
		PackageID:  pkg.ID,
		Name:       name,
		Version:    version,
		UploaderID: identity.UserID,
		Uploader:   uploader,
		UploadedAt: at,
	}
}

func (s *permitService) snapshotContractors(ctx context.Context, sel ContractorSelection) ([]models.PackageContractor, error) {
	type pick struct {
		id   int64
		role models.ContractorRole
	}
	var picks []pick
	if sel.Primary != nil {
		picks = append(picks, pick{*sel.Primary, models.RolePrimaryContractor})
	}
	for _, id := range sel.Subcontractors {
		picks = append(picks, pick{id, models.RoleSubcontractor})
	}

	seen := make(map[int64]bool, len(picks))
	out := make([]models.PackageContractor, 0, len(picks))
	for i, p := range picks {
		if seen[p.id] {
			return nil, fmt.Errorf("%w: contractor %d selected more than once", ErrInvalidInput, p.id)
		}
		seen[p.id] = true

		c, err := s.contractors.FindByID(ctx, p.id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown contractor %d", ErrInvalidInput, p.id)
			}
			return nil, err
		}
		if c.Status != models.ContractorActive {
			return nil, fmt.Errorf("%w: contractor %d is %s", ErrInvalidInput, p.id, c.Status)
		}
		out = append(out, models.PackageContractor{
			Position:      i,
			ContractorID:  c.ID,
			Role:          p.role,
			Name:          c.Name,
			LicenseNumber: c.LicenseNumber,
			Phone:         c.Phone,
			Email:         c.Email,
			Specialties:   c.Specialties,
		})
	}
	return out, nil
}

func buildCustomer(in CustomerInput) (models.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Customer{}, fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}
	phone, err := validation.NormalizePhone(in.Phone)
	if err != nil {
		return models.Customer{}, fmt.Errorf("%w: customer %v", ErrInvalidInput, err)
	}
	return models.Customer{
		Name:    name,
		Phone:   phone,
		Email:   strings.TrimSpace(in.Email),
		Address: strings.TrimSpace(in.Address),
	}, nil
}

func visibleTo(identity *models.Identity) (repository.PackageFilter, error) {
	if identity == nil {
		return repository.PackageFilter{}, ErrUnauthenticated
	}
	if identity.Role.SeesAllPackages() {
		return repository.PackageFilter{}, nil
	}
	owner := identity.UserID
	return repository.PackageFilter{OwnerID: &owner}, nil
}

type noopObserver struct{}

func (noopObserver) PackageCreated(string) {}

func (noopObserver) StatusChanged(models.PermitStatus, models.PermitStatus) {}

func (noopObserver) DocumentAdded(bool) {}
