package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/repository"
	"github.com/naciremadream81/permitpro-v1/internal/validation"
)

// ContractorInput holds the editable contractor fields.
type ContractorInput struct {
	Name          string `json:"name" binding:"required"`
	LicenseNumber string `json:"licenseNumber" binding:"required"`
	Phone         string `json:"phone" binding:"omitempty,phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
	Specialties   string `json:"specialties"`
}

// ContractorService manages the contractor registry.
type ContractorService interface {
	List(ctx context.Context) ([]models.Contractor, error)
	Get(ctx context.Context, id int64) (*models.Contractor, error)
	Create(ctx context.Context, input ContractorInput) (*models.Contractor, error)
	Update(ctx context.Context, id int64, input ContractorInput) (*models.Contractor, error)
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, status models.ContractorStatus) (*models.Contractor, error)
}

type contractorService struct {
	repo repository.ContractorRepository
	now  func() time.Time
}

// NewContractorService creates a new ContractorService instance.
func NewContractorService(repo repository.ContractorRepository) ContractorService {
	return &contractorService{repo: repo, now: utcNow}
}

func (s *contractorService) List(ctx context.Context) ([]models.Contractor, error) {
	contractors, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if contractors == nil {
		contractors = []models.Contractor{}
	}
	return contractors, nil
}

func (s *contractorService) Get(ctx context.Context, id int64) (*models.Contractor, error) {
	contractor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return contractor, nil
}

func (s *contractorService) Create(ctx context.Context, input ContractorInput) (*models.Contractor, error) {
	contractor := &models.Contractor{Status: models.ContractorActive}
	if err := applyContractorInput(contractor, input); err != nil {
		return nil, err
	}
	now := s.now()
	contractor.CreatedAt, contractor.UpdatedAt = now, now

	if err := s.repo.Create(ctx, contractor); err != nil {
		return nil, err
	}
	return contractor, nil
}

func (s *contractorService) Update(ctx context.Context, id int64, input ContractorInput) (*models.Contractor, error) {
	contractor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyContractorInput(contractor, input); err != nil {
		return nil, err
	}
	contractor.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, contractor); err != nil {
		return nil, notFound(err)
	}
	return contractor, nil
}

func (s *contractorService) Delete(ctx context.Context, id int64) error {
	return notFound(s.repo.Delete(ctx, id))
}

func (s *contractorService) SetStatus(ctx context.Context, id int64, status models.ContractorStatus) (*models.Contractor, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown contractor status %q", ErrInvalidInput, status)
	}
	contractor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	contractor.Status = status
	contractor.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, contractor); err != nil {
		return nil, notFound(err)
	}
	return contractor, nil
}

func applyContractorInput(c *models.Contractor, input ContractorInput) error {
	name := strings.TrimSpace(input.Name)
	license := strings.TrimSpace(input.LicenseNumber)
	if name == "" || license == "" {
		return fmt.Errorf("%w: name and licenseNumber are required", ErrInvalidInput)
	}
	phone, err := validation.NormalizePhone(input.Phone)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	c.Name = name
	c.LicenseNumber = license
	c.Phone = phone
	c.Email = strings.TrimSpace(input.Email)
	c.Address = strings.TrimSpace(input.Address)
	c.Specialties = strings.TrimSpace(input.Specialties)
	return nil
}

// notFound maps repository.ErrNotFound onto ErrNotFound and passes other
// errors through.
func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func utcNow() time.Time {
	return time.Now().UTC()
}
