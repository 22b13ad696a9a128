package models

import (
	"fmt"
	"strings"
	"time"
)

// PermitStatus is the lifecycle status of a permit package. Any status may
// follow any other.
type PermitStatus string

const (
	StatusDraft     PermitStatus = "Draft"
	StatusSubmitted PermitStatus = "Submitted"
	StatusCompleted PermitStatus = "Completed"
)

// PermitStatuses lists the statuses in display order.
var PermitStatuses = []PermitStatus{StatusDraft, StatusSubmitted, StatusCompleted}

// Valid reports whether s is a known status.
func (s PermitStatus) Valid() bool {
	for _, known := range PermitStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ContractorRole is the role a contractor plays on a package.
type ContractorRole string

const (
	RolePrimaryContractor ContractorRole = "Primary Contractor"
	RoleSubcontractor     ContractorRole = "Subcontractor"
)

// Customer is the homeowner a package is filed for.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// Property is the parcel the permit applies to.
type Property struct {
	Address  string `json:"address"`
	ParcelID string `json:"parcelId"`
	Zoning   string `json:"zoning"`
}

// PermitPackage is the aggregate root: one permit application with its
// checklist, attachments and assigned contractors.
type PermitPackage struct {
	ID             int64               `json:"id" gorm:"primaryKey"`
	PermitNumber   string              `json:"permitNumber" gorm:"index"`
	OwnerID        int64               `json:"ownerId" gorm:"not null;index"`
	Customer       Customer            `json:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	Property       Property            `json:"property" gorm:"embedded;embeddedPrefix:property_"`
	County         string              `json:"county" gorm:"not null"`
	PermitType     string              `json:"permitType" gorm:"not null"`
	Status         PermitStatus        `json:"status" gorm:"not null;default:Draft;index"`
	Contractors    []PackageContractor `json:"contractors" gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE"`
	ChecklistItems []ChecklistItem     `json:"checklistItems" gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE"`
	Documents      []Document          `json:"documents" gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time           `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for the PermitPackage model.
func (PermitPackage) TableName() string {
	return "packages"
}

// PackageContractor is a snapshot of a contractor taken when it was assigned.
// Later registry edits do not change it.
type PackageContractor struct {
	ID            int64          `json:"-" gorm:"primaryKey"`
	PackageID     int64          `json:"-" gorm:"not null;index"`
	Position      int            `json:"-" gorm:"not null"`
	ContractorID  int64          `json:"contractorId" gorm:"not null;index"`
	Role          ContractorRole `json:"role" gorm:"not null"`
	Name          string         `json:"name"`
	LicenseNumber string         `json:"licenseNumber"`
	Phone         string         `json:"phone"`
	Email         string         `json:"email"`
	Specialties   string         `json:"specialties"`
}

// TableName returns the database table name for the PackageContractor model.
func (PackageContractor) TableName() string {
	return "package_contractors"
}

// ChecklistItem is one requirement copied from the permit-type template.
type ChecklistItem struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	PackageID   int64      `json:"-" gorm:"not null;index"`
	Position    int        `json:"position" gorm:"not null"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	Required    bool       `json:"required"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	Notes       string     `json:"notes"`
}

// TableName returns the database table name for the ChecklistItem model.
func (ChecklistItem) TableName() string {
	return "checklist_items"
}

// Document is an attachment on a package. Documents are only ever appended.
type Document struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PackageID   int64     `json:"-" gorm:"not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	URL         string    `json:"url"`
	ObjectKey   string    `json:"-"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	Version     int       `json:"version" gorm:"not null;default:1"`
	UploaderID  int64     `json:"uploaderId"`
	Uploader    string    `json:"uploader"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// TableName returns the database table name for the Document model.
func (Document) TableName() string {
	return "documents"
}

// Clone returns a deep copy of p.
func (p *PermitPackage) Clone() *PermitPackage {
	if p == nil {
		return nil
	}
	out := *p
	out.Contractors = make([]PackageContractor, len(p.Contractors))
	copy(out.Contractors, p.Contractors)
	out.Documents = make([]Document, len(p.Documents))
	copy(out.Documents, p.Documents)
	out.ChecklistItems = make([]ChecklistItem, len(p.ChecklistItems))
	for i, item := range p.ChecklistItems {
		out.ChecklistItems[i] = item.Clone()
	}
	return &out
}

// Normalize replaces nil child slices with empty ones so they encode as [].
func (p *PermitPackage) Normalize() {
	if p.Contractors == nil {
		p.Contractors = []PackageContractor{}
	}
	if p.ChecklistItems == nil {
		p.ChecklistItems = []ChecklistItem{}
	}
	if p.Documents == nil {
		p.Documents = []Document{}
	}
}

// Clone returns a copy of i that does not share CompletedAt.
func (i ChecklistItem) Clone() ChecklistItem {
	if i.CompletedAt != nil {
		t := *i.CompletedAt
		i.CompletedAt = &t
	}
	return i
}

// Item returns the checklist item with the given id.
func (p *PermitPackage) Item(itemID int64) (*ChecklistItem, bool) {
	for i := range p.ChecklistItems {
		if p.ChecklistItems[i].ID == itemID {
			return &p.ChecklistItems[i], true
		}
	}
	return nil, false
}

// PackageStats summarises packages by status.
type PackageStats struct {
	TotalPackages     int64 `json:"totalPackages"`
	DraftPackages     int64 `json:"draftPackages"`
	SubmittedPackages int64 `json:"submittedPackages"`
	CompletedPackages int64 `json:"completedPackages"`
	TotalDocuments    int64 `json:"totalDocuments"`
	CompletionRate    int   `json:"completionRate"`
}

// FormatPermitNumber builds the human readable permit number, e.g. SHED-2026-007.
func FormatPermitNumber(permitType string, year int, id int64) string {
	return fmt.Sprintf("%s-%d-%03d", strings.ToUpper(permitType), year, id)
}
