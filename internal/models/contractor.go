package models

import "time"

// ContractorStatus is the registry status of a contractor.
type ContractorStatus string

const (
	ContractorActive    ContractorStatus = "active"
	ContractorSuspended ContractorStatus = "suspended"
)

// Valid reports whether s is a known contractor status.
func (s ContractorStatus) Valid() bool {
	return s == ContractorActive || s == ContractorSuspended
}

// Contractor is a licensed company that can be assigned to permit packages.
type Contractor struct {
	ID            int64            `json:"id" gorm:"primaryKey"`
	Name          string           `json:"name" gorm:"not null"`
	LicenseNumber string           `json:"licenseNumber" gorm:"not null;index"`
	Phone         string           `json:"phone"`
	Email         string           `json:"email"`
	Address       string           `json:"address"`
	Specialties   string           `json:"specialties"`
	Status        ContractorStatus `json:"status" gorm:"not null;default:active"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// TableName returns the database table name for the Contractor model.
func (Contractor) TableName() string {
	return "contractors"
}
