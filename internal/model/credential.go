package model

import "time"

// CredentialStatus is the lifecycle state of an entry credential.
type CredentialStatus string

const (
	StatusPending  CredentialStatus = "pending"
	StatusApproved CredentialStatus = "approved"
	StatusRevoked  CredentialStatus = "revoked"
)

// Valid reports whether s is one of the known statuses.
func (s CredentialStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRevoked:
		return true
	}
	return false
}

// CredentialCategory is informational only; it never affects verification.
type CredentialCategory string

const (
	CategoryStudent CredentialCategory = "student"
	CategorySpeaker CredentialCategory = "speaker"
	CategoryVIP     CredentialCategory = "vip"
)

// Valid reports whether c is one of the known categories.
func (c CredentialCategory) Valid() bool {
	switch c {
	case CategoryStudent, CategorySpeaker, CategoryVIP:
		return true
	}
	return false
}

// Credential represents one registered visitor's scannable entry pass.
type Credential struct {
	ID             string `gorm:"primaryKey;size:36"`
	Name           string `gorm:"size:256;not null"`
	Email          string `gorm:"size:256;index"`
	Phone          string `gorm:"size:32"`
	RegisterNumber string `gorm:"size:64"`

	EventID   string             `gorm:"size:36;index"`
	EventName string             `gorm:"size:256"`
	Category  CredentialCategory `gorm:"size:32;not null"`
	Status    CredentialStatus   `gorm:"size:32;not null;index"`

	Purpose           string   `gorm:"size:512"`
	AreaOfInterest    []string `gorm:"serializer:json"`
	AccompanyingCount int

	// Either a [ValidFrom, ValidTo] range or a single VisitDate; all nil means
	// the credential is not date-gated.
	ValidFrom *time.Time
	ValidTo   *time.Time
	VisitDate *time.Time

	// VerifiedBy and VerifiedAt are both set or both nil.
	VerifiedBy *string `gorm:"size:128"`
	VerifiedAt *time.Time

	HasArrived  bool
	ArrivedAt   *time.Time
	CheckedInBy *string `gorm:"size:128"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
