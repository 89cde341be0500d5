// internal/models/application.go
package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a franchise application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusGranted  Status = "granted"
	StatusRejected Status = "rejected"
)

// AllStatuses lists every lifecycle state in display order.
var AllStatuses = []Status{StatusPending, StatusAccepted, StatusGranted, StatusRejected}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusGranted, StatusRejected:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Ownership describes how the proposed site is held.
type Ownership string

const (
	OwnershipOwned  Ownership = "owned"
	OwnershipRented Ownership = "rented"
	OwnershipLeased Ownership = "leased"
)

// Applicant is one franchise application keyed by email.
type Applicant struct {
	Email              string    `json:"email"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	Phone              string    `json:"phone"`
	ResidentialAddress string    `json:"residentialAddress,omitempty"`
	BusinessName       string    `json:"businessName"`
	SiteAddress        string    `json:"siteAddress,omitempty"`
	SiteCity           string    `json:"siteCity,omitempty"`
	SitePostal         string    `json:"sitePostal,omitempty"`
	SiteFloor          string    `json:"siteFloor,omitempty"`
	SiteAreaSqft       int       `json:"siteAreaSqft,omitempty"`
	Ownership          Ownership `json:"ownership,omitempty"`
	Status             Status    `json:"status"`
	DateApplied        time.Time `json:"dateApplied"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (a *Applicant) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// ApplicationForm is the submission payload.
type ApplicationForm struct {
	Email              string    `json:"email"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	Phone              string    `json:"phone"`
	ResidentialAddress string    `json:"residentialAddress"`
	BusinessName       string    `json:"businessName"`
	SiteAddress        string    `json:"siteAddress"`
	SiteCity           string    `json:"siteCity"`
	SitePostal         string    `json:"sitePostal"`
	SiteFloor          string    `json:"siteFloor"`
	SiteAreaSqft       int       `json:"siteAreaSqft"`
	Ownership          Ownership `json:"ownership"`
}

// ToApplicant builds a pending applicant stamped with appliedAt.
func (f ApplicationForm) ToApplicant(appliedAt time.Time) *Applicant {
	return &Applicant{
		Email:              NormalizeEmail(f.Email),
		FirstName:          strings.TrimSpace(f.FirstName),
		LastName:           strings.TrimSpace(f.LastName),
		Phone:              strings.TrimSpace(f.Phone),
		ResidentialAddress: strings.TrimSpace(f.ResidentialAddress),
		BusinessName:       strings.TrimSpace(f.BusinessName),
		SiteAddress:        strings.TrimSpace(f.SiteAddress),
		SiteCity:           strings.TrimSpace(f.SiteCity),
		SitePostal:         strings.TrimSpace(f.SitePostal),
		SiteFloor:          strings.TrimSpace(f.SiteFloor),
		SiteAreaSqft:       f.SiteAreaSqft,
		Ownership:          f.Ownership,
		Status:             StatusPending,
		DateApplied:        appliedAt.UTC(),
		UpdatedAt:          appliedAt.UTC(),
	}
}

// ProfileUpdate holds the fields a franchisee may edit on their own record.
type ProfileUpdate struct {
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Phone              string `json:"phone"`
	ResidentialAddress string `json:"residentialAddress"`
	BusinessName       string `json:"businessName"`
	SiteAddress        string `json:"siteAddress"`
	SiteCity           string `json:"siteCity"`
	SitePostal         string `json:"sitePostal"`
}

// NormalizeEmail lower-cases and trims an address so it can serve as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
