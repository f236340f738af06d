package types

import (
	"time"

	"github.com/google/uuid"
)

// User represents an identity on the marketplace: a passenger, a driver or
// a platform operator. It is keyed by phone number.
type User struct {
	// ID is the unique identifier of the user, assigned at creation.
	ID uuid.UUID `json:"id"`

	// Phone is the primary login identifier (+225 followed by 8 digits).
	Phone string `json:"phone"`

	// Email is optional. When set it is unique across all users.
	Email *string `json:"email"`

	// DisplayName is the user's free-text display or full name.
	DisplayName *string `json:"full_name"`

	// HashedPassword is the output of the credential hasher.
	// This field is never exposed in API responses.
	HashedPassword string `json:"-"`

	// Role determines the authorization scope of the user.
	Role Role `json:"role"`

	IsKYCVerified      bool       `json:"is_kyc_verified"`
	KYCVerifiedAt      *time.Time `json:"kyc_verified_at"`
	KYCDocumentsStatus *string    `json:"kyc_documents_status"`

	// IsActive governs login eligibility.
	IsActive bool `json:"is_active"`

	// IsSuperuser grants cross-identity access independently of Role.
	IsSuperuser bool `json:"is_superuser"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser is a validated creation candidate handed to the store.
type NewUser struct {
	Phone          string
	Email          *string
	DisplayName    *string
	HashedPassword string
	Role           Role
	IsSuperuser    bool
}

// UserPatch lists the fields of a partial update. Nil fields are left untouched.
// ClearEmail and ClearKYCVerifiedAt set the corresponding column to null.
type UserPatch struct {
	Email          *string
	ClearEmail     bool
	DisplayName    *string
	HashedPassword *string
	IsActive       *bool

	Role               *Role
	IsKYCVerified      *bool
	KYCVerifiedAt      *time.Time
	ClearKYCVerifiedAt bool
	KYCDocumentsStatus *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Email == nil && !p.ClearEmail && p.DisplayName == nil &&
		p.HashedPassword == nil && p.IsActive == nil && p.Role == nil &&
		p.IsKYCVerified == nil && p.KYCVerifiedAt == nil && !p.ClearKYCVerifiedAt &&
		p.KYCDocumentsStatus == nil
}

// Apply returns a copy of u with the patch applied. UpdatedAt is left to the caller.
func (p UserPatch) Apply(u User) User {
	switch {
	case p.ClearEmail:
		u.Email = nil
	case p.Email != nil:
		email := *p.Email
		u.Email = &email
	}
	if p.DisplayName != nil {
		name := *p.DisplayName
		u.DisplayName = &name
	}
	if p.HashedPassword != nil {
		u.HashedPassword = *p.HashedPassword
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsKYCVerified != nil {
		u.IsKYCVerified = *p.IsKYCVerified
	}
	switch {
	case p.ClearKYCVerifiedAt:
		u.KYCVerifiedAt = nil
	case p.KYCVerifiedAt != nil:
		at := *p.KYCVerifiedAt
		u.KYCVerifiedAt = &at
	}
	if p.KYCDocumentsStatus != nil {
		status := *p.KYCDocumentsStatus
		u.KYCDocumentsStatus = &status
	}
	return u
}

// KYC document review states stored in KYCDocumentsStatus.
const (
	KYCStatusPending  = "pending"
	KYCStatusApproved = "approved"
	KYCStatusRejected = "rejected"
)
