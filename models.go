package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultCredits is the credit balance granted to a freshly provisioned profile.
const DefaultCredits = 100

// Profile is the durable per-user application record. Its ID is the user id
// of the owning identity, one row per user.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	AvatarURL     string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	Credits       int        `bun:"credits,notnull" json:"credits"`
	Verified      bool       `bun:"is_verified,notnull" json:"is_verified"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NewDefaultProfile builds the row inserted on first sign-in.
func NewDefaultProfile(userID uuid.UUID) *Profile {
	return &Profile{
		ID:       userID,
		Credits:  DefaultCredits,
		Verified: false,
	}
}

// Account is a credential record backing the token session store.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	EmailVerified bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// User returns the identity record for the account.
func (a *Account) User() *User {
	if a == nil {
		return nil
	}
	return &User{ID: a.ID, Email: a.Email}
}
