package domain

import "time"

// User is an account. PasswordHash is empty for accounts created through an
// OAuth provider.
type User struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Username               string    `json:"username"`
	Email                  string    `json:"email"`
	PasswordHash           string    `json:"-"`
	Role                   Role      `json:"role"`
	PhoneNumber            string    `json:"phoneNumber,omitempty"`
	ProfilePicture         string    `json:"profilePicture,omitempty"`
	IsActive               bool      `json:"isActive"`
	IsEmailVerified        bool      `json:"isEmailVerified"`
	IsTwoFactorAuthEnabled bool      `json:"isTwoFactorAuthEnabled"`
	OAuthProvider          string    `json:"oauthProvider,omitempty"`
	OAuthID                string    `json:"-"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// HasPassword reports whether the user can log in with a password.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// UserUpdate lists the fields an update may touch. Nil means unchanged.
// PasswordHash is set by the service after hashing, never from a request.
type UserUpdate struct {
	Name                   *string
	Email                  *string
	PasswordHash           *string
	Role                   *Role
	PhoneNumber            *string
	ProfilePicture         *string
	IsActive               *bool
	IsEmailVerified        *bool
	IsTwoFactorAuthEnabled *bool
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.PasswordHash == nil && u.Role == nil &&
		u.PhoneNumber == nil && u.ProfilePicture == nil && u.IsActive == nil &&
		u.IsEmailVerified == nil && u.IsTwoFactorAuthEnabled == nil
}

// Apply copies the set fields onto u.
func (u UserUpdate) Apply(user *User) {
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
	if u.Role != nil {
		user.Role = *u.Role
	}
	if u.PhoneNumber != nil {
		user.PhoneNumber = *u.PhoneNumber
	}
	if u.ProfilePicture != nil {
		user.ProfilePicture = *u.ProfilePicture
	}
	if u.IsActive != nil {
		user.IsActive = *u.IsActive
	}
	if u.IsEmailVerified != nil {
		user.IsEmailVerified = *u.IsEmailVerified
	}
	if u.IsTwoFactorAuthEnabled != nil {
		user.IsTwoFactorAuthEnabled = *u.IsTwoFactorAuthEnabled
	}
}

// UserQuery drives the paginated user listing.
type UserQuery struct {
	Search string // free text over name, email and role
	SortBy string // name | role | createdAt, "-" prefix for descending
	Limit  int
	Page   int
	Offset int // wins over Page when > 0
}
