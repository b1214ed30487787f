package authsdk

import "time"

// Response is the envelope every endpoint answers with.
type Response[T any] struct {
	Success bool              `json:"success"`
	Code    int               `json:"code"`
	Message string            `json:"message,omitempty"`
	Data    T                 `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool              `json:"success" example:"false"`
	Code    int               `json:"code" example:"401"`
	Message string            `json:"message" example:"Please authenticate"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// MessageResponse is a success envelope without data.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Code    int    `json:"code" example:"200"`
	Message string `json:"message" example:"Pong!!"`
}

// ============================================================================
// Health
// ============================================================================

type HealthChecks struct {
	Database string `json:"database,omitempty"`
	Limiter  string `json:"limiter,omitempty"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// ============================================================================
// Users
// ============================================================================

// User is the public view of an account.
type User struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Username               string    `json:"username"`
	Email                  string    `json:"email"`
	Role                   string    `json:"role" enums:"USER,EDITOR,ADMIN"`
	PhoneNumber            string    `json:"phoneNumber,omitempty"`
	ProfilePicture         string    `json:"profilePicture,omitempty"`
	IsActive               bool      `json:"isActive"`
	IsEmailVerified        bool      `json:"isEmailVerified"`
	IsTwoFactorAuthEnabled bool      `json:"isTwoFactorAuthEnabled"`
	OAuthProvider          string    `json:"oauthProvider,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// UserPage is one page of GET /v1/users.
type UserPage struct {
	Docs        []User `json:"docs"`
	TotalDocs   int    `json:"totalDocs"`
	Page        int    `json:"page"`
	Limit       int    `json:"limit"`
	TotalPages  int    `json:"totalPages"`
	HasPrevPage bool   `json:"hasPrevPage"`
	HasNextPage bool   `json:"hasNextPage"`
	PrevPage    *int   `json:"prevPage"`
	NextPage    *int   `json:"nextPage"`
	PageCounter int    `json:"pageCounter"`
}

type UserData struct {
	User User `json:"user"`
}

type UsersData struct {
	Users UserPage `json:"users"`
}

// UserQuery filters and pages GET /v1/users. Zero values are left out.
type UserQuery struct {
	Search string
	SortBy string // name, role or createdAt; "-" prefix for descending
	Limit  int
	Page   int
	Offset int
}

type CreateUserRequest struct {
	Name        string `json:"name" example:"Alice Liddell"`
	Username    string `json:"username" example:"alice"`
	Email       string `json:"email" example:"alice@example.com"`
	Password    string `json:"password" example:"S3cret!pass"`
	PhoneNumber string `json:"phoneNumber,omitempty" example:"+61400000000"`
	Role        string `json:"role,omitempty" enums:"USER,EDITOR,ADMIN"`
}

// UpdateUserRequest changes only the fields that are set.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty" enums:"USER,EDITOR,ADMIN"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// ============================================================================
// Auth
// ============================================================================

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthData is returned by register, login, refresh, OTP verification and the
// OAuth callbacks. User is omitted where the original request had no user.
type AuthData struct {
	User   *User  `json:"user,omitempty"`
	Tokens Tokens `json:"tokens"`
}

// OTPChallenge is returned instead of tokens when a code is needed.
type OTPChallenge struct {
	OTPID      string `json:"otp_id"`
	OTPAuthURL string `json:"otpauth_url,omitempty"`
}

type RegisterRequest struct {
	Name        string `json:"name" example:"Alice Liddell"`
	Username    string `json:"username" example:"alice"`
	Email       string `json:"email" example:"alice@example.com"`
	Password    string `json:"password" example:"S3cret!pass"`
	PhoneNumber string `json:"phoneNumber,omitempty" example:"+61400000000"`
	Role        string `json:"role,omitempty" enums:"USER"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"S3cret!pass"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" example:"alice@example.com"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" example:"N3w!password"`
}

// SendOTPRequest turns the second factor on or off.
type SendOTPRequest struct {
	Enabled bool   `json:"enabled"`
	SendOTP string `json:"send_otp,omitempty" enums:"email,sms,google-authenticator"`
}

type VerifyOTPRequest struct {
	OTPID   string `json:"otp_id"`
	OTPCode string `json:"otp_code" example:"123456"`
}

type ResendOTPRequest struct {
	OTPID string `json:"otp_id"`
}
