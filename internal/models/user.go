package models

import "time"

type Role struct {
	IsAdmin bool `gorm:"not null" json:"is_admin"`
	IsVoter bool `gorm:"not null" json:"is_voter"`
}

// DefaultRole is what an identity without a stored role gets.
var DefaultRole = Role{IsAdmin: false, IsVoter: true}

const (
	ProviderEmail    = "email"
	ProviderGoogle   = "google"
	ProviderFirebase = "firebase"
)

type User struct {
	ID           string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName  string `json:"display_name"`
	PasswordHash string `json:"-"`
	Avatar       string `json:"avatar"`

	GoogleID     string `gorm:"index" json:"-"`
	FirebaseUID  string `gorm:"index" json:"-"`
	AuthProvider string `json:"auth_provider"`

	Role Role `gorm:"embedded;embeddedPrefix:role_" json:"role"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenRequest struct {
	Token       string `json:"token" binding:"required"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

type RoleRequest struct {
	IsAdmin *bool `json:"is_admin"`
	IsVoter *bool `json:"is_voter"`
}

// ProfileRequest updates the caller's own profile; nil fields are left alone.
type ProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Avatar      *string `json:"avatar"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message"`
}
