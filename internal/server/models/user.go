// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the full stored identity. PasswordHash and RefreshToken must never
// leave the server; use Public for anything returned to a caller.
type User struct {
	ID           string
	UserName     string
	Email        string
	FullName     string
	Avatar       string
	CoverImage   string
	PasswordHash string
	// RefreshToken is the single active refresh-token slot; empty when logged out.
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the read projection of User.
type PublicUser struct {
	ID         string    `json:"_id"`
	UserName   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		UserName:   u.UserName,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// NewUser carries the fields required to create an identity.
type NewUser struct {
	UserName     string
	Email        string
	FullName     string
	Avatar       string
	CoverImage   string
	PasswordHash string
}
