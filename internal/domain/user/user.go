package user

import (
	"time"

	"github.com/google/uuid"
)

type Avatar struct {
	PublicID string `json:"public_id,omitempty"`
	URL      string `json:"url,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Avatar       Avatar    `json:"avatar"`
	Role         string    `json:"role"`
	IsVerified   bool      `json:"isVerified"`
	Courses      []string  `json:"courses"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Candidate is a pending registration. It only exists inside an activation
// token until the activation code is confirmed; nothing is persisted for it.
type Candidate struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type ActivateRequest struct {
	ActivationToken string `json:"activation_token" binding:"required"`
	ActivationCode  string `json:"activation_code" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// A factory to build a verified User from a confirmed candidate.

func NewFromCandidate(c Candidate, passwordHash string) User {
	now := time.Now().UTC()
	return User{
		ID:           uuid.NewString(),
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: passwordHash,
		Role:         "user",
		IsVerified:   true,
		Courses:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
