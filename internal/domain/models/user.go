package models

import "time"

type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"email_verified"`
	Image         *string    `json:"image,omitempty"`
	Role          string     `json:"role"`
	Banned        bool       `json:"banned"`
	BanReason     *string    `json:"ban_reason,omitempty"`
	BanExpires    *time.Time `json:"ban_expires,omitempty"`
	PasswordHash  string     `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PublicUser is the user payload sent to the frontend.
type PublicUser struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"email_verified"`
	Image         *string    `json:"image,omitempty"`
	Role          string     `json:"role"`
	Banned        bool       `json:"banned"`
	BanReason     *string    `json:"ban_reason,omitempty"`
	BanExpires    *time.Time `json:"ban_expires,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (u *User) ToPublic() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
		Role:          u.Role,
		Banned:        u.Banned,
		BanReason:     u.BanReason,
		BanExpires:    u.BanExpires,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
