package users

import "github.com/openshelf/circulation-backend/pkg/db/models"

// CreateUserDTO carries the fields needed to register a borrower identity.
// The hash arrives pre-computed; this core never sees raw credentials.
type CreateUserDTO struct {
	Username     string
	Email        string
	PasswordHash string
	Role         string
}

func (d CreateUserDTO) ToModel() *models.User {
	role := d.Role
	if role == "" {
		role = "USER"
	}
	return &models.User{
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         role,
	}
}
