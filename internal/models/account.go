package models

import "time"

// Роли аккаунтов.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account — учётная запись пользователя сервиса поездок.
type Account struct {
	ID           string
	UniversityID string
	Email        string
	Phone        string
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// Claims возвращает набор утверждений для выпуска токенов этого аккаунта.
func (a *Account) Claims() Claims {
	return Claims{
		AccountID: a.ID,
		Email:     a.Email,
		Role:      a.Role,
		Name:      a.Name,
	}
}
