package handlers

import (
	"time"

	"github.com/pribylovaa/rideshare-auth/internal/models"
)

type registerRequest struct {
	UniversityID string `json:"university_id"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Name         string `json:"name"`
	Password     string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID           string    `json:"id"`
	UniversityID string    `json:"university_id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type pairResponse struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type authResponse struct {
	Message string `json:"message"`
	pairResponse
	User userResponse `json:"user"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func userFromModel(a *models.Account) userResponse {
	return userResponse{
		ID:           a.ID,
		UniversityID: a.UniversityID,
		Email:        a.Email,
		Phone:        a.Phone,
		Name:         a.Name,
		Role:         a.Role,
		CreatedAt:    a.CreatedAt,
	}
}

func pairFromModel(p *models.TokenPair) pairResponse {
	return pairResponse{
		AccessToken:     p.AccessToken,
		RefreshToken:    p.RefreshToken,
		AccessExpiresAt: p.AccessExpiresAt,
	}
}
