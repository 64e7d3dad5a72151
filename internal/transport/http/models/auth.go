// Входные/выходные модели REST-слоя и их преобразование в доменные модели.
package models

import "github.com/pribylovaa/go-ecommerce-catalog/internal/models"

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func UserFromDomain(u *models.User) UserResponse {
	if u == nil {
		return UserResponse{}
	}

	return UserResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
	}
}

func TokenPairFromDomain(p *models.TokenPair) TokenPairResponse {
	if p == nil {
		return TokenPairResponse{}
	}

	return TokenPairResponse{
		Access:  p.AccessToken,
		Refresh: p.RefreshToken,
	}
}
