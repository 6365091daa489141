package transport

import "github.com/Skotchmaster/inventory_api/internal/models"

type CredentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type MessageResponse struct {
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type ItemsResponse struct {
	Results []models.InventoryItem `json:"results"`
	Page    int                    `json:"page"`
	Size    int                    `json:"size"`
	Count   int64                  `json:"count"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
