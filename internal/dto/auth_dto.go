package dto

import "time"

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"`
	User         AccountResponse `json:"user"`
}

type AccountResponse struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	ShopName            string     `json:"shop_name"`
	Timezone            string     `json:"timezone"`
	IsVerified          bool       `json:"is_verified"`
	IsPendingDeletion   bool       `json:"is_pending_deletion"`
	DeletionRequestedAt *time.Time `json:"deletion_requested_at,omitempty"`
	// PurgeAfter is when a pending deletion becomes final.
	PurgeAfter *time.Time `json:"purge_after,omitempty"`
}

type UpdateAccountRequest struct {
	ShopName *string `json:"shop_name" validate:"omitempty,min=1,max=100"`
	Timezone *string `json:"timezone"  validate:"omitempty,max=64"`
}
