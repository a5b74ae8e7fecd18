package dto

// ListMeta is embedded in every paginated list response.
type ListMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// FlashMessage is a one-shot notice carried across a redirect.
type FlashMessage struct {
	Type    string `json:"type"` // success | error | info
	Message string `json:"message"`
}

// SuccessResponse is the minimal success envelope of the JSON endpoints.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
