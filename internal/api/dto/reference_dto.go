package dto

// MinistryRequest payload.
type MinistryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DepartmentRequest payload.
type DepartmentRequest struct {
	MinistryID  string `json:"ministry"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MinistryResponse representation.
type MinistryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DepartmentResponse representation.
type DepartmentResponse struct {
	ID          string `json:"id"`
	MinistryID  string `json:"ministry"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
