package dto

// AdminUserListRequest defines filters for listing personnel.
type AdminUserListRequest struct {
	Page     int
	PageSize int
	Search   string
	Status   string
	Unit     string
}

// AdminUserListResponse wraps a filtered page of personnel records.
type AdminUserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// StatusChangeRequest updates the status of an existing personnel record.
type StatusChangeRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active rejected locked"`
	Reason string `json:"reason" validate:"omitempty,max=512"`
}

// RejectUserRequest carries the optional rejection reason shown to the user.
type RejectUserRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=512"`
}

// ImportUsersRequest is the schema-validated bulk import payload.
type ImportUsersRequest struct {
	Users []ImportUserRecord `json:"users"`
}

// ImportUserRecord is a single personnel record inside a bulk import.
type ImportUserRecord struct {
	ServiceNumber string `json:"service_number"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Rank          string `json:"rank,omitempty"`
	Unit          string `json:"unit,omitempty"`
}

// ImportUsersResponse reports how many records were created or skipped.
type ImportUsersResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}
