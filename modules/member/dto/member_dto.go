package dto

// MemberResponse represents a team member
type MemberResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Color string `json:"color"`
}

// MemberListResponse represents the roster
type MemberListResponse struct {
	Members []MemberResponse `json:"members"`
}

// CreateMemberRequest creates a roster entry
type CreateMemberRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Color string `json:"color"`
}
