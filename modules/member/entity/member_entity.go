package entity

import "crm-calendar-api/core/entity"

// Member is one row of the team roster. Color is the display color the
// calendar UI renders this member's events in.
type Member struct {
	entity.BaseEntity
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	Color    string `db:"color" json:"color"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

func (Member) TableName() string {
	return "members"
}
