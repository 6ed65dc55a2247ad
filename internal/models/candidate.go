package models

import "time"

type SocialLinks struct {
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Candidate references its poll by id only; deleting the poll leaves it in place.
type Candidate struct {
	ID          string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string      `gorm:"not null" json:"name"`
	Biography   string      `gorm:"type:text" json:"biography"`
	Proposals   string      `gorm:"type:text" json:"proposals"`
	SocialLinks SocialLinks `gorm:"embedded;embeddedPrefix:social_" json:"social_links"`
	PhotoURL    string      `json:"photo_url"`
	PollID      string      `gorm:"type:varchar(36);index" json:"poll_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type CandidateInput struct {
	Name        string      `json:"name"`
	Biography   string      `json:"biography"`
	Proposals   string      `json:"proposals"`
	SocialLinks SocialLinks `json:"social_links"`
	PhotoURL    string      `json:"photo_url"`
	PollID      string      `json:"poll_id"`
}
