// internal/models/sponsor.go
package models

type SponsorApplication struct {
	BaseModel
	CompanyName         string        `json:"company_name" gorm:"size:255;not null"`
	ContactName         string        `json:"contact_name" gorm:"size:255;not null"`
	Position            string        `json:"position" gorm:"size:255"`
	ContactEmail        string        `json:"contact_email" gorm:"size:255;not null"`
	ContactPhone        string        `json:"contact_phone" gorm:"size:50"`
	ProposalDescription string        `json:"proposal_description" gorm:"type:text;not null"`
	Documentation       string        `json:"documentation" gorm:"type:text"`
	Status              SponsorStatus `json:"status" gorm:"type:varchar(20);not null;default:'NEW';index"`
}
