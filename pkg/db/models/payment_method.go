package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelarsolis/expresspay-backend/pkg/enums"
)

// PaymentMethod is the store-configured express-checkout payment option.
type PaymentMethod struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name   string    `gorm:"column:name;not null"`
	Active bool      `gorm:"column:active;not null;default:true"`
	// PreferredSolutionType, PreferredLandingPage, and PreferredLogoURL are
	// merchant preferences; empty values fall back to the gateway defaults.
	PreferredSolutionType *enums.SolutionType `gorm:"column:preferred_solution_type;type:text"`
	PreferredLandingPage  *enums.LandingPage  `gorm:"column:preferred_landing_page;type:text"`
	PreferredLogoURL      *string             `gorm:"column:preferred_logo_url"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
