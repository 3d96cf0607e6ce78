package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Property struct {
	ID            string    `json:"id"            gorm:"primaryKey"`
	Name          string    `json:"name"          gorm:"not null"`
	Description   string    `json:"description"`
	Location      string    `json:"location"      gorm:"index"`
	PricePerNight float64   `json:"pricePerNight" gorm:"not null"`
	ImageUrls     []string  `json:"imageUrls"     gorm:"serializer:json"`
	Amenities     []string  `json:"amenities"     gorm:"serializer:json"`
	OwnerID       string    `json:"ownerId"       gorm:"index;not null"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p *Property) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// HasAmenities reports whether every amenity in want is offered by the property.
func (p *Property) HasAmenities(want []string) bool {
	offered := make(map[string]struct{}, len(p.Amenities))
	for _, a := range p.Amenities {
		offered[a] = struct{}{}
	}
	for _, a := range want {
		if _, ok := offered[a]; !ok {
			return false
		}
	}
	return true
}
