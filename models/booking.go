package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Booking struct {
	ID           string        `json:"id"                 gorm:"primaryKey"`
	UserID       string        `json:"userId"             gorm:"index;not null"`
	PropertyID   string        `json:"propertyId"         gorm:"index;not null"`
	Property     *Property     `json:"property,omitempty"`
	CheckInDate  time.Time     `json:"checkInDate"`
	CheckOutDate time.Time     `json:"checkOutDate"`
	TotalPrice   float64       `json:"totalPrice"`
	Status       BookingStatus `json:"status"             gorm:"index;not null;default:'pending'"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type BookingStatus string

const (
	PENDING  BookingStatus = "pending"
	ACCEPTED BookingStatus = "accepted"
	REJECTED BookingStatus = "rejected"
)

// Terminal reports whether the status ends the workflow.
func (s BookingStatus) Terminal() bool {
	return s == ACCEPTED || s == REJECTED
}

// Nights is the stay length in whole nights, rounding partial days up.
// Reversed or equal dates give zero or a negative count.
func Nights(checkIn, checkOut time.Time) int64 {
	return int64(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
}
