package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dzoniops/rental-service/models"
)

type BookingStore struct {
	db *gorm.DB
}

func NewBookingStore(db *gorm.DB) *BookingStore {
	return &BookingStore{db: db}
}

func (s *BookingStore) Create(ctx context.Context, booking *models.Booking) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error)
}

// FindByID returns the booking joined with its property.
func (s *BookingStore) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).Preload("Property").First(&booking, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

// FindAllByUserID returns the bookings requested by userID in creation order.
func (s *BookingStore) FindAllByUserID(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Property").
		Where(&models.Booking{UserID: userID}).
		Order("created_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

func (s *BookingStore) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompareAndSetStatus moves the booking to status only if it is currently in
// from. It reports whether the row was changed.
func (s *BookingStore) CompareAndSetStatus(
	ctx context.Context,
	id string,
	from, to models.BookingStatus,
) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}
