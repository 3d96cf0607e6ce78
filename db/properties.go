package db

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/dzoniops/rental-service/models"
)

// PropertyFilter narrows a property listing. Zero values disable a criterion.
type PropertyFilter struct {
	Query       string
	Location    string
	MinPrice    float64
	MaxPrice    float64
	Amenities   []string
	SortByPrice bool
}

type PropertyStore struct {
	db *gorm.DB
}

func NewPropertyStore(db *gorm.DB) *PropertyStore {
	return &PropertyStore{db: db}
}

func (s *PropertyStore) FindByID(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	if err := s.db.WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &property, nil
}

func (s *PropertyStore) List(ctx context.Context, f PropertyFilter) ([]models.Property, error) {
	q := s.db.WithContext(ctx).Model(&models.Property{})
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(location) LIKE ? OR LOWER(description) LIKE ?",
			like, like, like,
		)
	}
	if f.Location != "" {
		q = q.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(f.Location)+"%")
	}
	if f.MinPrice > 0 {
		q = q.Where("price_per_night >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		q = q.Where("price_per_night <= ?", f.MaxPrice)
	}
	if f.SortByPrice {
		q = q.Order("price_per_night ASC")
	} else {
		q = q.Order("created_at ASC")
	}

	var properties []models.Property
	if err := q.Find(&properties).Error; err != nil {
		return nil, translate(err)
	}
	if len(f.Amenities) == 0 {
		return properties, nil
	}
	// amenities are stored serialized, so the set test runs here
	filtered := properties[:0]
	for i := range properties {
		if properties[i].HasAmenities(f.Amenities) {
			filtered = append(filtered, properties[i])
		}
	}
	return filtered, nil
}

func (s *PropertyStore) Create(ctx context.Context, property *models.Property) error {
	return translate(s.db.WithContext(ctx).Create(property).Error)
}

// Update writes every column of property. A property that no longer exists
// is reported as ErrNotFound and is not re-created.
func (s *PropertyStore) Update(ctx context.Context, property *models.Property) error {
	res := s.db.WithContext(ctx).Model(property).Select("*").Updates(property)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the property together with the bookings made against it.
func (s *PropertyStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property models.Property
		if err := tx.First(&property, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("property_id = ?", id).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		return tx.Delete(&property).Error
	})
}
