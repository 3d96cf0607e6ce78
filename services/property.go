package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dzoniops/rental-service/auth"
	"github.com/dzoniops/rental-service/db"
	"github.com/dzoniops/rental-service/models"
	"github.com/dzoniops/rental-service/storage"
	"github.com/dzoniops/rental-service/utils"
)

type PropertyStore interface {
	PropertyFinder
	List(ctx context.Context, f db.PropertyFilter) ([]models.Property, error)
	Create(ctx context.Context, property *models.Property) error
	Update(ctx context.Context, property *models.Property) error
	Delete(ctx context.Context, id string) error
}

// ImageSaver persists uploaded images and returns their public URLs. Save
// picks a fresh name keeping the extension; SaveNamed keeps the original name
// behind a unique prefix.
type ImageSaver interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	SaveNamed(ctx context.Context, filename string, r io.Reader) (string, error)
}

// PropertyCache is a read-through cache in front of property lookups. A miss
// is reported as (nil, nil).
type PropertyCache interface {
	Get(ctx context.Context, id string) (*models.Property, error)
	Set(ctx context.Context, property *models.Property) error
	Invalidate(ctx context.Context, id string) error
}

type ImageUpload struct {
	Filename string
	Body     io.Reader
}

type PropertyInput struct {
	Name          string   `json:"name"          validate:"notblank"`
	Description   string   `json:"description"   validate:"notblank"`
	Location      string   `json:"location"      validate:"notblank"`
	PricePerNight float64  `json:"pricePerNight" validate:"gt=0"`
	Amenities     []string `json:"amenities"`
	OwnerID       string   `json:"ownerId"`
}

type PropertyService struct {
	store  PropertyStore
	images ImageSaver
	cache  PropertyCache
	logger log.Logger
	tracer trace.Tracer
}

func NewPropertyService(store PropertyStore, images ImageSaver, cache PropertyCache, logger log.Logger) *PropertyService {
	return &PropertyService{
		store:  store,
		images: images,
		cache:  cache,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *PropertyService) List(ctx context.Context, f db.PropertyFilter) ([]models.Property, error) {
	ctx, span := s.tracer.Start(ctx, "PropertyService.List")
	defer span.End()

	properties, err := s.store.List(ctx, f)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list properties: %w", err)
	}
	if properties == nil {
		properties = []models.Property{}
	}
	return properties, nil
}

func (s *PropertyService) Get(ctx context.Context, id string) (*models.Property, error) {
	ctx, span := s.tracer.Start(ctx, "PropertyService.Get")
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			level.Warn(s.logger).Log("msg", "property cache read failed", "property", id, "err", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	property, err := s.store.FindByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("find property %s: %w", id, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, property); err != nil {
			level.Warn(s.logger).Log("msg", "property cache write failed", "property", id, "err", err)
		}
	}
	return property, nil
}

// Create lists a new property owned by the caller. Administrators may name a
// different owner.
func (s *PropertyService) Create(
	ctx context.Context,
	id *auth.Identity,
	in PropertyInput,
	images []ImageUpload,
) (*models.Property, error) {
	ctx, span := s.tracer.Start(ctx, "PropertyService.Create")
	defer span.End()

	if id == nil {
		return nil, ErrUnauthenticated
	}
	if err := utils.Validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.ValidationMessage(err))
	}
	if !finite(in.PricePerNight) {
		return nil, fmt.Errorf("%w: pricePerNight must be a finite number", ErrInvalidInput)
	}
	owner := id.ID
	if in.OwnerID != "" && in.OwnerID != id.ID {
		if !id.IsAdmin {
			return nil, ErrForbidden
		}
		owner = in.OwnerID
	}

	urls, err := s.saveImages(ctx, images)
	if err != nil {
		return nil, err
	}
	property := &models.Property{
		Name:          strings.TrimSpace(in.Name),
		Description:   strings.TrimSpace(in.Description),
		Location:      strings.TrimSpace(in.Location),
		PricePerNight: in.PricePerNight,
		ImageUrls:     urls,
		Amenities:     CleanAmenities(in.Amenities),
		OwnerID:       owner,
	}
	if err := s.store.Create(ctx, property); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create property: %w", err)
	}
	level.Info(s.logger).Log("msg", "property created", "property", property.ID, "owner", owner)
	return property, nil
}

// Update changes the non-empty fields of in. Amenities are replaced when
// in.Amenities is non-nil, and images are replaced when new ones are uploaded.
func (s *PropertyService) Update(
	ctx context.Context,
	id *auth.Identity,
	propertyID string,
	in PropertyInput,
	images []ImageUpload,
) (*models.Property, error) {
	ctx, span := s.tracer.Start(ctx, "PropertyService.Update")
	defer span.End()

	if id == nil {
		return nil, ErrUnauthenticated
	}
	if in.PricePerNight < 0 {
		return nil, fmt.Errorf("%w: pricePerNight must be greater than 0", ErrInvalidInput)
	}
	if !finite(in.PricePerNight) {
		return nil, fmt.Errorf("%w: pricePerNight must be a finite number", ErrInvalidInput)
	}
	property, err := s.authorize(ctx, id, propertyID)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(in.Name); v != "" {
		property.Name = v
	}
	if v := strings.TrimSpace(in.Description); v != "" {
		property.Description = v
	}
	if v := strings.TrimSpace(in.Location); v != "" {
		property.Location = v
	}
	if in.PricePerNight > 0 {
		property.PricePerNight = in.PricePerNight
	}
	if in.Amenities != nil {
		property.Amenities = CleanAmenities(in.Amenities)
	}
	if len(images) > 0 {
		if property.ImageUrls, err = s.saveImages(ctx, images); err != nil {
			return nil, err
		}
	}

	if err := s.store.Update(ctx, property); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrPropertyNotFound
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("update property %s: %w", propertyID, err)
	}
	s.invalidate(ctx, propertyID)
	return property, nil
}

func (s *PropertyService) Delete(ctx context.Context, id *auth.Identity, propertyID string) error {
	ctx, span := s.tracer.Start(ctx, "PropertyService.Delete")
	defer span.End()

	if id == nil {
		return ErrUnauthenticated
	}
	if _, err := s.authorize(ctx, id, propertyID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, propertyID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrPropertyNotFound
		}
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete property %s: %w", propertyID, err)
	}
	s.invalidate(ctx, propertyID)
	level.Info(s.logger).Log("msg", "property deleted", "property", propertyID, "by", id.ID)
	return nil
}

// Upload stores a single image and returns its public URL.
func (s *PropertyService) Upload(ctx context.Context, id *auth.Identity, image ImageUpload) (string, error) {
	if id == nil {
		return "", ErrUnauthenticated
	}
	url, err := s.images.SaveNamed(ctx, image.Filename, image.Body)
	if errors.Is(err, storage.ErrUnsupportedImage) {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return "", fmt.Errorf("save image %q: %w", image.Filename, err)
	}
	return url, nil
}

func (s *PropertyService) authorize(ctx context.Context, id *auth.Identity, propertyID string) (*models.Property, error) {
	property, err := s.store.FindByID(ctx, propertyID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find property %s: %w", propertyID, err)
	}
	if !CanManageProperty(id, property) {
		return nil, ErrForbidden
	}
	return property, nil
}

func (s *PropertyService) saveImages(ctx context.Context, images []ImageUpload) ([]string, error) {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		url, err := s.images.Save(ctx, img.Filename, img.Body)
		if errors.Is(err, storage.ErrUnsupportedImage) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if err != nil {
			return nil, fmt.Errorf("save image %q: %w", img.Filename, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *PropertyService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		level.Warn(s.logger).Log("msg", "property cache invalidation failed", "property", id, "err", err)
	}
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// CleanAmenities trims entries and drops blanks and duplicates, keeping order.
func CleanAmenities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
