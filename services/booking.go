package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dzoniops/rental-service/auth"
	"github.com/dzoniops/rental-service/db"
	"github.com/dzoniops/rental-service/metrics"
	"github.com/dzoniops/rental-service/models"
	"github.com/dzoniops/rental-service/utils"
)

const tracerName = "github.com/dzoniops/rental-service/services"

const ActionAccept = "accept"

type PropertyFinder interface {
	FindByID(ctx context.Context, id string) (*models.Property, error)
}

type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindAllByUserID(ctx context.Context, userID string) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
	CompareAndSetStatus(ctx context.Context, id string, from, to models.BookingStatus) (bool, error)
}

type CreateBookingInput struct {
	PropertyID   string `json:"propertyId"   validate:"notblank"`
	CheckInDate  string `json:"checkInDate"  validate:"required,date"`
	CheckOutDate string `json:"checkOutDate" validate:"required,date"`
}

type TransitionBookingInput struct {
	BookingID string `json:"bookingId" validate:"notblank"`
	Action    string `json:"action"    validate:"required"`
}

type BookingService struct {
	properties PropertyFinder
	bookings   BookingStore
	logger     log.Logger
	tracer     trace.Tracer
	metrics    *metrics.Metrics
	strict     bool
}

type BookingOption func(*BookingService)

func WithBookingLogger(l log.Logger) BookingOption {
	return func(s *BookingService) { s.logger = l }
}

func WithBookingMetrics(m *metrics.Metrics) BookingOption {
	return func(s *BookingService) { s.metrics = m }
}

// WithStrictTransitions makes TransitionBooking fail with ErrConflict unless
// the booking is still pending when the update is applied.
func WithStrictTransitions(strict bool) BookingOption {
	return func(s *BookingService) { s.strict = strict }
}

func NewBookingService(properties PropertyFinder, bookings BookingStore, opts ...BookingOption) *BookingService {
	s := &BookingService{
		properties: properties,
		bookings:   bookings,
		logger:     log.NewNopLogger(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking records a pending booking priced at the stay length in whole
// nights times the nightly price. The dates are not checked for order, so a
// reversed range yields a zero or negative price.
func (s *BookingService) CreateBooking(
	ctx context.Context,
	id *auth.Identity,
	in CreateBookingInput,
) (*models.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.CreateBooking")
	defer span.End()

	if id == nil {
		return nil, ErrUnauthenticated
	}
	if err := utils.Validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.ValidationMessage(err))
	}
	checkIn, err := utils.ParseDate(in.CheckInDate)
	if err != nil {
		return nil, fmt.Errorf("%w: checkInDate: %v", ErrInvalidInput, err)
	}
	checkOut, err := utils.ParseDate(in.CheckOutDate)
	if err != nil {
		return nil, fmt.Errorf("%w: checkOutDate: %v", ErrInvalidInput, err)
	}

	property, err := s.properties.FindByID(ctx, in.PropertyID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("find property %s: %w", in.PropertyID, err)
	}

	booking := &models.Booking{
		UserID:       id.ID,
		PropertyID:   property.ID,
		CheckInDate:  checkIn,
		CheckOutDate: checkOut,
		TotalPrice:   TotalPrice(checkIn, checkOut, property.PricePerNight),
		Status:       models.PENDING,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create booking: %w", err)
	}
	span.SetAttributes(attribute.String("booking.id", booking.ID))
	s.metrics.BookingCreated()
	level.Info(s.logger).Log(
		"msg", "booking created",
		"booking", booking.ID,
		"property", property.ID,
		"user", id.ID,
		"total", booking.TotalPrice,
	)
	return booking, nil
}

// ListBookingsForUser returns the bookings made by the caller. Bookings
// received on the caller's own properties are not included.
func (s *BookingService) ListBookingsForUser(ctx context.Context, id *auth.Identity) ([]models.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.ListBookingsForUser")
	defer span.End()

	if id == nil {
		return nil, ErrUnauthenticated
	}
	bookings, err := s.bookings.FindAllByUserID(ctx, id.ID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

// TransitionBooking accepts or rejects a booking on behalf of the property
// owner or an administrator. Any action other than "accept" rejects.
func (s *BookingService) TransitionBooking(
	ctx context.Context,
	id *auth.Identity,
	in TransitionBookingInput,
) (*models.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.TransitionBooking")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", in.BookingID))

	if id == nil {
		return nil, ErrUnauthenticated
	}
	if err := utils.Validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.ValidationMessage(err))
	}

	booking, err := s.bookings.FindByID(ctx, in.BookingID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("find booking %s: %w", in.BookingID, err)
	}
	if booking.Property == nil {
		if booking.Property, err = s.properties.FindByID(ctx, booking.PropertyID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, ErrBookingNotFound
			}
			return nil, fmt.Errorf("find property %s: %w", booking.PropertyID, err)
		}
	}

	if !CanManageBooking(id, booking) {
		level.Warn(s.logger).Log("msg", "booking transition denied", "booking", booking.ID, "user", id.ID)
		return nil, ErrForbidden
	}

	status := StatusForAction(in.Action)
	if s.strict {
		changed, err := s.bookings.CompareAndSetStatus(ctx, booking.ID, models.PENDING, status)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("update booking %s: %w", booking.ID, err)
		}
		if !changed {
			return nil, ErrConflict
		}
	} else if err := s.bookings.UpdateStatus(ctx, booking.ID, status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("update booking %s: %w", booking.ID, err)
	}

	booking.Status = status
	booking.UpdatedAt = time.Now()
	s.metrics.BookingTransitioned(status)
	level.Info(s.logger).Log(
		"msg", "booking status changed",
		"booking", booking.ID,
		"status", status,
		"by", id.ID,
		"admin", id.IsAdmin,
	)
	return booking, nil
}

// CanManageBooking reports whether id may accept or reject the booking: the
// owner of the booked property and administrators may.
func CanManageBooking(id *auth.Identity, booking *models.Booking) bool {
	if booking == nil {
		return false
	}
	return CanManageProperty(id, booking.Property)
}

func CanManageProperty(id *auth.Identity, property *models.Property) bool {
	if id == nil || property == nil {
		return false
	}
	return id.IsAdmin || property.OwnerID == id.ID
}

func StatusForAction(action string) models.BookingStatus {
	if action == ActionAccept {
		return models.ACCEPTED
	}
	return models.REJECTED
}

func TotalPrice(checkIn, checkOut time.Time, pricePerNight float64) float64 {
	return float64(models.Nights(checkIn, checkOut)) * pricePerNight
}
