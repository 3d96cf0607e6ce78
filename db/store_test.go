package db

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dzoniops/rental-service/config"
	"github.com/dzoniops/rental-service/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	conn, err := Open(config.Database{Driver: "sqlite", SQLitePath: ":memory:"}, log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))
	return conn
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(config.Database{Driver: "oracle"}, log.NewNopLogger())
	require.Error(t, err)
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore(setupTestDB(t))

	u := &models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	byEmail, err := users.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	_, err = users.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	err = users.Create(ctx, &models.User{Name: "Other", Email: "ana@example.com", PasswordHash: "y"})
	require.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, users.SetAdmin(ctx, u.ID, true))
	byID, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, byID.IsAdmin)

	require.ErrorIs(t, users.SetAdmin(ctx, "missing", true), ErrNotFound)
}

func TestPropertyStoreList(t *testing.T) {
	ctx := context.Background()
	properties := NewPropertyStore(setupTestDB(t))

	for _, p := range []*models.Property{
		{Name: "Sea view", Location: "Split", PricePerNight: 120, Amenities: []string{"wifi", "pool"}, OwnerID: "o1"},
		{Name: "Old town loft", Location: "Dubrovnik", PricePerNight: 80, Amenities: []string{"wifi"}, OwnerID: "o1"},
		{Name: "Cabin", Description: "Quiet forest stay", Location: "Zlatibor", PricePerNight: 40, OwnerID: "o2"},
	} {
		require.NoError(t, properties.Create(ctx, p))
	}

	all, err := properties.List(ctx, PropertyFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	cheap, err := properties.List(ctx, PropertyFilter{MaxPrice: 100, SortByPrice: true})
	require.NoError(t, err)
	require.Len(t, cheap, 2)
	require.Equal(t, "Cabin", cheap[0].Name)

	withPool, err := properties.List(ctx, PropertyFilter{Amenities: []string{"wifi", "pool"}})
	require.NoError(t, err)
	require.Len(t, withPool, 1)
	require.Equal(t, "Sea view", withPool[0].Name)

	forest, err := properties.List(ctx, PropertyFilter{Query: "FOREST"})
	require.NoError(t, err)
	require.Len(t, forest, 1)

	split, err := properties.List(ctx, PropertyFilter{Location: "spl", MinPrice: 100})
	require.NoError(t, err)
	require.Len(t, split, 1)
	require.Equal(t, []string{"wifi", "pool"}, split[0].Amenities)
}

func TestPropertyDeleteRemovesBookings(t *testing.T) {
	ctx := context.Background()
	conn := setupTestDB(t)
	properties := NewPropertyStore(conn)
	bookings := NewBookingStore(conn)

	p := &models.Property{Name: "Flat", Location: "Novi Sad", PricePerNight: 50, OwnerID: "o1"}
	require.NoError(t, properties.Create(ctx, p))
	b := &models.Booking{UserID: "u1", PropertyID: p.ID, Status: models.PENDING}
	require.NoError(t, bookings.Create(ctx, b))

	require.NoError(t, properties.Delete(ctx, p.ID))
	_, err := bookings.FindByID(ctx, b.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, properties.Delete(ctx, p.ID), ErrNotFound)
}

func TestBookingStore(t *testing.T) {
	ctx := context.Background()
	conn := setupTestDB(t)
	properties := NewPropertyStore(conn)
	bookings := NewBookingStore(conn)

	p := &models.Property{Name: "Flat", Location: "Novi Sad", PricePerNight: 50, OwnerID: "o1"}
	require.NoError(t, properties.Create(ctx, p))

	checkIn := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mine := &models.Booking{
		UserID: "u1", PropertyID: p.ID, Status: models.PENDING,
		CheckInDate: checkIn, CheckOutDate: checkIn.AddDate(0, 0, 2), TotalPrice: 100,
	}
	require.NoError(t, bookings.Create(ctx, mine))
	require.NoError(t, bookings.Create(ctx, &models.Booking{UserID: "u2", PropertyID: p.ID, Status: models.PENDING}))

	found, err := bookings.FindByID(ctx, mine.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Property)
	require.Equal(t, "o1", found.Property.OwnerID)

	list, err := bookings.FindAllByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, mine.ID, list[0].ID)
	require.NotNil(t, list[0].Property)

	require.NoError(t, bookings.UpdateStatus(ctx, mine.ID, models.ACCEPTED))
	require.ErrorIs(t, bookings.UpdateStatus(ctx, "missing", models.ACCEPTED), ErrNotFound)

	changed, err := bookings.CompareAndSetStatus(ctx, mine.ID, models.PENDING, models.REJECTED)
	require.NoError(t, err)
	require.False(t, changed)

	found, err = bookings.FindByID(ctx, mine.ID)
	require.NoError(t, err)
	require.Equal(t, models.ACCEPTED, found.Status)
}

func TestPropertyUpdate(t *testing.T) {
	ctx := context.Background()
	properties := NewPropertyStore(setupTestDB(t))

	p := &models.Property{Name: "Flat", Location: "Novi Sad", PricePerNight: 50, OwnerID: "o1"}
	require.NoError(t, properties.Create(ctx, p))

	p.Name = "Studio"
	p.Amenities = []string{"wifi"}
	require.NoError(t, properties.Update(ctx, p))
	got, err := properties.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Studio", got.Name)
	require.Equal(t, []string{"wifi"}, got.Amenities)

	require.NoError(t, properties.Delete(ctx, p.ID))
	require.ErrorIs(t, properties.Update(ctx, p), ErrNotFound)
	_, err = properties.FindByID(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound, "update must not re-create a deleted property")
}
