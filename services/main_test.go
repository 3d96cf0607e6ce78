package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dzoniops/rental-service/auth"
	"github.com/dzoniops/rental-service/config"
	"github.com/dzoniops/rental-service/db"
	"github.com/dzoniops/rental-service/models"
)

type testEnv struct {
	users      *db.UserStore
	properties *db.PropertyStore
	bookings   *db.BookingStore
	creds      *auth.Credentials
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conn, err := db.Open(config.Database{Driver: "sqlite", SQLitePath: ":memory:"}, log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	return &testEnv{
		users:      db.NewUserStore(conn),
		properties: db.NewPropertyStore(conn),
		bookings:   db.NewBookingStore(conn),
		creds:      auth.NewCredentials("test-secret", time.Hour, bcrypt.MinCost),
	}
}

func (e *testEnv) property(t *testing.T, owner string, price float64) *models.Property {
	t.Helper()
	p := &models.Property{
		Name:          "Apartment",
		Description:   "Two rooms",
		Location:      "Novi Sad",
		PricePerNight: price,
		OwnerID:       owner,
	}
	require.NoError(t, e.properties.Create(context.Background(), p))
	return p
}

type memImages struct {
	saved []string
}

func (m *memImages) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	m.saved = append(m.saved, filename)
	return "/uploads/" + filename, nil
}

func (m *memImages) SaveNamed(ctx context.Context, filename string, r io.Reader) (string, error) {
	return m.Save(ctx, "named-"+filename, r)
}
