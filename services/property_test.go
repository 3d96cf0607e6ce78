package services

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dzoniops/rental-service/cache"
	"github.com/dzoniops/rental-service/db"
	"github.com/dzoniops/rental-service/models"
	"github.com/dzoniops/rental-service/storage"
)

func validProperty() PropertyInput {
	return PropertyInput{
		Name:          "Loft",
		Description:   "Top floor",
		Location:      "Belgrade",
		PricePerNight: 75,
		Amenities:     []string{" wifi", "parking", "", "wifi"},
	}
}

func upload(name string) ImageUpload {
	return ImageUpload{Filename: name, Body: strings.NewReader("img")}
}

func TestCreateProperty(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	images := &memImages{}
	svc := NewPropertyService(env.properties, images, nil, log.NewNopLogger())

	p, err := svc.Create(ctx, owner, validProperty(), []ImageUpload{upload("a.png"), upload("b.jpg")})
	require.NoError(t, err)
	require.Equal(t, owner.ID, p.OwnerID)
	require.Equal(t, []string{"wifi", "parking"}, p.Amenities)
	require.Equal(t, []string{"/uploads/a.png", "/uploads/b.jpg"}, p.ImageUrls)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)

	t.Run("admin may create for another owner", func(t *testing.T) {
		in := validProperty()
		in.OwnerID = owner.ID
		p, err := svc.Create(ctx, admin, in, nil)
		require.NoError(t, err)
		require.Equal(t, owner.ID, p.OwnerID)
	})

	t.Run("user may not create for another owner", func(t *testing.T) {
		in := validProperty()
		in.OwnerID = owner.ID
		_, err := svc.Create(ctx, stranger, in, nil)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("missing fields", func(t *testing.T) {
		in := validProperty()
		in.Location = " "
		in.PricePerNight = 0
		_, err := svc.Create(ctx, owner, in, nil)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("non-finite price", func(t *testing.T) {
		for _, price := range []float64{math.Inf(1), math.NaN()} {
			in := validProperty()
			in.PricePerNight = price
			_, err := svc.Create(ctx, owner, in, nil)
			require.ErrorIs(t, err, ErrInvalidInput)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := svc.Create(ctx, nil, validProperty(), nil)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestUpdateProperty(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	svc := NewPropertyService(env.properties, &memImages{}, nil, log.NewNopLogger())

	p, err := svc.Create(ctx, owner, validProperty(), []ImageUpload{upload("a.png")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, stranger, p.ID, PropertyInput{Name: "Mine now"}, nil)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, owner, "nope", PropertyInput{Name: "x"}, nil)
	require.ErrorIs(t, err, ErrPropertyNotFound)

	updated, err := svc.Update(ctx, owner, p.ID, PropertyInput{Name: "Penthouse", PricePerNight: 90}, nil)
	require.NoError(t, err)
	require.Equal(t, "Penthouse", updated.Name)
	require.Equal(t, 90.0, updated.PricePerNight)
	require.Equal(t, "Belgrade", updated.Location)
	require.Equal(t, []string{"/uploads/a.png"}, updated.ImageUrls, "images kept when none uploaded")
	require.Equal(t, []string{"wifi", "parking"}, updated.Amenities, "amenities kept when not sent")

	updated, err = svc.Update(ctx, admin, p.ID, PropertyInput{Amenities: []string{}}, []ImageUpload{upload("c.png")})
	require.NoError(t, err)
	require.Empty(t, updated.Amenities)
	require.Equal(t, []string{"/uploads/c.png"}, updated.ImageUrls)

	stored, err := env.properties.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Penthouse", stored.Name)
	require.Equal(t, []string{"/uploads/c.png"}, stored.ImageUrls)

	_, err = svc.Update(ctx, owner, p.ID, PropertyInput{PricePerNight: -1}, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Update(ctx, owner, p.ID, PropertyInput{PricePerNight: math.NaN()}, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Update(ctx, owner, p.ID, PropertyInput{PricePerNight: math.Inf(1)}, nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	stored, err = env.properties.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 90.0, stored.PricePerNight)
}

func TestUpdateDeletedProperty(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	svc := NewPropertyService(env.properties, &memImages{}, nil, log.NewNopLogger())

	p, err := svc.Create(ctx, owner, validProperty(), nil)
	require.NoError(t, err)
	require.NoError(t, env.properties.Delete(ctx, p.ID))

	p.Name = "Back again"
	require.ErrorIs(t, env.properties.Update(ctx, p), db.ErrNotFound)
	_, err = env.properties.FindByID(ctx, p.ID)
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestDeleteProperty(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	svc := NewPropertyService(env.properties, &memImages{}, nil, log.NewNopLogger())

	p, err := svc.Create(ctx, owner, validProperty(), nil)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, stranger, p.ID), ErrForbidden)
	require.ErrorIs(t, svc.Delete(ctx, nil, p.ID), ErrUnauthenticated)
	require.NoError(t, svc.Delete(ctx, admin, p.ID))
	require.ErrorIs(t, svc.Delete(ctx, owner, p.ID), ErrPropertyNotFound)

	_, err = svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, ErrPropertyNotFound)
}

func TestListProperties(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	svc := NewPropertyService(env.properties, &memImages{}, nil, log.NewNopLogger())

	empty, err := svc.List(ctx, db.PropertyFilter{})
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	_, err = svc.Create(ctx, owner, validProperty(), nil)
	require.NoError(t, err)
	list, err := svc.List(ctx, db.PropertyFilter{Amenities: []string{"parking"}})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

type rejectingImages struct{}

func (rejectingImages) Save(context.Context, string, io.Reader) (string, error) {
	return "", storage.ErrUnsupportedImage
}

func (rejectingImages) SaveNamed(context.Context, string, io.Reader) (string, error) {
	return "", storage.ErrUnsupportedImage
}

type failingImages struct{}

func (failingImages) SaveNamed(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func (failingImages) Save(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func TestImageErrors(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := NewPropertyService(env.properties, rejectingImages{}, nil, log.NewNopLogger()).
		Create(ctx, owner, validProperty(), []ImageUpload{upload("a.txt")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewPropertyService(env.properties, failingImages{}, nil, log.NewNopLogger()).
		Upload(ctx, owner, upload("a.png"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidInput)

	url, err := NewPropertyService(env.properties, &memImages{}, nil, log.NewNopLogger()).
		Upload(ctx, owner, upload("a.png"))
	require.NoError(t, err)
	require.Equal(t, "/uploads/named-a.png", url)

	_, err = NewPropertyService(env.properties, rejectingImages{}, nil, log.NewNopLogger()).
		Upload(ctx, owner, upload("a.txt"))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewPropertyService(env.properties, &memImages{}, nil, log.NewNopLogger()).
		Upload(ctx, nil, upload("a.png"))
	require.ErrorIs(t, err, ErrUnauthenticated)

	list, err := env.properties.List(ctx, db.PropertyFilter{})
	require.NoError(t, err)
	require.Empty(t, list, "nothing is stored when images fail")
}

type memCache map[string]*models.Property

func (m memCache) Get(_ context.Context, id string) (*models.Property, error) { return m[id], nil }

func (m memCache) Set(_ context.Context, p *models.Property) error {
	cp := *p
	m[p.ID] = &cp
	return nil
}

func (m memCache) Invalidate(_ context.Context, id string) error {
	delete(m, id)
	return nil
}

func TestPropertyCache(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	c := memCache{}
	svc := NewPropertyService(env.properties, &memImages{}, c, log.NewNopLogger())

	p, err := svc.Create(ctx, owner, validProperty(), nil)
	require.NoError(t, err)

	_, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Contains(t, c, p.ID)

	_, err = svc.Update(ctx, owner, p.ID, PropertyInput{Name: "Renamed"}, nil)
	require.NoError(t, err)
	require.NotContains(t, c, p.ID)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)

	require.NoError(t, svc.Delete(ctx, owner, p.ID))
	require.NotContains(t, c, p.ID)
}

func TestUnreachableRedisFallsBackToStore(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	rc := cache.NewWithClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	}), time.Minute)
	defer rc.Close()

	svc := NewPropertyService(env.properties, &memImages{}, rc, log.NewNopLogger())
	p := env.property(t, owner.ID, 10)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
}
