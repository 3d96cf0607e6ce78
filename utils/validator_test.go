package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `json:"name"  validate:"notblank"`
	Email string  `json:"email" validate:"required,email"`
	Price float64 `json:"price" validate:"gt=0"`
	From  string  `json:"from"  validate:"required,date"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate.Struct(sample{
		Name: "x", Email: "a@b.co", Price: 1, From: "2024-01-01",
	}))

	err := Validate.Struct(sample{Name: "  ", Email: "nope", Price: 0, From: "yesterday"})
	require.Error(t, err)
	msg := ValidationMessage(err)
	require.Contains(t, msg, "name is required")
	require.Contains(t, msg, "email must be a valid email")
	require.Contains(t, msg, "price must be greater than 0")
	require.Contains(t, msg, "from must be a date")
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-04")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), d)

	ts, err := ParseDate("2024-01-04T12:00:00+02:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC), ts)

	_, err = ParseDate("04/01/2024")
	require.Error(t, err)
}
