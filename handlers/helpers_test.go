package handlers

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustRequest(t *testing.T, method, url string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	return req
}
