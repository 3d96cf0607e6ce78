package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dzoniops/rental-service/db"
	"github.com/dzoniops/rental-service/models"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the authenticated caller of a single request.
type Identity struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Resolver turns an Authorization header into an Identity.
//
// The admin flag comes from the token, not from the user record, so it stays
// fixed for the lifetime of the token even if the user is promoted or demoted
// in the meantime.
type Resolver struct {
	creds *Credentials
	users UserFinder
}

func NewResolver(creds *Credentials, users UserFinder) *Resolver {
	return &Resolver{creds: creds, users: users}
}

func (r *Resolver) Resolve(ctx context.Context, header string) (*Identity, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, ErrUnauthenticated
	}
	claims, err := r.creds.VerifyToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	user, err := r.users.FindByID(ctx, claims.ID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s no longer exists", ErrUnauthenticated, claims.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &Identity{ID: user.ID, IsAdmin: claims.IsAdmin}, nil
}

// BearerToken extracts the token from a "Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
