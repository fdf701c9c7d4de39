// Package service implements the society operations on top of the entity
// store. Every operation takes the calling principal, consults the scope
// resolver before touching rows and runs multi-statement changes inside one
// transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/metrics"
	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
	"github.com/mmynk/societyhub/internal/storage"
)

// authorize wraps scope.AuthorizeMutation and counts denials.
func authorize(m *metrics.Metrics, p models.Principal, r scope.Resource, row scope.Row) error {
	err := scope.AuthorizeMutation(p, r, row)
	observeDenial(m, r, err)
	return err
}

// authorizeRead wraps scope.AuthorizeRead and counts denials.
func authorizeRead(m *metrics.Metrics, p models.Principal, r scope.Resource, row scope.Row) error {
	err := scope.AuthorizeRead(p, r, row)
	observeDenial(m, r, err)
	return err
}

// resolve wraps scope.Resolve and counts denials.
func resolve(m *metrics.Metrics, p models.Principal, r scope.Resource) (scope.Filter, error) {
	f, err := scope.Resolve(p, r)
	observeDenial(m, r, err)
	return f, err
}

func observeDenial(m *metrics.Metrics, r scope.Resource, err error) {
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrForbidden):
		m.ScopeDenied(string(r), "forbidden")
	case errors.Is(err, apperr.ErrNotFound):
		m.ScopeDenied(string(r), "not_found")
	}
}

// requireRole fails with ErrForbidden unless p has one of roles.
func requireRole(p models.Principal, roles ...models.Role) error {
	if slices.Contains(roles, p.Role) {
		return nil
	}
	return fmt.Errorf("role %s: %w", p.Role, apperr.ErrForbidden)
}

// societyOf returns the principal's society or ErrForbidden.
func societyOf(p models.Principal) (string, error) {
	id := scope.SocietyOf(p)
	if id == "" {
		return "", fmt.Errorf("%s without society: %w", p.Role, apperr.ErrForbidden)
	}
	return id, nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Invalid("%s required", field)
	}
	return nil
}

func now() int64 {
	return time.Now().Unix()
}

// member loads userID and checks that it belongs to societyID, either
// directly or, for admins, through a society link. Users outside the society
// are reported as invalid input naming what.
func member(ctx context.Context, st storage.Store, userID, societyID, what string) (*models.User, error) {
	u, err := st.GetUserByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Invalid("%s %s is not a member of this society", what, userID)
	}
	if err != nil {
		return nil, err
	}
	if u.SocietyID == societyID {
		return u, nil
	}
	if u.Role == models.RoleAdmin {
		linked, err := st.AdminSocietyIDs(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if slices.Contains(linked, societyID) {
			return u, nil
		}
	}
	return nil, apperr.Invalid("%s %s is not a member of this society", what, userID)
}
