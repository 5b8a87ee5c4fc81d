package services

import (
	"context"
	"errors"
	"testing"

	"github.com/BradenHooton/courier/internal/models"
	"github.com/BradenHooton/courier/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContactService(t *testing.T) (*harness, *ContactService) {
	t.Helper()
	h := newHarness(t)
	seedAccount(t, h)
	return h, NewContactService(repositories.NewMemoryContactRepository(), h.accounts, discardLogger())
}

func TestContactService_Create(t *testing.T) {
	h, svc := newContactService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "acc-1", &models.Contact{
		PhoneNumber: " +14155550123 ",
		FirstName:   strPtr("Alan"),
		LastName:    strPtr("Turing"),
		Email:       strPtr(" Alan@Example.COM "),
		Tags:        []string{" vip "},
	}, strPtr("10.0.0.1"))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "acc-1", created.CreatedBy)
	assert.Equal(t, "+14155550123", created.PhoneNumber)
	assert.Equal(t, "alan@example.com", *created.Email)
	assert.Equal(t, "Alan Turing", *created.DisplayName)
	assert.Equal(t, []string{"vip"}, created.Tags)
	assert.Equal(t, models.ContactActive, created.Status)
	assert.Equal(t, t0, created.CreatedAt)

	owner, err := h.accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), owner.Activity.ContactsAdded)
	last := owner.AuditLog[len(owner.AuditLog)-1]
	assert.Equal(t, models.AuditActionContactAdded, last.Action)
	assert.Equal(t, "Alan Turing", *last.Details)
}

func TestContactService_Create_Invalid(t *testing.T) {
	h, svc := newContactService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "acc-1", &models.Contact{PhoneNumber: "555-0123"}, nil)

	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)

	owner, err := h.accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), owner.Activity.ContactsAdded)
}

func TestContactService_Create_DuplicatePhone(t *testing.T) {
	_, svc := newContactService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "acc-1", &models.Contact{PhoneNumber: "+14155550123"}, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "acc-1", &models.Contact{PhoneNumber: "+14155550123"}, nil)

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestContactService_Create_RepositoryError(t *testing.T) {
	h := newHarness(t)
	repo := &failingContactRepo{}
	svc := NewContactService(repo, h.accounts, discardLogger())

	_, err := svc.Create(context.Background(), "acc-1", &models.Contact{PhoneNumber: "+14155550123"}, nil)

	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestContactService_DeleteAndRestore(t *testing.T) {
	_, svc := newContactService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "acc-1", &models.Contact{PhoneNumber: "+14155550123"}, nil)
	require.NoError(t, err)

	_, err = svc.Restore(ctx, "acc-1", created.ID)
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)

	require.NoError(t, svc.Delete(ctx, "acc-1", created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "acc-1", created.ID), models.ErrNotFound)

	visible, err := svc.List(ctx, "acc-1", models.ContactFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := svc.List(ctx, "acc-1", models.ContactFilter{IncludeDeleted: true}, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.ContactArchived, all[0].Status)

	restored, err := svc.Restore(ctx, "acc-1", created.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())
	assert.Equal(t, models.ContactActive, restored.Status)
}

func TestContactService_OwnerIsolation(t *testing.T) {
	_, svc := newContactService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "acc-1", &models.Contact{PhoneNumber: "+14155550123"}, nil)
	require.NoError(t, err)

	_, err = svc.Get(ctx, "acc-2", created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "acc-2", created.ID), models.ErrNotFound)
}

type failingContactRepo struct{}

func (failingContactRepo) Create(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	return nil, errors.New("disk full")
}

func (failingContactRepo) GetByID(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	return nil, models.ErrNotFound
}

func (failingContactRepo) List(ctx context.Context, ownerID string, filter models.ContactFilter, limit, offset int) ([]*models.Contact, error) {
	return nil, errors.New("disk full")
}

func (failingContactRepo) Update(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	return nil, errors.New("disk full")
}
