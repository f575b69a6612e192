package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpos/backend/internal/domain"
)

func TestSuppliersLifecycle(t *testing.T) {
	env := newTestEnv(t)
	suppliers := NewSuppliers(env.deps)

	created, err := suppliers.Create(adminCtx(), domain.SupplierCreateRequest{Name: "  Jindal Distributors ", Phone: "9822000000"})
	require.NoError(t, err)
	assert.Equal(t, "Jindal Distributors", created.Name)

	updated, err := suppliers.Update(adminCtx(), created.ID, domain.SupplierUpdateRequest{Notes: ptr("delivers Tuesdays")})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "delivers Tuesdays", updated.Notes)
	assert.Equal(t, "9822000000", updated.Phone)

	missing, err := suppliers.Update(adminCtx(), "sup-missing", domain.SupplierUpdateRequest{Notes: ptr("x")})
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = suppliers.Update(adminCtx(), created.ID, domain.SupplierUpdateRequest{Name: ptr("   ")})
	assert.ErrorIs(t, err, ErrValidation)

	env.flush(t)
	reloaded := NewSuppliers(env.deps)
	require.NoError(t, reloaded.Load(adminCtx()))
	got, err := reloaded.Get(adminCtx(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivers Tuesdays", got.Notes)

	require.NoError(t, suppliers.Delete(adminCtx(), created.ID))
	_, err = suppliers.Get(adminCtx(), created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, suppliers.Delete(adminCtx(), created.ID))
}

func TestSuppliersRequireAdmin(t *testing.T) {
	suppliers := NewSuppliers(newTestEnv(t).deps)

	_, err := suppliers.Create(cashierCtx(), domain.SupplierCreateRequest{Name: "Local Hardware"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = suppliers.Create(adminCtx(), domain.SupplierCreateRequest{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, suppliers.List(adminCtx()))
}
