package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrMalformedRecord = errors.New("malformed record")
	ErrWriteFailed     = errors.New("write failed")
)

// Fixed keys under which each collection is stored as one JSON document.
const (
	KeyCategories = "categories"
	KeyCompanies  = "companies"
	KeyProducts   = "products"
	KeySuppliers  = "suppliers"
	KeyCart       = "cart"
	KeySales      = "sales"
	KeyCustomers  = "customers"
	KeyUsers      = "users"
)

// KV is the persistence adapter every collection is written through. Get
// returns ErrNotFound when the key has never been set or was removed.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}
