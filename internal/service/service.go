package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type Options struct {
	LowStockDefault int
	ReceiptLocale   string
}

// Services is the set of domain services built once at startup and handed to
// the transport layer.
type Services struct {
	Catalog   *Catalog
	Suppliers *Suppliers
	Cart      *Cart
	Checkout  *Checkout
	Ledger    *Ledger
	Reports   *Reports
	Users     *Users
}

func New(deps Deps, opts Options) *Services {
	catalog := NewCatalog(deps, opts.LowStockDefault)
	ledger := NewLedger(deps)
	cart := NewCart(deps, catalog)
	checkout := NewCheckout(deps, cart, catalog, ledger, opts.ReceiptLocale)

	return &Services{
		Catalog:   catalog,
		Suppliers: NewSuppliers(deps),
		Cart:      cart,
		Checkout:  checkout,
		Ledger:    ledger,
		Reports:   NewReports(deps, checkout, catalog, ledger),
		Users:     NewUsers(deps),
	}
}

// Load restores every collection concurrently. The first malformed or
// unreadable collection aborts startup.
func (s *Services) Load(ctx context.Context) error {
	loaders := map[string]func(context.Context) error{
		"catalog":   s.Catalog.Load,
		"suppliers": s.Suppliers.Load,
		"cart":      s.Cart.Load,
		"sales":     s.Checkout.Load,
		"customers": s.Ledger.Load,
		"users":     s.Users.Load,
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, load := range loaders {
		g.Go(func() error {
			if err := load(gctx); err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
