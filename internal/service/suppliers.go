package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sheetpos/backend/internal/domain"
	"sheetpos/backend/internal/store"
	"sheetpos/backend/internal/xid"
)

type Suppliers struct {
	deps Deps

	mu        sync.RWMutex
	suppliers []domain.Supplier
}

func NewSuppliers(deps Deps) *Suppliers {
	return &Suppliers{deps: deps.withDefaults("suppliers")}
}

func (s *Suppliers) Load(ctx context.Context) error {
	var suppliers []domain.Supplier
	if err := loadCollection(ctx, s.deps.Writer, store.KeySuppliers, &suppliers, func(items []domain.Supplier) error {
		for _, item := range items {
			if item.ID == "" || strings.TrimSpace(item.Name) == "" {
				return fmt.Errorf("supplier %q: id and name are required", item.ID)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.suppliers = suppliers
	s.mu.Unlock()
	return nil
}

func (s *Suppliers) List(_ context.Context) []domain.Supplier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Supplier(nil), s.suppliers...)
}

func (s *Suppliers) Get(_ context.Context, id string) (domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index(id)
	if idx < 0 {
		return domain.Supplier{}, fmt.Errorf("%w: supplier %q", ErrNotFound, id)
	}
	return s.suppliers[idx], nil
}

func (s *Suppliers) Create(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Supplier{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return domain.Supplier{}, err
	}

	supplier := domain.Supplier{
		ID:        xid.New("sup"),
		Name:      req.Name,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: s.deps.Clock(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers = append(s.suppliers, supplier)
	s.save()
	return supplier, nil
}

func (s *Suppliers) Update(ctx context.Context, id string, req domain.SupplierUpdateRequest) (*domain.Supplier, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(id)
	if idx < 0 {
		return nil, nil
	}
	updated := s.suppliers[idx]
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: supplier name is required", ErrValidation)
		}
		updated.Name = name
	}
	assignTrimmed(&updated.Phone, req.Phone)
	assignTrimmed(&updated.Address, req.Address)
	assignTrimmed(&updated.Notes, req.Notes)

	s.suppliers[idx] = updated
	s.save()
	return &updated, nil
}

func (s *Suppliers) Delete(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(id)
	if idx < 0 {
		return nil
	}
	s.suppliers = append(s.suppliers[:idx], s.suppliers[idx+1:]...)
	s.save()
	return nil
}

func (s *Suppliers) index(id string) int {
	for i := range s.suppliers {
		if s.suppliers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Suppliers) save() {
	persist(s.deps.Writer, s.deps.Logger, store.KeySuppliers, s.suppliers)
}
