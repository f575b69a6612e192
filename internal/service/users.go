package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sheetpos/backend/internal/domain"
	"sheetpos/backend/internal/store"
)

const (
	DefaultAdminPassword   = "admin12345"
	DefaultCashierPassword = "cashier12345"
)

// Users persists staff accounts for the auth layer.
type Users struct {
	deps Deps

	mu    sync.RWMutex
	users []domain.UserAccount
}

func NewUsers(deps Deps) *Users {
	return &Users{deps: deps.withDefaults("users")}
}

func (u *Users) Load(ctx context.Context) error {
	var users []domain.UserAccount
	if err := loadCollection(ctx, u.deps.Writer, store.KeyUsers, &users, func(items []domain.UserAccount) error {
		for _, item := range items {
			if strings.TrimSpace(item.Username) == "" {
				return fmt.Errorf("user without username")
			}
			if item.Role != domain.RoleAdmin && item.Role != domain.RoleCashier {
				return fmt.Errorf("user %q: unknown role %q", item.Username, item.Role)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	u.mu.Lock()
	u.users = users
	u.mu.Unlock()
	return nil
}

func (u *Users) CreateUser(_ context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.index(user.Username) >= 0 {
		return fmt.Errorf("%w: username already exists", ErrValidation)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = u.deps.Clock()
	}
	u.users = append(u.users, user)
	u.save()
	return nil
}

func (u *Users) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]domain.UserAccount(nil), u.users...), nil
}

func (u *Users) UpdateUserPassword(_ context.Context, username string, password string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	idx := u.index(strings.ToLower(strings.TrimSpace(username)))
	if idx < 0 {
		return nil
	}
	u.users[idx].Password = password
	u.save()
	return nil
}

// SeedDefaults creates an admin and a cashier account on first start.
func (u *Users) SeedDefaults(ctx context.Context, adminPassword string, cashierPassword string) error {
	u.mu.RLock()
	empty := len(u.users) == 0
	u.mu.RUnlock()
	if !empty {
		return nil
	}

	seeds := []struct {
		username string
		role     string
		password string
		fallback string
	}{
		{"admin", domain.RoleAdmin, adminPassword, DefaultAdminPassword},
		{"cashier", domain.RoleCashier, cashierPassword, DefaultCashierPassword},
	}
	for _, seed := range seeds {
		password := strings.TrimSpace(seed.password)
		if password == "" {
			password = seed.fallback
			u.deps.Logger.Warn("seeding account with default password; change it before going live", zap.String("username", seed.username))
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", seed.username, err)
		}
		if err := u.CreateUser(ctx, domain.UserAccount{
			Username: seed.username,
			Password: string(hash),
			Role:     seed.role,
			Active:   true,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (u *Users) index(username string) int {
	for i := range u.users {
		if u.users[i].Username == username {
			return i
		}
	}
	return -1
}

func (u *Users) save() {
	persist(u.deps.Writer, u.deps.Logger, store.KeyUsers, u.users)
}
