package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/truthguard/service-core/internal/account/entity"
	"github.com/truthguard/service-core/internal/account/repo"
	"github.com/truthguard/service-core/internal/identity"
	"github.com/truthguard/service-core/internal/kvstore"
)

const defaultAdminName = "Admin User"

// sentinel errors for common failure modes
var (
	ErrRecordNotFound     = errors.New("user record not found")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrBadSetupKey        = errors.New("invalid admin setup key")
	ErrAdminExists        = errors.New("admin user with this email already exists")
)

// Service maps provider principals to application-level user records and
// runs the admin bootstrap protocol.
type Service struct {
	repo     *repo.AccountRepo
	provider identity.Provider
	setupKey string
}

// NewService constructs a Service. An empty setupKey disables admin bootstrap
// entirely rather than shipping a default secret.
func NewService(store kvstore.Store, provider identity.Provider, setupKey string) *Service {
	return &Service{repo: repo.NewAccountRepo(store), provider: provider, setupKey: setupKey}
}

// Signup registers a regular (non-admin) user: a provider principal plus its
// UserRecord, with createdAt == lastLogin at creation.
func (s *Service) Signup(ctx context.Context, email, password, name string) (*identity.Principal, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	var metadata map[string]any
	if name != "" {
		metadata = map[string]any{"name": name}
	}
	p, err := s.provider.CreatePrincipal(ctx, email, password, metadata)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &entity.UserRecord{
		Email:     p.Email,
		IsAdmin:   false,
		CreatedAt: now,
		LastLogin: now,
	}
	if name != "" {
		rec.Name = &name
	}
	if err := s.repo.Put(ctx, p.ID, rec); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfile returns the stored record for a principal, or ErrRecordNotFound.
func (s *Service) GetProfile(ctx context.Context, principalID string) (*entity.UserRecord, error) {
	rec, err := s.repo.Get(ctx, principalID)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// TouchLogin rewrites the record with a fresh lastLogin, preserving all other
// fields. A missing record is a documented no-op, not an error.
func (s *Service) TouchLogin(ctx context.Context, principalID string) error {
	rec, err := s.repo.Get(ctx, principalID)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	rec.LastLogin = time.Now().UTC()
	return s.repo.Put(ctx, principalID, rec)
}

// HasAnyAdmin reports whether any stored user record carries the admin flag.
// Always a point-in-time scan, never a cached counter.
func (s *Service) HasAnyAdmin(ctx context.Context) (bool, error) {
	recs, err := s.repo.All(ctx)
	if err != nil {
		return false, err
	}
	for _, rec := range recs {
		if rec.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

// CreateAdmin runs the admin bootstrap state machine:
//
//	bad setup key                 -> ErrBadSetupKey
//	no principal for email        -> new admin principal + record
//	principal already admin       -> ErrAdminExists, state untouched
//	principal not admin / no rec  -> record rewritten with isAdmin=true
//
// Promotion is idempotent and self-healing: a user who signed up before any
// admin existed is promoted rather than rejected. Two concurrent calls can
// both observe "no admin yet" and both succeed; the store has no cross-key
// transactions and this setup-time-only race is accepted.
// The returned bool is true when an existing user was promoted rather than
// created.
func (s *Service) CreateAdmin(ctx context.Context, email, password, setupKey string) (*identity.Principal, bool, error) {
	if s.setupKey == "" || subtle.ConstantTimeCompare([]byte(setupKey), []byte(s.setupKey)) != 1 {
		return nil, false, ErrBadSetupKey
	}
	if email == "" || password == "" {
		return nil, false, ErrMissingCredentials
	}

	adminName := defaultAdminName
	existing, err := s.provider.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, identity.ErrPrincipalNotFound):
		// brand-new admin
		p, err := s.provider.CreatePrincipal(ctx, email, password, map[string]any{
			"name":    adminName,
			"isAdmin": true,
		})
		if err != nil {
			return nil, false, err
		}
		now := time.Now().UTC()
		rec := &entity.UserRecord{
			Email:     p.Email,
			Name:      &adminName,
			IsAdmin:   true,
			CreatedAt: now,
			LastLogin: now,
		}
		if err := s.repo.Put(ctx, p.ID, rec); err != nil {
			return nil, false, err
		}
		return p, false, nil

	case err != nil:
		return nil, false, err
	}

	// principal exists: promote unless already admin
	now := time.Now().UTC()
	rec, err := s.repo.Get(ctx, existing.ID)
	if err != nil {
		if !errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, false, err
		}
		// principal without a record: heal by creating one
		rec = &entity.UserRecord{Email: existing.Email, CreatedAt: now}
	}
	if rec.IsAdmin {
		return nil, false, ErrAdminExists
	}
	rec.IsAdmin = true
	rec.LastLogin = now
	if rec.Name == nil {
		rec.Name = &adminName
	}
	if err := s.repo.Put(ctx, existing.ID, rec); err != nil {
		return nil, false, err
	}
	return existing, true, nil
}
