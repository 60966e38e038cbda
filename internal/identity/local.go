package identity

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/truthguard/service-core/pkg/utilities"
)

// LocalProvider is an embedded stand-in for the external identity provider,
// used in development and tests. It keeps principals in memory, holds bcrypt
// password hashes and issues HS256 bearer tokens. Credential custody stays
// entirely inside this type; the rest of the service never sees a hash.
type LocalProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration

	mu      sync.RWMutex
	byID    map[string]*localPrincipal
	byEmail map[string]string // normalized email -> principal id
}

type localPrincipal struct {
	Principal
	passwordHash string
}

// NewLocalProvider constructs a provider. An empty secret gets replaced by a
// random one, which invalidates tokens across restarts; pass a stable secret
// to keep sessions.
func NewLocalProvider(secret []byte, ttl time.Duration) *LocalProvider {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LocalProvider{
		secret:  secret,
		issuer:  "truthguard-local",
		ttl:     ttl,
		byID:    make(map[string]*localPrincipal),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *LocalProvider) CreatePrincipal(ctx context.Context, email, password string, metadata map[string]any) (*Principal, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") || len(password) < 6 {
		return nil, ErrInvalidCredential
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, taken := p.byEmail[email]; taken {
		return nil, ErrEmailTaken
	}
	lp := &localPrincipal{
		Principal: Principal{
			ID:       utilities.NewKSUID(),
			Email:    email,
			Metadata: metadata,
		},
		passwordHash: string(hash),
	}
	p.byID[lp.ID] = lp
	p.byEmail[email] = lp.ID
	out := lp.Principal
	return &out, nil
}

func (p *LocalProvider) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	out := p.byID[id].Principal
	return &out, nil
}

// Authenticate checks a password and, on success, issues a bearer token for
// the matching principal. Failures are deliberately indistinct to avoid
// account enumeration.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (string, error) {
	p.mu.RLock()
	id, ok := p.byEmail[normalizeEmail(email)]
	var lp *localPrincipal
	if ok {
		lp = p.byID[id]
	}
	p.mu.RUnlock()

	if lp == nil {
		return "", ErrTokenInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(lp.passwordHash), []byte(password)) != nil {
		return "", ErrTokenInvalid
	}
	return p.IssueToken(lp.ID)
}

// IssueToken signs a short-lived HS256 bearer token for principalID.
func (p *LocalProvider) IssueToken(principalID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": p.issuer,
		"sub": principalID,
		"iat": now.Unix(),
		"exp": now.Add(p.ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(p.secret)
}

func (p *LocalProvider) VerifyToken(ctx context.Context, token string) (*Principal, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(p.issuer))
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	sub, _ := claims["sub"].(string)

	p.mu.RLock()
	defer p.mu.RUnlock()
	lp, ok := p.byID[sub]
	if !ok {
		return nil, ErrTokenInvalid
	}
	out := lp.Principal
	return &out, nil
}
