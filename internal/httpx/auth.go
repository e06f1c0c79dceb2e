package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Principal struct {
	UserID string
	Role   string
}

func (p Principal) Admin() bool { return p.Role == RoleAdmin }

// Authenticator resolves the caller of a request. Token issuance lives in
// front of this service.
type Authenticator interface {
	Authenticate(r *http.Request) (Principal, error)
}

// HeaderAuthenticator trusts identity headers set by the gateway.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	id := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if id == "" {
		return Principal{}, shop.Errorf(shop.KindUnauthorized, "unauthorized request")
	}
	role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-User-Role")))
	if role == "" {
		role = RoleUser
	}
	return Principal{UserID: id, Role: role}, nil
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func (s *server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.auth.Authenticate(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

// requireAdmin must run after requireUser.
func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, _ := principalFrom(r.Context()); !p.Admin() {
			s.fail(w, r, shop.Errorf(shop.KindForbidden, "You are not authorized to access this resource"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
