package auth

import (
	"context"
	"net/http"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
)

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p entities.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (entities.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(entities.Principal)
	return p, ok
}

// Guard asserts who may mutate the catalog. The operator identities are
// injected at construction instead of being compiled into the checks.
type Guard struct {
	operators map[string]struct{}
}

func NewGuard(operatorEmails []string) *Guard {
	ops := make(map[string]struct{}, len(operatorEmails))
	for _, e := range operatorEmails {
		ops[e] = struct{}{}
	}
	return &Guard{operators: ops}
}

func (g *Guard) RequirePrincipal(ctx context.Context) (entities.Principal, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok || p.ID == "" {
		return entities.Principal{}, apperr.Unauthenticated("sign-in required")
	}
	return p, nil
}

func (g *Guard) RequireOperator(ctx context.Context) (entities.Principal, error) {
	p, err := g.RequirePrincipal(ctx)
	if err != nil {
		return entities.Principal{}, err
	}
	if _, ok := g.operators[p.Email]; !ok {
		return entities.Principal{}, apperr.Forbidden("operator access required")
	}
	return p, nil
}

// RequireOwner asserts that p owns the row identified by ownerID. The caller
// must have already established that the row exists; a missing row is a
// NotFound, never a Forbidden.
func RequireOwner(p entities.Principal, ownerID string) error {
	if p.ID != ownerID {
		return apperr.Forbidden("not the owner")
	}
	return nil
}

// Middleware lifts the identity resolved by the fronting session layer into
// the request context. Requests without identity headers pass through
// unauthenticated; the guard rejects them where it matters.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Auth-User-Id")
		if id != "" {
			p := entities.Principal{ID: id, Email: r.Header.Get("X-Auth-User-Email")}
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}
