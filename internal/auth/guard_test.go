package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
)

func TestRequirePrincipal_NoIdentity(t *testing.T) {
	g := NewGuard([]string{"owner@mostarle.kr"})

	_, err := g.RequirePrincipal(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestRequireOperator(t *testing.T) {
	g := NewGuard([]string{"owner@mostarle.kr"})

	tests := []struct {
		name  string
		email string
		kind  apperr.Kind
	}{
		{"operator passes", "owner@mostarle.kr", apperr.KindUnknown},
		{"authenticated non-operator is forbidden", "someone@example.com", apperr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithPrincipal(context.Background(), entities.Principal{ID: "u1", Email: tt.email})
			p, err := g.RequireOperator(ctx)
			if tt.kind == apperr.KindUnknown {
				require.NoError(t, err)
				assert.Equal(t, "u1", p.ID)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestRequireOwner(t *testing.T) {
	p := entities.Principal{ID: "u1"}

	require.NoError(t, RequireOwner(p, "u1"))

	err := RequireOwner(p, "u2")
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
