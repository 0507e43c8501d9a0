package usecase_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/repository/memory"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
)

const (
	testAudience = "authenticated"
	testIssuer   = "https://gateway.example/auth/v1"
)

func newSigningKey(t *testing.T, kid string) (jwk.Key, jwk.Set) {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	gt.NoError(t, err).Required()

	priv, err := jwk.FromRaw(raw)
	gt.NoError(t, err).Required()
	gt.NoError(t, priv.Set(jwk.KeyIDKey, kid)).Required()
	gt.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256)).Required()

	pub, err := jwk.PublicKeyOf(priv)
	gt.NoError(t, err).Required()

	set := jwk.NewSet()
	gt.NoError(t, set.AddKey(pub)).Required()
	return priv, set
}

type tokenClaims struct {
	sub      string
	email    string
	audience string
	issuer   string
	expires  time.Time
}

func signToken(t *testing.T, key jwk.Key, c tokenClaims) auth.Token {
	t.Helper()
	b := jwt.NewBuilder().
		Subject(c.sub).
		Audience([]string{c.audience}).
		Issuer(c.issuer).
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(c.expires)
	if c.email != "" {
		b = b.Claim("email", c.email)
	}
	tok, err := b.Build()
	gt.NoError(t, err).Required()

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, key))
	gt.NoError(t, err).Required()
	return auth.Token(signed)
}

func validClaims(sub string) tokenClaims {
	return tokenClaims{
		sub:      sub,
		email:    sub + "@token.example",
		audience: testAudience,
		issuer:   testIssuer,
		expires:  time.Now().Add(time.Hour),
	}
}

func TestAuthUseCase_Authenticate(t *testing.T) {
	repo := memory.New()
	gt.NoError(t, repo.Profile().SaveMany(context.Background(), []*model.Profile{
		{ID: "user-client", Name: "Acme AP", Email: "ap@acme.example", Role: types.RoleClient, ClientID: "acme"},
		{ID: "user-dpo", Name: "Data Officer", Email: "dpo@desk.example", Role: types.RoleDPO},
	})).Required()

	key, set := newSigningKey(t, "gateway-key-1")
	uc := usecase.NewAuthUseCase(repo, set, usecase.WithAudience(testAudience), usecase.WithIssuer(testIssuer))
	gt.Bool(t, uc.IsNoAuthn()).False()

	t.Run("role and organization come from the profile", func(t *testing.T) {
		id, err := uc.Authenticate(context.Background(), signToken(t, key, validClaims("user-client")))
		gt.NoError(t, err).Required()
		gt.Value(t, id.UserID).Equal("user-client")
		gt.Value(t, id.Role).Equal(types.RoleClient)
		gt.Value(t, id.ClientID).Equal("acme")
		gt.Value(t, id.Name).Equal("Acme AP")
		gt.Value(t, id.Email).Equal("user-client@token.example")
	})

	t.Run("email falls back to the profile", func(t *testing.T) {
		claims := validClaims("user-dpo")
		claims.email = ""
		id, err := uc.Authenticate(context.Background(), signToken(t, key, claims))
		gt.NoError(t, err).Required()
		gt.Value(t, id.Email).Equal("dpo@desk.example")
		gt.Value(t, id.Role).Equal(types.RoleDPO)
	})

	t.Run("verified tokens are cached", func(t *testing.T) {
		token := signToken(t, key, validClaims("user-client"))
		first, err := uc.Authenticate(context.Background(), token)
		gt.NoError(t, err).Required()
		second, err := uc.Authenticate(context.Background(), token)
		gt.NoError(t, err).Required()
		gt.Value(t, second).Equal(first)
	})

	t.Run("unknown subject is denied", func(t *testing.T) {
		_, err := uc.Authenticate(context.Background(), signToken(t, key, validClaims("stranger")))
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})

	t.Run("invalid tokens", func(t *testing.T) {
		otherKey, _ := newSigningKey(t, "gateway-key-1")

		wrongAudience := validClaims("user-client")
		wrongAudience.audience = "service_role"
		wrongIssuer := validClaims("user-client")
		wrongIssuer.issuer = "https://evil.example"
		expired := validClaims("user-client")
		expired.expires = time.Now().Add(-time.Hour)
		noSubject := validClaims("")

		testCases := []struct {
			name  string
			token auth.Token
		}{
			{"empty", ""},
			{"garbage", "not-a-jwt"},
			{"wrong audience", signToken(t, key, wrongAudience)},
			{"wrong issuer", signToken(t, key, wrongIssuer)},
			{"expired", signToken(t, key, expired)},
			{"foreign signature", signToken(t, otherKey, validClaims("user-client"))},
			{"no subject", signToken(t, key, noSubject)},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := uc.Authenticate(context.Background(), tc.token)
				gt.Error(t, err).Is(usecase.ErrUnauthenticated)
			})
		}
	})
}
