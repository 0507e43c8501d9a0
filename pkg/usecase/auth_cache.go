package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
)

const (
	authCacheTTL = 5 * time.Minute
)

type cachedIdentity struct {
	identity  *auth.Identity
	expiresAt time.Time
}

// authCache keeps verified identities keyed by a hash of the raw token so
// profile lookups are not repeated on every request
type authCache struct {
	cache sync.Map
}

func newAuthCache() *authCache {
	return &authCache{}
}

func tokenKey(token auth.Token) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (c *authCache) get(token auth.Token) (*auth.Identity, bool) {
	key := tokenKey(token)
	val, ok := c.cache.Load(key)
	if !ok {
		return nil, false
	}

	cached := val.(*cachedIdentity)
	if time.Now().After(cached.expiresAt) {
		c.cache.Delete(key)
		return nil, false
	}

	return cached.identity, true
}

// set caches the identity until the token expires or the TTL passes,
// whichever comes first
func (c *authCache) set(token auth.Token, id *auth.Identity, tokenExp time.Time) {
	expiresAt := time.Now().Add(authCacheTTL)
	if !tokenExp.IsZero() && tokenExp.Before(expiresAt) {
		expiresAt = tokenExp
	}
	c.cache.Store(tokenKey(token), &cachedIdentity{
		identity:  id,
		expiresAt: expiresAt,
	})
}
