// Package ctx carries the authenticated principal of a request in the
// fasthttp user values.
package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "feetfit/internal/db"
)

const (
	UserKey   = "user"
	APIKeyKey = "apiKey"
)

// keyPrefixLen is how much of an API key may appear in logs.
const keyPrefixLen = 7

func SetUser(ctx *fasthttp.RequestCtx, user *dbpkg.User) {
	ctx.SetUserValue(UserKey, user)
}

func UserFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	u, ok := ctx.UserValue(UserKey).(*dbpkg.User)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}

func SetAPIKey(ctx *fasthttp.RequestCtx, apiKey *dbpkg.APIKey) {
	ctx.SetUserValue(APIKeyKey, apiKey)
}

func APIKeyFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.APIKey, bool) {
	ak, ok := ctx.UserValue(APIKeyKey).(*dbpkg.APIKey)
	if !ok || ak == nil {
		return nil, false
	}
	return ak, true
}

// KeyPrefix returns the leading characters of the request's API key, or ""
// when the request was not bearer-authenticated.
func KeyPrefix(ctx *fasthttp.RequestCtx) string {
	ak, ok := APIKeyFromCtx(ctx)
	if !ok {
		return ""
	}
	if len(ak.Key) <= keyPrefixLen {
		return ak.Key
	}
	return ak.Key[:keyPrefixLen]
}
