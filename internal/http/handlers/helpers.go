package handlers

import (
	"github.com/valyala/fasthttp"

	dbpkg "feetfit/internal/db"
	httpctx "feetfit/internal/http/ctx"
)

// MustUser returns the authenticated user or answers 401.
func MustUser(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	user, ok := httpctx.UserFromCtx(ctx)
	if !ok {
		errResponse(ctx, fasthttp.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}
