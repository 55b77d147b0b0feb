package middleware

import (
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"feetfit/internal/config"
	dbpkg "feetfit/internal/db"
	httpctx "feetfit/internal/http/ctx"
)

// SessionCookie carries the logged-in username.
const SessionCookie = "session_user"

// AdminAuth loads the session user and sets it on the context. Requests
// without a valid session get 401.
func AdminAuth(db *gorm.DB, cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			cookie := ctx.Request.Header.Cookie(SessionCookie)
			if len(cookie) == 0 {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("login required")
				return
			}
			username := string(cookie)

			var user dbpkg.User
			if err := db.Where("username = ?", username).First(&user).Error; err != nil {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("login required")
				return
			}

			if user.Username == cfg.AdminUser {
				user.IsAdmin = true
			}

			httpctx.SetUser(ctx, &user)
			next(ctx)
		}
	}
}

// RequireAdmin rejects session users without the admin flag. It must run
// after AdminAuth.
func RequireAdmin(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := httpctx.UserFromCtx(ctx)
		if !ok || !user.IsAdmin {
			ctx.SetStatusCode(fasthttp.StatusForbidden)
			ctx.SetBodyString("admin only")
			return
		}
		next(ctx)
	}
}
