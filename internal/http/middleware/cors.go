package middleware

import (
	"strings"

	"github.com/valyala/fasthttp"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type"
)

// CORS answers preflight requests and sets Access-Control headers for the
// allowed origins. An empty list or "*" allows any origin.
func CORS(origins []string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			origin := string(ctx.Request.Header.Peek("Origin"))
			if origin != "" {
				switch {
				case allowAll:
					ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
				case allowed[origin]:
					ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
					ctx.Response.Header.Add("Vary", "Origin")
				}
			}

			if ctx.IsOptions() && len(ctx.Request.Header.Peek("Access-Control-Request-Method")) > 0 {
				ctx.Response.Header.Set("Access-Control-Allow-Methods", corsAllowMethods)
				ctx.Response.Header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				ctx.Response.Header.Set("Access-Control-Max-Age", "600")
				ctx.SetStatusCode(fasthttp.StatusNoContent)
				return
			}
			next(ctx)
		}
	}
}
