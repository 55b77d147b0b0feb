package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	dbpkg "feetfit/internal/db"
	httpctx "feetfit/internal/http/ctx"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 30 * time.Second

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// RequestLogger returns fasthttp middleware that logs method, path, status,
// duration and client ip, plus the API key prefix of bearer requests.
func RequestLogger(logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			fields := []zap.Field{
				zap.ByteString("method", ctx.Method()),
				zap.ByteString("path", ctx.Path()),
				zap.Int("status", ctx.Response.StatusCode()),
				zap.Duration("duration", time.Since(start)),
				zap.String("ip", ctx.RemoteIP().String()),
			}
			if prefix := httpctx.KeyPrefix(ctx); prefix != "" {
				fields = append(fields, zap.String("api_key", prefix))
			}
			logger.Info("request", fields...)
		}
	}
}

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	ctx.SetContentType("application/json")
	body, err := json.Marshal(data)
	if err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode response")
		return
	}
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}

var errBadWindow = errors.New("invalid time window")

// parseWindow reads "start" and "end" (RFC3339) or "hours" (float, ending
// now) from the query. No parameters select every stored sample.
func parseWindow(ctx *fasthttp.RequestCtx, now time.Time) (dbpkg.Window, error) {
	var w dbpkg.Window
	args := ctx.QueryArgs()

	if h := string(args.Peek("hours")); h != "" {
		f, err := strconv.ParseFloat(h, 64)
		if err != nil || f <= 0 {
			return w, fmt.Errorf("%w: hours must be a positive number", errBadWindow)
		}
		return dbpkg.Window{Start: now.Add(-time.Duration(f * float64(time.Hour))), End: now}, nil
	}

	for _, p := range []struct {
		dst  *time.Time
		name string
	}{{&w.Start, "start"}, {&w.End, "end"}} {
		raw := string(args.Peek(p.name))
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return w, fmt.Errorf("%w: %s must be RFC3339", errBadWindow, p.name)
		}
		*p.dst = t
	}
	if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
		return w, fmt.Errorf("%w: end before start", errBadWindow)
	}
	return w, nil
}

// queryInt reads a non-negative integer parameter, falling back to def.
func queryInt(ctx *fasthttp.RequestCtx, name string, def int) (int, error) {
	raw := string(ctx.QueryArgs().Peek(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}
