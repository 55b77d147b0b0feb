package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"feetfit/internal/config"
	dbpkg "feetfit/internal/db"
)

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "ff_" + base64.URLEncoding.EncodeToString(b), nil
}

type apiKeyJSON struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Environment   string    `json:"environment"`
	RetentionDays int       `json:"retention_days"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	Key           string    `json:"key,omitempty"`
}

func keyJSON(k dbpkg.APIKey) apiKeyJSON {
	return apiKeyJSON{
		ID:            k.ID,
		Name:          k.Name,
		Environment:   k.Environment,
		RetentionDays: k.RetentionDays,
		Active:        k.Active,
		CreatedAt:     k.CreatedAt,
	}
}

// ListAPIKeys lists the session user's keys, or every key for admins. Key
// values are not returned.
func ListAPIKeys(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		q := db.Order("created_at DESC")
		if !user.IsAdmin {
			q = q.Where("user_id = ?", user.ID)
		}
		var keys []dbpkg.APIKey
		if err := q.Find(&keys).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		out := make([]apiKeyJSON, 0, len(keys))
		for _, k := range keys {
			out = append(out, keyJSON(k))
		}
		jsonResponse(ctx, map[string]any{"api_keys": out})
	}
}

func CreateAPIKey(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		name := string(ctx.PostArgs().Peek("name"))
		environment := string(ctx.PostArgs().Peek("environment"))
		retentionStr := string(ctx.PostArgs().Peek("retention_days"))

		if name == "" || environment == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "name and environment required")
			return
		}

		maxRetention := cfg.RetentionDays
		retentionDays := maxRetention
		if retentionStr != "" {
			v, err := strconv.Atoi(retentionStr)
			if err != nil || v <= 0 {
				errResponse(ctx, fasthttp.StatusBadRequest, "invalid retention_days")
				return
			}
			retentionDays = min(v, maxRetention)
		}

		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		key, err := generateAPIKey()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to generate API key")
			return
		}

		apiKey := &dbpkg.APIKey{
			UserID:        user.ID,
			Name:          name,
			Environment:   environment,
			Key:           key,
			Active:        true,
			RetentionDays: retentionDays,
		}
		if err := db.Create(apiKey).Error; err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "failed to create API key (name may already exist for this user)")
			return
		}

		out := keyJSON(*apiKey)
		out.Key = key
		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, out)
	}
}

// ownedKey loads the key named by id if the session user may manage it.
func ownedKey(ctx *fasthttp.RequestCtx, db *gorm.DB, id string) (*dbpkg.APIKey, bool) {
	user, ok := MustUser(ctx)
	if !ok {
		return nil, false
	}
	var apiKey dbpkg.APIKey
	if err := db.First(&apiKey, id).Error; err != nil {
		errResponse(ctx, fasthttp.StatusNotFound, "API key not found")
		return nil, false
	}
	if apiKey.UserID != user.ID && !user.IsAdmin {
		errResponse(ctx, fasthttp.StatusForbidden, "forbidden")
		return nil, false
	}
	return &apiKey, true
}

func DeleteAPIKey(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := string(ctx.QueryArgs().Peek("id"))
		if id == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "id required")
			return
		}

		apiKey, ok := ownedKey(ctx, db, id)
		if !ok {
			return
		}
		if cfg.InternalAPIKey != "" && apiKey.Key == cfg.InternalAPIKey {
			errResponse(ctx, fasthttp.StatusForbidden, "cannot delete internal API key")
			return
		}

		if err := db.Delete(apiKey).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete API key")
			return
		}
		jsonResponse(ctx, map[string]any{"status": "deleted", "id": apiKey.ID})
	}
}

func SetActiveAPIKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := string(ctx.PostArgs().Peek("id"))
		activeStr := string(ctx.PostArgs().Peek("active"))
		if id == "" || (activeStr != "true" && activeStr != "false") {
			errResponse(ctx, fasthttp.StatusBadRequest, "id and active (true|false) required")
			return
		}
		active := activeStr == "true"

		apiKey, ok := ownedKey(ctx, db, id)
		if !ok {
			return
		}
		if err := db.Model(apiKey).Update("active", active).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to update API key")
			return
		}
		jsonResponse(ctx, map[string]any{"status": "updated", "id": apiKey.ID, "active": active})
	}
}
