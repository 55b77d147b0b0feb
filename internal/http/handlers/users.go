package handlers

import (
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"feetfit/internal/config"
	dbpkg "feetfit/internal/db"
)

type userJSON struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func ListUsers(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var users []dbpkg.User
		if err := db.Order("username ASC").Find(&users).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		out := make([]userJSON, 0, len(users))
		for _, u := range users {
			out = append(out, userJSON{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt})
		}
		jsonResponse(ctx, map[string]any{"users": out})
	}
}

func CreateUser(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		username := string(ctx.PostArgs().Peek("username"))
		password := string(ctx.PostArgs().Peek("password"))
		isAdmin := string(ctx.PostArgs().Peek("is_admin")) == "true"

		if username == "" || password == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "username and password required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to hash password")
			return
		}

		user := &dbpkg.User{
			Username:     username,
			PasswordHash: string(hash),
			IsAdmin:      isAdmin,
		}
		if err := db.Create(user).Error; err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "failed to create user (username may already exist)")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, userJSON{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin, CreatedAt: user.CreatedAt})
	}
}

// targetUser loads the {id} path user, refusing the bootstrap admin.
func targetUser(ctx *fasthttp.RequestCtx, db *gorm.DB, cfg *config.Config, action string) (*dbpkg.User, bool) {
	idStr, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, "invalid user ID")
		return nil, false
	}

	var user dbpkg.User
	if err := db.First(&user, id).Error; err != nil {
		errResponse(ctx, fasthttp.StatusNotFound, "user not found")
		return nil, false
	}
	if user.Username == cfg.AdminUser {
		errResponse(ctx, fasthttp.StatusForbidden, "cannot "+action+" bootstrap admin user")
		return nil, false
	}
	return &user, true
}

func ResetPassword(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := targetUser(ctx, db, cfg, "modify")
		if !ok {
			return
		}

		password := string(ctx.PostArgs().Peek("password"))
		if password == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "password required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to hash password")
			return
		}

		if err := db.Model(user).Update("password_hash", string(hash)).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to update password")
			return
		}
		jsonResponse(ctx, map[string]any{"status": "password reset", "id": user.ID})
	}
}

func DeleteUser(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := targetUser(ctx, db, cfg, "delete")
		if !ok {
			return
		}
		if err := db.Delete(user).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete user")
			return
		}
		jsonResponse(ctx, map[string]any{"status": "deleted", "id": user.ID})
	}
}
