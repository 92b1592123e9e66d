// seed-admin creates or updates an admin console user and prints a bearer
// token for the /internal routes.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... TOKEN_HOUR_LIFESPAN=12 \
//	  go run ./cmd/seed-admin -username storeAdmin
//
// With -session the user also gets a Redis session token (header `token`).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/models"
	"github.com/stitchline/store_backend/utils"
	"gorm.io/gorm"
)

func main() {
	username := flag.String("username", "storeAdmin", "admin username")
	name := flag.String("name", "Store Admin", "display name")
	email := flag.String("email", "", "optional email")
	session := flag.Bool("session", false, "also store a Redis session token")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	var user models.User
	err := db.WithContext(ctx).Where("username = ?", *username).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := models.CreateUser(ctx, db, &models.NewUser{
			Username: *username,
			Name:     *name,
			Email:    strings.TrimSpace(*email),
			Role:     models.UserRoleAdmin,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		user = *created
		fmt.Printf("Created admin user: username=%q\n", user.Username)
	case err != nil:
		fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
		os.Exit(1)
	default:
		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
			"name":      *name,
			"is_active": utils.NewTrue(),
			"role":      models.UserRoleAdmin,
		}).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated admin user: username=%q\n", user.Username)
	}

	token, err := utils.JwtGenerate(user.ID, utils.RoleAdmin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Authorization: Bearer %s\n", token)

	if *session {
		config.ConnectRedisWithRetry()
		_ = user.RemoveInstanceRedis()
		sessionToken := uuid.NewString()
		if err := config.SetRedisValue("Token:"+sessionToken, user.Username, 24*time.Hour); err != nil {
			fmt.Fprintf(os.Stderr, "failed to store session: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("token: %s\n", sessionToken)
	}
}
