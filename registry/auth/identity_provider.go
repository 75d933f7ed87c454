package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"artifact_registry/registry/schema"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFoundWithEmail = errors.New("no user found for given email")
	ErrInvalidCredentials    = errors.New("invalid login credentials")
	ErrGeneratingJwt         = errors.New("error generating jwt")
	ErrEmailAlreadyInUse     = errors.New("email is already in use")
	ErrPasswordTooShort      = errors.New("password must be at least 8 characters")
)

type LoginResult struct {
	UserId      uuid.UUID
	AccessToken string
}

// IdentityProvider is the registry's only view of credential handling. The
// core never hashes passwords or mints tokens outside of an implementation
// of this interface.
type IdentityProvider interface {
	AuthMiddleware() chi.Middlewares

	AllowDirectSignup() bool

	LoginWithEmail(email, password string) (LoginResult, error)

	CreateUser(email, password string) (uuid.UUID, error)
}

func addInitialAdminToDb(db *gorm.DB, userId uuid.UUID, email string, password []byte) error {
	user := schema.User{
		Id:       userId,
		Email:    email,
		Password: password,
		IsAdmin:  true,
	}

	err := db.Transaction(func(txn *gorm.DB) error {
		var existingUser schema.User
		result := txn.Limit(1).Find(&existingUser, "id = ? or email = ?", userId, email)
		if result.Error != nil {
			slog.Error("sql error checking if admin has already been added", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected == 0 {
			result := txn.Create(&user)
			if result.Error != nil {
				slog.Error("sql error creating initial admin user", "error", result.Error)
				return schema.ErrDbAccessFailed
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error adding initial admin to db: %w", err)
	}

	return nil
}

type requestContextKey string

const userRequestContextKey requestContextKey = "user"
