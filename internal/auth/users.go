// Package auth manages API users, password hashing and access tokens.
package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/db"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// UserOpts holds parameters for creating a user.
type UserOpts struct {
	Email    string
	Password string
	IsStaff  bool
}

var errBadCredentials = apperr.Unauthenticated("invalid email or password")

// CreateUser validates opts, hashes the password and stores the user.
func CreateUser(gdb *gorm.DB, h *Hasher, opts UserOpts) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	verr := apperr.Invalid()
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		verr.Add("email", "enter a valid email address")
	}
	if len(opts.Password) < MinPasswordLen {
		verr.Add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLen))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := h.Hash(opts.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{Email: email, PasswordHash: hash, IsStaff: opts.IsStaff}
	if err := gdb.Create(&user).Error; err != nil {
		err = db.TranslateWrite(err, "email", "user with this email already exists")
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	return &user, nil
}

// GetUser retrieves a user by ID.
func GetUser(gdb *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := gdb.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, fmt.Errorf("auth: get user %d: %w", id, db.TranslateRead(err, "user", id))
	}
	return &user, nil
}

// Authenticate returns the user with email when password matches.
func Authenticate(gdb *gorm.DB, h *Hasher, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	if err := gdb.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}

	ok, err := h.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("auth: verify user %d: %w", user.ID, err)
	}
	if !ok {
		return nil, errBadCredentials
	}
	return &user, nil
}
