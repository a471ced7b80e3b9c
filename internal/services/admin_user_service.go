package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"smartliving/site/internal/auth"
	"smartliving/site/internal/config"
	"smartliving/site/internal/models"
	"smartliving/site/internal/store"
)

const adminUsersCollection = "adminUsers"

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// LoginResult is returned to the admin client after a successful login.
type LoginResult struct {
	Token string            `json:"token"`
	User  *models.AdminUser `json:"user"`
}

type IAdminUserService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	FindByID(ctx context.Context, id string) (*models.AdminUser, error)
	// EnsureSeedAdmin creates the configured seed admin when no admin with
	// that email exists. It is a no-op when no seed email is configured.
	EnsureSeedAdmin(ctx context.Context) error
}

type adminUserService struct {
	store store.Store
	cfg   *config.Config
}

func NewAdminUserService(st store.Store, cfg *config.Config) IAdminUserService {
	return &adminUserService{store: st, cfg: cfg}
}

func (s *adminUserService) findByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var users []models.AdminUser
	q := store.Query{Filter: map[string]interface{}{"email": strings.ToLower(strings.TrimSpace(email))}, Limit: 1}
	if err := s.store.Find(ctx, adminUsersCollection, q, &users); err != nil {
		return nil, fmt.Errorf("failed to look up admin user: %w", err)
	}
	if len(users) == 0 {
		return nil, store.ErrNotFound
	}
	return &users[0], nil
}

func (s *adminUserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	token, err := auth.GenerateJWT(user.ID, user.Email, true, s.cfg.JwtSecret, s.cfg.JwtTTL)
	if err != nil {
		return nil, err
	}
	log.Printf("services: admin %s logged in", user.Email)
	return &LoginResult{Token: token, User: user}, nil
}

func (s *adminUserService) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := s.store.Get(ctx, adminUsersCollection, id, &user); err != nil {
		return nil, notFound(err, "admin user", id)
	}
	return &user, nil
}

func (s *adminUserService) EnsureSeedAdmin(ctx context.Context) error {
	email := strings.ToLower(strings.TrimSpace(s.cfg.SeedAdminEmail))
	if email == "" {
		return nil
	}
	_, err := s.findByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	hash, err := auth.HashPassword(s.cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin %s: %w", email, err)
	}
	doc, err := store.ToDoc(&models.AdminUser{Email: email, Name: "Admin", PasswordHash: hash})
	if err != nil {
		return err
	}
	doc["createdAt"] = store.ServerTimestamp{}
	if _, err := s.store.Create(ctx, adminUsersCollection, doc); err != nil {
		return fmt.Errorf("failed to create seed admin: %w", err)
	}
	log.Printf("services: seeded admin user %s", email)
	return nil
}
