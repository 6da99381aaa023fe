// Package store is the persistence layer over the users table. It is the
// only place that touches password hashes; everything above it sees either a
// full User record or a sentinel error.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gittrends-dev/gittrends-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers unknown email, OAuth-only account, and
	// wrong password alike so the gateway cannot be used for enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// GitHubIdentity is what the OAuth exchange yields, ready for reconciliation.
type GitHubIdentity struct {
	ID        string
	Email     string
	Username  string
	Name      string
	AvatarURL string
}

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return &user, nil
}

// CreateLocal registers an email/password account. Duplicate emails surface
// as ErrEmailTaken; the unique index on email settles concurrent sign-ups.
func (s *UserStore) CreateLocal(ctx context.Context, email, password, name string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	hashed := string(hash)
	user := models.User{
		Email:    email,
		Password: &hashed,
		Name:     defaultName(name, email),
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// UpsertFromGitHub reconciles an external identity into the users table,
// keyed on email. An existing record gets its linkage and profile fields
// refreshed and its password left alone; a missing one is created without a
// password. Losing the unique-index race to a concurrent callback degrades
// to the update path.
func (s *UserStore) UpsertFromGitHub(ctx context.Context, ident GitHubIdentity) (*models.User, error) {
	existing, err := s.FindByEmail(ctx, ident.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	if existing != nil {
		return s.linkGitHub(ctx, existing, ident)
	}

	user := models.User{
		Email:          ident.Email,
		Name:           defaultName(ident.Name, ident.Email),
		AvatarURL:      ident.AvatarURL,
		GitHubID:       &ident.ID,
		GitHubUsername: optional(ident.Username),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, findErr := s.FindByEmail(ctx, ident.Email)
			if findErr != nil {
				return nil, findErr
			}
			return s.linkGitHub(ctx, existing, ident)
		}
		return nil, fmt.Errorf("failed to create user from github identity: %w", err)
	}
	return &user, nil
}

func (s *UserStore) linkGitHub(ctx context.Context, user *models.User, ident GitHubIdentity) (*models.User, error) {
	updates := map[string]interface{}{
		"github_id": ident.ID,
	}
	if ident.Username != "" {
		updates["github_username"] = ident.Username
	}
	if ident.Name != "" {
		updates["name"] = ident.Name
	}
	if ident.AvatarURL != "" {
		updates["avatar_url"] = ident.AvatarURL
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to link github identity: %w", err)
	}
	return s.FindByID(ctx, user.ID.String())
}

// VerifyLocalCredentials returns the user only when the email exists, the
// account has a password, and the password matches. Every failure is the
// same ErrInvalidCredentials.
func (s *UserStore) VerifyLocalCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func defaultName(name, email string) string {
	if name != "" {
		return name
	}
	return strings.Split(email, "@")[0]
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
