package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"productapi/internal/models"
	"productapi/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier decides whether a username/password pair may log in.
type CredentialVerifier interface {
	Verify(username, password string) error
}

// AcceptAnyVerifier accepts every pair. AuthService has already rejected
// empty values by the time it is consulted. There is no user directory
// behind it; use UserStoreVerifier for real accounts.
type AcceptAnyVerifier struct{}

func (AcceptAnyVerifier) Verify(string, string) error { return nil }

// UserStoreVerifier checks credentials against bcrypt hashes in a UserRepository.
type UserStoreVerifier struct {
	users repositories.UserRepository
}

// NewUserStoreVerifier creates a verifier backed by users.
func NewUserStoreVerifier(users repositories.UserRepository) *UserStoreVerifier {
	return &UserStoreVerifier{users: users}
}

// Verify looks up the user and compares the password hash. Unknown users and
// wrong passwords produce the same error.
func (v *UserStoreVerifier) Verify(username, password string) error {
	user, err := v.users.GetByUsername(username)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			log.Printf("Credential lookup failed for %s: %v", username, err)
		}
		return errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return errors.New("invalid credentials")
	}
	return nil
}

// EnsureUser creates username with a bcrypt hash of password unless it
// already exists.
func (v *UserStoreVerifier) EnsureUser(username, password string) error {
	if _, err := v.users.GetByUsername(username); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return v.users.Create(&models.User{Username: username, Password: string(hashed)})
}

// AuthService handles login and token issuance.
type AuthService struct {
	tokens   *TokenService
	verifier CredentialVerifier
}

// NewAuthService creates a new AuthService.
func NewAuthService(tokens *TokenService, verifier CredentialVerifier) *AuthService {
	return &AuthService{
		tokens:   tokens,
		verifier: verifier,
	}
}

// Login checks the credentials and returns a token whose subject is username.
func (s *AuthService) Login(username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", NewAuthError("invalid credentials")
	}
	if err := s.verifier.Verify(username, password); err != nil {
		return "", NewAuthError("invalid credentials")
	}
	token, err := s.tokens.Issue(username)
	if err != nil {
		return "", newInternalError("failed to generate token", err)
	}
	return token, nil
}
