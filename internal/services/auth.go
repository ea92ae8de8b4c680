package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"cattube/internal/logger"
	"cattube/internal/middleware"
	"cattube/internal/models"
	"cattube/internal/repository"
)

const (
	bcryptCost        = 12
	maxUsernameLength = 150

	msgInvalidLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."
)

var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

type AuthService struct {
	users repository.UserStore
	jwt   *middleware.JWTAuth
}

func NewAuthService(users repository.UserStore, jwt *middleware.JWTAuth) *AuthService {
	return &AuthService{users: users, jwt: jwt}
}

// CreateUser validates and stores a new account.
func (s *AuthService) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)

	verr := &ValidationError{}
	switch {
	case username == "":
		verr.add("username", "This field is required.")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		verr.add("username", fmt.Sprintf("Ensure this value has at most %d characters.", maxUsernameLength))
	case !usernameRegex.MatchString(username):
		verr.add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	if err := validatePassword(password); err != nil {
		verr.add("password", err.Error())
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Field: "username", Message: "A user with that username already exists."}
		}
		return nil, err
	}

	logger.Infof("Created user %s (%s)", user.Username, user.ID)
	return user, nil
}

// Login checks the credentials and returns the matching user.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &UnauthorizedError{Message: msgInvalidLogin}
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: msgInvalidLogin}
	}
	return user, nil
}

// IssueToken logs in and returns a short-lived API access token.
func (s *AuthService) IssueToken(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	user, err := s.Login(ctx, req)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken: accessToken,
		ExpiresIn:   int(middleware.AccessTokenTTL.Seconds()),
	}, nil
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("Password must be at least 8 characters")
	}
	hasNumber := false
	for _, ch := range pw {
		if unicode.IsDigit(ch) {
			hasNumber = true
			break
		}
	}
	if !hasNumber {
		return fmt.Errorf("Password must contain at least one number")
	}
	return nil
}
