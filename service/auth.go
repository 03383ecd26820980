package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"admin-service/apperr"
	"admin-service/logger"
	"admin-service/model"
	"admin-service/repository"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// SignupInput is the body of the signup endpoints.
type SignupInput struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	AdminToken string `json:"adminToken"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthService registers users and issues session tokens.
type AuthService struct {
	users      UserStore
	jwt        *JWTManager
	adminToken string
	bcryptCost int
	log        logger.Logger
}

func NewAuthService(users UserStore, jwt *JWTManager, adminToken string, log logger.Logger) *AuthService {
	return &AuthService{
		users:      users,
		jwt:        jwt,
		adminToken: adminToken,
		bcryptCost: bcrypt.DefaultCost,
		log:        log,
	}
}

// WithBcryptCost overrides the hashing cost.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

// Signup creates a regular user and returns it with a session token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, string, error) {
	return s.register(ctx, in, model.RoleUser)
}

// AdminSignup creates an admin when the registration token matches.
func (s *AuthService) AdminSignup(ctx context.Context, in SignupInput) (*model.User, string, error) {
	if in.AdminToken == "" {
		return nil, "", apperr.Forbidden("Admin token is required")
	}
	if s.adminToken == "" || subtle.ConstantTimeCompare([]byte(in.AdminToken), []byte(s.adminToken)) != 1 {
		s.log.Warn("Invalid admin registration token", logger.String("username", in.Username))
		return nil, "", apperr.Forbidden("Invalid admin registration token")
	}
	return s.register(ctx, in, model.RoleAdmin)
}

func (s *AuthService) register(ctx context.Context, in SignupInput, role string) (*model.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, "", apperr.Validation("Please provide username, email and password")
	}
	if len(in.Password) < minPasswordLength {
		return nil, "", apperr.Validation("Password must be at least %d characters", minPasswordLength)
	}

	existing, err := s.users.FindByEmailOrUsername(ctx, in.Email, in.Username)
	switch {
	case err == nil:
		if existing.Email == in.Email {
			return nil, "", apperr.Conflict("Email already in use")
		}
		return nil, "", apperr.Conflict("Username already taken")
	case !repository.IsNotFound(err):
		return nil, "", fmt.Errorf("look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
		Role:     role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", apperr.Conflict("Username or email already in use")
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwt.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	s.log.Info("User registered",
		logger.String("user_id", user.ID.Hex()),
		logger.String("role", role),
	)
	return user, token, nil
}

// Login checks the credentials and returns the user with a fresh token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*model.User, string, error) {
	if in.Username == "" || in.Password == "" {
		return nil, "", apperr.Validation("Please provide username and password")
	}

	user, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", apperr.Unauthorized("Invalid credentials")
		}
		return nil, "", fmt.Errorf("look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, "", apperr.Unauthorized("Invalid credentials")
	}

	token, err := s.jwt.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return user, token, nil
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperr.Unauthorized("Not authorized to access this route")
	}
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		s.log.Debug("Token verification failed", logger.Error(err))
		return nil, apperr.Unauthorized("Not authorized to access this route")
	}
	id, err := parseID(claims.ID, "user")
	if err != nil {
		return nil, apperr.Unauthorized("Not authorized to access this route")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Unauthorized("User not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Expiration is the lifetime of issued tokens and session cookies.
func (s *AuthService) Expiration() int {
	return int(s.jwt.Expiration().Seconds())
}
