package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrBootstrapDenied    = errors.New("bootstrap denied")
)

type Service struct {
	db             *sql.DB
	sessionTTL     time.Duration
	bcryptCost     int
	bootstrapToken string
}

type ServiceConfig struct {
	SessionTTL     time.Duration
	BcryptCost     int
	BootstrapToken string
}

type User struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role"`
	IsActive bool    `json:"is_active"`
}

type CreateUserInput struct {
	Username string
	Email    string
	FullName string
	Role     string
	Password string
}

type BootstrapInput struct {
	Token    string
	Username string
	Email    string
	FullName string
	Password string
}

func NewService(db *sql.DB, cfg ServiceConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		db:             db,
		sessionTTL:     cfg.SessionTTL,
		bcryptCost:     cfg.BcryptCost,
		bootstrapToken: cfg.BootstrapToken,
	}
}

func (s *Service) AuthenticatePassword(ctx context.Context, username, password string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, full_name, role, is_active, password_hash
		FROM users
		WHERE lower(username) = $1
		LIMIT 1
	`, username)

	var (
		u            User
		email        sql.NullString
		passwordHash string
	)
	if err := row.Scan(&u.ID, &u.Username, &email, &u.FullName, &u.Role, &u.IsActive, &passwordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if email.Valid {
		u.Email = &email.String
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *Service) CreateSession(ctx context.Context, userID int64, ipAddress, userAgent string) (string, time.Time, error) {
	token, err := generateToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	expiresAt := time.Now().Add(s.sessionTTL)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (user_id, session_token_hash, expires_at, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), now())
	`, userID, hashToken(token), expiresAt, strings.TrimSpace(ipAddress), strings.TrimSpace(userAgent))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}
	return token, expiresAt, nil
}

func (s *Service) GetSessionUser(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.full_name, u.role, u.is_active
		FROM auth_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_token_hash = $1
		  AND s.revoked_at IS NULL
		  AND s.expires_at > now()
		LIMIT 1
	`, hashToken(token))

	var (
		u     User
		email sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &email, &u.FullName, &u.Role, &u.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("query session user: %w", err)
	}
	if email.Valid {
		u.Email = &email.String
	}
	if !u.IsActive {
		return nil, ErrUnauthorized
	}
	return &u, nil
}

func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE auth_sessions
		SET revoked_at = now()
		WHERE session_token_hash = $1
		  AND revoked_at IS NULL
	`, hashToken(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// BootstrapAdmin creates the first admin account. It only works while the
// users table is empty and the caller presents the configured token.
func (s *Service) BootstrapAdmin(ctx context.Context, in BootstrapInput) (*User, error) {
	if s.bootstrapToken == "" || in.Token != s.bootstrapToken {
		return nil, ErrBootstrapDenied
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil, ErrBootstrapDenied
	}

	return s.insertUser(ctx, CreateUserInput{
		Username: in.Username,
		Email:    in.Email,
		FullName: in.FullName,
		Role:     "admin",
		Password: in.Password,
	})
}

func (s *Service) CreateUser(ctx context.Context, actorID int64, in CreateUserInput) (*User, error) {
	u, err := s.insertUser(ctx, in)
	if err != nil {
		return nil, err
	}

	_, _ = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (actor_id, action, entity, entity_id, created_at)
		VALUES (NULLIF($1,0), 'user_created', 'user', $2, now())
	`, actorID, fmt.Sprintf("%d", u.ID))

	return u, nil
}

func (s *Service) insertUser(ctx context.Context, in CreateUserInput) (*User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	role := strings.ToLower(strings.TrimSpace(in.Role))

	if username == "" || fullName == "" || len(in.Password) < 8 {
		return nil, ErrInvalidInput
	}
	if !isValidRole(role) {
		return nil, fmt.Errorf("%w: role must be admin, reviewer, or client", ErrInvalidInput)
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
		}
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = $1)
	`, username).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, ErrDuplicateUsername
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var u User
	var emailOut sql.NullString
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, full_name, role, password_hash, is_active, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, TRUE, now(), now())
		RETURNING id, username, email, full_name, role, is_active
	`, username, email, fullName, role, string(passwordHash)).Scan(
		&u.ID, &u.Username, &emailOut, &u.FullName, &u.Role, &u.IsActive)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if emailOut.Valid {
		u.Email = &emailOut.String
	}
	return &u, nil
}

func (s *Service) ListUsers(ctx context.Context, role string, limit, offset int) ([]User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != "" && !isValidRole(role) {
		return nil, ErrInvalidInput
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, full_name, role, is_active
		FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`, role, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		var (
			u     User
			email sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Username, &email, &u.FullName, &u.Role, &u.IsActive); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if email.Valid {
			u.Email = &email.String
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

func (s *Service) DeactivateUser(ctx context.Context, actorID, userID int64) error {
	if userID <= 0 {
		return ErrInvalidInput
	}
	if userID == actorID {
		return fmt.Errorf("%w: cannot deactivate own account", ErrForbidden)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrUserNotFound
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE auth_sessions
		SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

func isValidRole(role string) bool {
	switch role {
	case "admin", "reviewer", "client":
		return true
	default:
		return false
	}
}

func generateToken(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
