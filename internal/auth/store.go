package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound indicates no user matched the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrSessionNotFound indicates no refresh session matched the token hash.
var ErrSessionNotFound = errors.New("session not found")

// ErrEmailTaken indicates the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// UserRecord is a stored staff account.
type UserRecord struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionRecord is a stored refresh session keyed by token hash.
type SessionRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	UserAgent string
	IP        string
	ExpiresAt time.Time
}

// Store persists staff accounts and refresh sessions in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

func (s *Store) CreateUser(ctx context.Context, name, email, hash, role string) (UserRecord, error) {
	if s == nil || s.Pool == nil {
		return UserRecord{}, errors.New("auth store not configured")
	}
	u := UserRecord{ID: uuid.New(), Name: name, Email: email, PasswordHash: hash, Role: role}
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return UserRecord{}, ErrEmailTaken
		}
		return UserRecord{}, err
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (UserRecord, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (UserRecord, error) {
	if s == nil || s.Pool == nil {
		return UserRecord{}, errors.New("auth store not configured")
	}
	var u UserRecord
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users `+where, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserRecord{}, ErrUserNotFound
	}
	return u, err
}

func (s *Store) CreateSession(ctx context.Context, rec SessionRecord) error {
	if s == nil || s.Pool == nil {
		return errors.New("auth store not configured")
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO auth_sessions (id, user_id, token_hash, user_agent, ip, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.UserID, rec.TokenHash, rec.UserAgent, rec.IP, rec.ExpiresAt)
	return err
}

func (s *Store) GetSessionByToken(ctx context.Context, tokenHash string) (SessionRecord, error) {
	if s == nil || s.Pool == nil {
		return SessionRecord{}, errors.New("auth store not configured")
	}
	var rec SessionRecord
	err := s.Pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, user_agent, ip, expires_at
		FROM auth_sessions
		WHERE token_hash = $1`, tokenHash).
		Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.UserAgent, &rec.IP, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SessionRecord{}, ErrSessionNotFound
	}
	return rec, err
}

func (s *Store) RotateSessionToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	if s == nil || s.Pool == nil {
		return errors.New("auth store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE auth_sessions SET token_hash = $2, expires_at = $3 WHERE id = $1`,
		id, tokenHash, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Store) DeleteSessionByToken(ctx context.Context, tokenHash string) error {
	if s == nil || s.Pool == nil {
		return errors.New("auth store not configured")
	}
	_, err := s.Pool.Exec(ctx, `DELETE FROM auth_sessions WHERE token_hash = $1`, tokenHash)
	return err
}

func (s *Store) DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) error {
	if s == nil || s.Pool == nil {
		return errors.New("auth store not configured")
	}
	_, err := s.Pool.Exec(ctx, `DELETE FROM auth_sessions WHERE user_id = $1`, userID)
	return err
}
