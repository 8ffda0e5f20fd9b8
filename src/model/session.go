package model

import (
	"database/sql"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session ties an issued access/refresh token pair to a user so
// tokens can be revoked server-side at logout.
type Session struct {
	ID           int64
	UserID       int64
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func CreateSession(db *sql.DB, userID int64, token, refreshToken string, expiresAt time.Time) error {
	_, err := db.Exec(`
		INSERT INTO sessions (user_id, token, refresh_token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, token, refreshToken, expiresAt, time.Now())
	return err
}

func getSession(row *sql.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	return getSession(db.QueryRow(`
		SELECT id, user_id, token, refresh_token, expires_at, created_at
		FROM sessions WHERE token = ?`, token))
}

func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	return getSession(db.QueryRow(`
		SELECT id, user_id, token, refresh_token, expires_at, created_at
		FROM sessions WHERE refresh_token = ?`, refreshToken))
}

// RotateSession swaps the token pair on refresh, keeping the row.
func RotateSession(db *sql.DB, id int64, token, refreshToken string, expiresAt time.Time) error {
	_, err := db.Exec(`UPDATE sessions SET token = ?, refresh_token = ?, expires_at = ? WHERE id = ?`,
		token, refreshToken, expiresAt, id)
	return err
}

func DeleteSessionByToken(db *sql.DB, token string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func DeleteSessionsForUser(db *sql.DB, userID int64) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

// DeleteExpiredSessions is a housekeeping sweep callable at startup.
func DeleteExpiredSessions(db *sql.DB) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now())
	return err
}
