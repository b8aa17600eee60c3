package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"blakkisvuohi/internal/models"
)

const userColumns = `userid, nick, weight, gender, height, read_terms, read_announcements, created`

// CreateUser stores a new user. UserID and Username are expected to be hashed and
// encrypted by the caller.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	if u.Created.IsZero() {
		u.Created = time.Now()
	}
	u.Created = u.Created.UTC()

	_, err := db.exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UserID, u.Username, u.Weight, u.Gender, u.Height, u.ReadTerms, u.ReadAnnouncements, u.Created)
	return wrap("create user", err)
}

// GetUser returns ErrNotFound when no user has the given hashed id.
func (db *DB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var (
		u    models.User
		nick sql.NullString
	)
	err := db.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE userid = ?`, userID).Scan(
		&u.UserID, &nick, &u.Weight, &u.Gender, &u.Height, &u.ReadTerms, &u.ReadAnnouncements, &u.Created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("get user", err)
	}
	u.Username = nick.String
	return &u, nil
}

func (db *DB) UpdateUserInfo(ctx context.Context, u *models.User) error {
	res, err := db.exec(ctx, `UPDATE users SET nick = ?, weight = ?, gender = ?, height = ?, read_terms = ? WHERE userid = ?`,
		u.Username, u.Weight, u.Gender, u.Height, u.ReadTerms, u.UserID)
	if err != nil {
		return wrap("update user", err)
	}
	return expectRow(res, "update user")
}

func (db *DB) UpdateReadAnnouncements(ctx context.Context, userID string, n int) error {
	res, err := db.exec(ctx, `UPDATE users SET read_announcements = ? WHERE userid = ?`, n, userID)
	if err != nil {
		return wrap("update read announcements", err)
	}
	return expectRow(res, "update read announcements")
}

func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.queryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, wrap("count users", err)
	}
	return n, nil
}

func expectRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
