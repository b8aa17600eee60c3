package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"blakkisvuohi/internal/models"
)

// RecordDrink appends one record stamped with created (now when zero).
func (db *DB) RecordDrink(ctx context.Context, userID string, mg int, description string, created time.Time) (*models.Drink, error) {
	if created.IsZero() {
		created = time.Now()
	}
	d := &models.Drink{UserID: userID, Alcohol: mg, Description: description, Created: created.UTC()}

	_, err := db.exec(ctx, `INSERT INTO users_drinks (userid, alcohol, description, created) VALUES (?, ?, ?, ?)`,
		d.UserID, d.Alcohol, d.Description, d.Created)
	if err != nil {
		return nil, wrap("record drink", err)
	}
	return d, nil
}

// RecordDrinksBackdated inserts all drinks in one transaction. Record i is stamped
// now - hoursAgo + i microseconds so the batch keeps its order.
func (db *DB) RecordDrinksBackdated(ctx context.Context, userID string, drinks []models.DrinkInput, hoursAgo float64) ([]models.Drink, error) {
	if len(drinks) == 0 {
		return nil, nil
	}

	start := time.Now().UTC().Add(-time.Duration(hoursAgo * float64(time.Hour)))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("record backdated drinks", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, db.rebind(`INSERT INTO users_drinks (userid, alcohol, description, created) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return nil, wrap("record backdated drinks", err)
	}
	defer stmt.Close()

	out := make([]models.Drink, 0, len(drinks))
	for i, in := range drinks {
		d := models.Drink{
			UserID:      userID,
			Alcohol:     in.Milligrams,
			Description: in.Description,
			Created:     start.Add(time.Duration(i) * time.Microsecond),
		}
		if _, err := stmt.ExecContext(ctx, d.UserID, d.Alcohol, d.Description, d.Created); err != nil {
			return nil, wrap(fmt.Sprintf("record backdated drink %d", i), err)
		}
		out = append(out, d)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap("record backdated drinks", err)
	}
	return out, nil
}

// UndoLastDrink removes the latest record, the last inserted one on equal
// timestamps. An empty ledger is not an error; the returned bool reports
// whether anything was removed.
func (db *DB) UndoLastDrink(ctx context.Context, userID string) (bool, error) {
	res, err := db.exec(ctx, `DELETE FROM users_drinks WHERE id = (
		SELECT id FROM users_drinks WHERE userid = ? ORDER BY created DESC, id DESC LIMIT 1)`,
		userID)
	if err != nil {
		return false, wrap("undo drink", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("undo drink", err)
	}
	return n > 0, nil
}

func (db *DB) GetAllDrinks(ctx context.Context, userID string) ([]models.Drink, error) {
	rows, err := db.query(ctx, `SELECT userid, alcohol, description, created FROM users_drinks
		WHERE userid = ? ORDER BY created ASC`, userID)
	if err != nil {
		return nil, wrap("get drinks", err)
	}
	return scanDrinks(rows, "get drinks")
}

// GetDrinksWithinHours returns records with now - created <= hours, oldest first.
func (db *DB) GetDrinksWithinHours(ctx context.Context, userID string, hours float64) ([]models.Drink, error) {
	rows, err := db.query(ctx, `SELECT userid, alcohol, description, created FROM users_drinks
		WHERE userid = ? AND created >= ? ORDER BY created ASC`, userID, windowStart(hours))
	if err != nil {
		return nil, wrap("get drinks within hours", err)
	}
	return scanDrinks(rows, "get drinks within hours")
}

// SumWithinHours returns the milligrams consumed inside the window.
func (db *DB) SumWithinHours(ctx context.Context, userID string, hours float64) (int, error) {
	var sum sql.NullInt64
	err := db.queryRow(ctx, `SELECT SUM(alcohol) FROM users_drinks WHERE userid = ? AND created >= ?`,
		userID, windowStart(hours)).Scan(&sum)
	if err != nil {
		return 0, wrap("sum drinks", err)
	}
	return int(sum.Int64), nil
}

// LastNUniqueDescriptions returns up to n of the latest drinks with distinct
// descriptions, newest first. Records described as exclude are skipped.
func (db *DB) LastNUniqueDescriptions(ctx context.Context, userID string, n int, exclude string) ([]models.Drink, error) {
	if n <= 0 {
		n = models.DefaultUniqueDrinks
	}

	rows, err := db.query(ctx, `SELECT userid, alcohol, description, created FROM users_drinks
		WHERE userid = ? AND description <> ? ORDER BY created DESC`, userID, exclude)
	if err != nil {
		return nil, wrap("last unique drinks", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{}, n)
	var out []models.Drink
	for rows.Next() && len(out) < n {
		var d models.Drink
		if err := rows.Scan(&d.UserID, &d.Alcohol, &d.Description, &d.Created); err != nil {
			return nil, wrap("last unique drinks", err)
		}
		if _, ok := seen[d.Description]; ok {
			continue
		}
		seen[d.Description] = struct{}{}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("last unique drinks", err)
	}
	return out, nil
}

func windowStart(hours float64) time.Time {
	return time.Now().UTC().Add(-time.Duration(hours * float64(time.Hour)))
}

func scanDrinks(rows *sql.Rows, op string) ([]models.Drink, error) {
	defer rows.Close()

	var drinks []models.Drink
	for rows.Next() {
		var d models.Drink
		if err := rows.Scan(&d.UserID, &d.Alcohol, &d.Description, &d.Created); err != nil {
			return nil, wrap(op, err)
		}
		drinks = append(drinks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return drinks, nil
}
