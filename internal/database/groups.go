package database

import (
	"context"
)

// JoinGroup adds the membership unless it already exists.
func (db *DB) JoinGroup(ctx context.Context, groupID, userID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("join group", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var n int
	err = tx.QueryRowContext(ctx, db.rebind(`SELECT COUNT(*) FROM users_in_groups WHERE groupid = ? AND userid = ?`),
		groupID, userID).Scan(&n)
	if err != nil {
		return wrap("join group", err)
	}
	if n == 0 {
		if _, err := tx.ExecContext(ctx, db.rebind(`INSERT INTO users_in_groups (groupid, userid) VALUES (?, ?)`),
			groupID, userID); err != nil {
			return wrap("join group", err)
		}
	}
	return wrap("join group", tx.Commit())
}

func (db *DB) LeaveGroup(ctx context.Context, groupID, userID string) error {
	_, err := db.exec(ctx, `DELETE FROM users_in_groups WHERE groupid = ? AND userid = ?`, groupID, userID)
	return wrap("leave group", err)
}

// GroupMembers returns the hashed user ids of a group.
func (db *DB) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := db.query(ctx, `SELECT userid FROM users_in_groups WHERE groupid = ? ORDER BY userid`, groupID)
	if err != nil {
		return nil, wrap("group members", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("group members", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("group members", err)
	}
	return ids, nil
}
