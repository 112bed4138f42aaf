package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/users-api/internal/apperror"
	"github.com/sakif/users-api/internal/model"
	"github.com/sakif/users-api/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Insert adds a new row and stores the assigned rowid in user.ID.
func (db *DB) Insert(ctx context.Context, user *model.User) error {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, username, email)
		 VALUES (?, ?, ?, ?)`,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
	)
	if err != nil {
		return wrap("inserting user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading inserted user id: %w", err)
	}
	user.ID = id

	return nil
}

// FindAll returns every user. No ORDER BY: callers must not rely on order.
func (db *DB) FindAll(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, first_name, last_name, username, email FROM users`,
	)
	if err != nil {
		return nil, wrap("listing users", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterating users", err)
	}

	return users, nil
}

// FindByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, username, email
		 FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, wrap("getting user "+strconv.FormatInt(id, 10), err)
	}

	return &u, nil
}

// Update overwrites all four fields. SQLite counts matched rows in
// RowsAffected even when the values are unchanged, so 0 means no such id.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET first_name = ?, last_name = ?, username = ?, email = ?
		 WHERE id = ?`,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
		user.ID,
	)
	if err != nil {
		return wrap("updating user "+strconv.FormatInt(user.ID, 10), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(user.ID, 10))
	}

	return nil
}

// Delete removes the user with id. Same RowsAffected check as Update.
func (db *DB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return wrap("deleting user "+strconv.FormatInt(id, 10), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}

	return nil
}

// wrap returns the classified kind as is, or adds the operation to an
// unclassified error.
func wrap(op string, err error) error {
	classified := classify(err)
	var appErr *apperror.AppError
	if errors.As(classified, &appErr) {
		return classified
	}
	return fmt.Errorf("sqlite: %s: %w", op, err)
}
