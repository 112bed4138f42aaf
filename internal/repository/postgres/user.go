package postgres

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

var _ repository.UserRepository = (*DB)(nil)

// Insert adds a new row; RETURNING hands back the identity value.
func (db *DB) Insert(ctx context.Context, user *model.User) error {
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (first_name, last_name, username, email)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		user.FirstName, user.LastName, user.Username, user.Email,
	).Scan(&user.ID)
	if err != nil {
		return wrap("inserting user", err)
	}
	return nil
}

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
			return nil, fmt.Errorf("postgres: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterating users", err)
	}

	return users, nil
}

func (db *DB) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, username, email
		 FROM users WHERE id = $1`,
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

// Update overwrites all four fields. PostgreSQL reports matched rows, so an
// unchanged row still counts as affected.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET first_name = $1, last_name = $2, username = $3, email = $4
		 WHERE id = $5`,
		user.FirstName, user.LastName, user.Username, user.Email, user.ID,
	)
	if err != nil {
		return wrap("updating user "+strconv.FormatInt(user.ID, 10), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(user.ID, 10))
	}

	return nil
}

func (db *DB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrap("deleting user "+strconv.FormatInt(id, 10), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}

	return nil
}

func wrap(op string, err error) error {
	classified := classify(err)
	var appErr *apperror.AppError
	if errors.As(classified, &appErr) {
		return classified
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}
