package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/database"
)

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row. Duplicate usernames surface as
// database.ErrUniqueViolation.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (username, password, first_name, last_name, phone, join_at, last_login_at)
		VALUES (:username, :password, :first_name, :last_name, :phone, :join_at, :last_login_at)`
	_, err := r.db.NamedExecContext(ctx, q, u)
	return database.Classify(err)
}

// GetByUsername fetches a full user row, sql.ErrNoRows when absent.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	const q = `SELECT username, password, first_name, last_name, phone, join_at, last_login_at
		FROM users WHERE username = $1`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, username); err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns the public profile of every user ordered by username.
func (r *UserRepo) List(ctx context.Context) ([]entity.Summary, error) {
	const q = `SELECT username, first_name, last_name, phone FROM users ORDER BY username`
	users := []entity.Summary{}
	if err := r.db.SelectContext(ctx, &users, q); err != nil {
		return nil, err
	}
	return users, nil
}

// TouchLastLogin sets last_login_at for one user, sql.ErrNoRows when absent.
func (r *UserRepo) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	const q = `UPDATE users SET last_login_at = $2 WHERE username = $1`
	res, err := r.db.ExecContext(ctx, q, username, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type counterpartRow struct {
	ID        int64      `db:"id"`
	Body      string     `db:"body"`
	SentAt    time.Time  `db:"sent_at"`
	ReadAt    *time.Time `db:"read_at"`
	Username  string     `db:"username"`
	FirstName string     `db:"first_name"`
	LastName  string     `db:"last_name"`
	Phone     string     `db:"phone"`
}

func (row counterpartRow) summary() *entity.Summary {
	return &entity.Summary{Username: row.Username, FirstName: row.FirstName, LastName: row.LastName, Phone: row.Phone}
}

// MessagesFrom lists messages sent by username joined with each recipient,
// oldest first.
func (r *UserRepo) MessagesFrom(ctx context.Context, username string) ([]entity.UserMessage, error) {
	const q = `SELECT m.id, m.body, m.sent_at, m.read_at,
			u.username, u.first_name, u.last_name, u.phone
		FROM messages AS m
		JOIN users AS u ON u.username = m.to_username
		WHERE m.from_username = $1
		ORDER BY m.sent_at, m.id`
	var rows []counterpartRow
	if err := r.db.SelectContext(ctx, &rows, q, username); err != nil {
		return nil, err
	}
	out := make([]entity.UserMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.UserMessage{
			ID:     snowflake.ID(row.ID),
			ToUser: row.summary(),
			Body:   row.Body,
			SentAt: row.SentAt,
			ReadAt: row.ReadAt,
		})
	}
	return out, nil
}

// MessagesTo lists messages received by username joined with each sender,
// oldest first.
func (r *UserRepo) MessagesTo(ctx context.Context, username string) ([]entity.UserMessage, error) {
	const q = `SELECT m.id, m.body, m.sent_at, m.read_at,
			u.username, u.first_name, u.last_name, u.phone
		FROM messages AS m
		JOIN users AS u ON u.username = m.from_username
		WHERE m.to_username = $1
		ORDER BY m.sent_at, m.id`
	var rows []counterpartRow
	if err := r.db.SelectContext(ctx, &rows, q, username); err != nil {
		return nil, err
	}
	out := make([]entity.UserMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.UserMessage{
			ID:       snowflake.ID(row.ID),
			FromUser: row.summary(),
			Body:     row.Body,
			SentAt:   row.SentAt,
			ReadAt:   row.ReadAt,
		})
	}
	return out, nil
}
