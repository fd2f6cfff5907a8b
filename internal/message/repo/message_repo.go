package repo

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/message/entity"
	userentity "github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/database"
)

// MessageRepo provides data access for the messages table using sqlx.
type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo { return &MessageRepo{db: db} }

// Create inserts m. Unknown usernames surface as
// database.ErrForeignKeyViolation.
func (r *MessageRepo) Create(ctx context.Context, m *entity.Message) error {
	const q = `INSERT INTO messages (id, from_username, to_username, body, sent_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, q, m.ID.Int64(), m.FromUsername, m.ToUsername, m.Body, m.SentAt)
	return database.Classify(err)
}

type detailRow struct {
	ID            int64      `db:"id"`
	Body          string     `db:"body"`
	SentAt        time.Time  `db:"sent_at"`
	ReadAt        *time.Time `db:"read_at"`
	FromUsername  string     `db:"from_username"`
	FromFirstName string     `db:"from_first_name"`
	FromLastName  string     `db:"from_last_name"`
	FromPhone     string     `db:"from_phone"`
	ToUsername    string     `db:"to_username"`
	ToFirstName   string     `db:"to_first_name"`
	ToLastName    string     `db:"to_last_name"`
	ToPhone       string     `db:"to_phone"`
}

// Get returns a message with both participants, sql.ErrNoRows when absent.
func (r *MessageRepo) Get(ctx context.Context, id snowflake.ID) (*entity.Detail, error) {
	const q = `SELECT m.id, m.body, m.sent_at, m.read_at,
			f.username AS from_username, f.first_name AS from_first_name,
			f.last_name AS from_last_name, f.phone AS from_phone,
			t.username AS to_username, t.first_name AS to_first_name,
			t.last_name AS to_last_name, t.phone AS to_phone
		FROM messages AS m
		JOIN users AS f ON f.username = m.from_username
		JOIN users AS t ON t.username = m.to_username
		WHERE m.id = $1`
	var row detailRow
	if err := r.db.GetContext(ctx, &row, q, id.Int64()); err != nil {
		return nil, err
	}
	return &entity.Detail{
		ID:     snowflake.ID(row.ID),
		Body:   row.Body,
		SentAt: row.SentAt,
		ReadAt: row.ReadAt,
		FromUser: userentity.Summary{
			Username:  row.FromUsername,
			FirstName: row.FromFirstName,
			LastName:  row.FromLastName,
			Phone:     row.FromPhone,
		},
		ToUser: userentity.Summary{
			Username:  row.ToUsername,
			FirstName: row.ToFirstName,
			LastName:  row.ToLastName,
			Phone:     row.ToPhone,
		},
	}, nil
}

// MarkRead overwrites read_at, sql.ErrNoRows when the message is absent.
func (r *MessageRepo) MarkRead(ctx context.Context, id snowflake.ID, at time.Time) (*entity.Receipt, error) {
	const q = `UPDATE messages SET read_at = $2 WHERE id = $1 RETURNING id, read_at`
	var row struct {
		ID     int64     `db:"id"`
		ReadAt time.Time `db:"read_at"`
	}
	if err := r.db.GetContext(ctx, &row, q, id.Int64(), at); err != nil {
		return nil, err
	}
	return &entity.Receipt{ID: snowflake.ID(row.ID), ReadAt: row.ReadAt}, nil
}
