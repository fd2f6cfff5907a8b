// Package memstore keeps users, messages and books in process memory behind
// the same contracts as the sqlx repositories: sql.ErrNoRows for missing rows
// and the pkg/database sentinels for constraint violations.
package memstore

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	bookentity "github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/book/entity"
	msgentity "github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/message/entity"
	userentity "github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/database"
)

// DB holds all tables under one lock so message joins see consistent users.
type DB struct {
	mu       sync.RWMutex
	users    map[string]userentity.User
	messages []msgentity.Message
	books    map[string]bookentity.Book
}

func New() *DB {
	return &DB{
		users: make(map[string]userentity.User),
		books: make(map[string]bookentity.Book),
	}
}

func (db *DB) Users() *Users       { return &Users{db: db} }
func (db *DB) Messages() *Messages { return &Messages{db: db} }
func (db *DB) Books() *Books       { return &Books{db: db} }

// Users implements user.Store.
type Users struct{ db *DB }

func (s *Users) Create(_ context.Context, u *userentity.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[u.Username]; ok {
		return &database.ConstraintError{Err: database.ErrUniqueViolation, Constraint: "users_pkey"}
	}
	s.db.users[u.Username] = *u
	return nil
}

func (s *Users) GetByUsername(_ context.Context, username string) (*userentity.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (s *Users) List(_ context.Context) ([]userentity.Summary, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make([]userentity.Summary, 0, len(s.db.users))
	for _, u := range s.db.users {
		out = append(out, u.Public())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Users) TouchLastLogin(_ context.Context, username string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[username]
	if !ok {
		return sql.ErrNoRows
	}
	u.LastLoginAt = &at
	s.db.users[username] = u
	return nil
}

func (s *Users) MessagesFrom(_ context.Context, username string) ([]userentity.UserMessage, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []userentity.UserMessage{}
	for _, m := range s.db.sortedMessages() {
		if m.FromUsername != username {
			continue
		}
		to := s.db.users[m.ToUsername].Public()
		out = append(out, userentity.UserMessage{ID: m.ID, ToUser: &to, Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt})
	}
	return out, nil
}

func (s *Users) MessagesTo(_ context.Context, username string) ([]userentity.UserMessage, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []userentity.UserMessage{}
	for _, m := range s.db.sortedMessages() {
		if m.ToUsername != username {
			continue
		}
		from := s.db.users[m.FromUsername].Public()
		out = append(out, userentity.UserMessage{ID: m.ID, FromUser: &from, Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt})
	}
	return out, nil
}

// sortedMessages orders by sent_at then id, like the SQL repositories.
func (db *DB) sortedMessages() []msgentity.Message {
	out := append([]msgentity.Message(nil), db.messages...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.Before(out[j].SentAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Messages implements message.Store.
type Messages struct{ db *DB }

func (s *Messages) Create(_ context.Context, m *msgentity.Message) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[m.FromUsername]; !ok {
		return &database.ConstraintError{Err: database.ErrForeignKeyViolation, Constraint: database.MessagesFromUserFK}
	}
	if _, ok := s.db.users[m.ToUsername]; !ok {
		return &database.ConstraintError{Err: database.ErrForeignKeyViolation, Constraint: database.MessagesToUserFK}
	}
	for _, existing := range s.db.messages {
		if existing.ID == m.ID {
			return &database.ConstraintError{Err: database.ErrUniqueViolation, Constraint: "messages_pkey"}
		}
	}
	s.db.messages = append(s.db.messages, *m)
	return nil
}

func (s *Messages) Get(_ context.Context, id snowflake.ID) (*msgentity.Detail, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, m := range s.db.messages {
		if m.ID != id {
			continue
		}
		return &msgentity.Detail{
			ID:       m.ID,
			Body:     m.Body,
			SentAt:   m.SentAt,
			ReadAt:   m.ReadAt,
			FromUser: s.db.users[m.FromUsername].Public(),
			ToUser:   s.db.users[m.ToUsername].Public(),
		}, nil
	}
	return nil, sql.ErrNoRows
}

func (s *Messages) MarkRead(_ context.Context, id snowflake.ID, at time.Time) (*msgentity.Receipt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i := range s.db.messages {
		if s.db.messages[i].ID != id {
			continue
		}
		readAt := at
		s.db.messages[i].ReadAt = &readAt
		return &msgentity.Receipt{ID: id, ReadAt: at}, nil
	}
	return nil, sql.ErrNoRows
}

// Books implements book.Store.
type Books struct{ db *DB }

func (s *Books) List(_ context.Context) ([]bookentity.Book, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make([]bookentity.Book, 0, len(s.db.books))
	for _, b := range s.db.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ISBN < out[j].ISBN
	})
	return out, nil
}

func (s *Books) Get(_ context.Context, isbn string) (*bookentity.Book, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	b, ok := s.db.books[isbn]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (s *Books) Create(_ context.Context, b *bookentity.Book) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.books[b.ISBN]; ok {
		return &database.ConstraintError{Err: database.ErrUniqueViolation, Constraint: "books_pkey"}
	}
	s.db.books[b.ISBN] = *b
	return nil
}

func (s *Books) Update(_ context.Context, b *bookentity.Book) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.books[b.ISBN]; !ok {
		return sql.ErrNoRows
	}
	s.db.books[b.ISBN] = *b
	return nil
}

func (s *Books) Delete(_ context.Context, isbn string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.books[isbn]; !ok {
		return sql.ErrNoRows
	}
	delete(s.db.books, isbn)
	return nil
}
