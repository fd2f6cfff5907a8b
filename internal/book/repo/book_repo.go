package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/book/entity"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/database"
)

const columns = `isbn, amazon_url, author, language, pages, publisher, title, year`

// BookRepo provides data access for the books table using sqlx.
type BookRepo struct {
	db *sqlx.DB
}

func NewBookRepo(db *sqlx.DB) *BookRepo { return &BookRepo{db: db} }

// List returns all books ordered by title.
func (r *BookRepo) List(ctx context.Context) ([]entity.Book, error) {
	books := []entity.Book{}
	if err := r.db.SelectContext(ctx, &books, `SELECT `+columns+` FROM books ORDER BY title`); err != nil {
		return nil, err
	}
	return books, nil
}

// Get returns one book, sql.ErrNoRows when absent.
func (r *BookRepo) Get(ctx context.Context, isbn string) (*entity.Book, error) {
	var b entity.Book
	if err := r.db.GetContext(ctx, &b, `SELECT `+columns+` FROM books WHERE isbn = $1`, isbn); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts b. A taken isbn surfaces as database.ErrUniqueViolation.
func (r *BookRepo) Create(ctx context.Context, b *entity.Book) error {
	const q = `INSERT INTO books (` + columns + `)
		VALUES (:isbn, :amazon_url, :author, :language, :pages, :publisher, :title, :year)`
	_, err := r.db.NamedExecContext(ctx, q, b)
	return database.Classify(err)
}

// Update replaces every column except isbn, sql.ErrNoRows when absent.
func (r *BookRepo) Update(ctx context.Context, b *entity.Book) error {
	const q = `UPDATE books SET amazon_url = :amazon_url, author = :author, language = :language,
		pages = :pages, publisher = :publisher, title = :title, year = :year
		WHERE isbn = :isbn`
	res, err := r.db.NamedExecContext(ctx, q, b)
	if err != nil {
		return database.Classify(err)
	}
	return requireRow(res)
}

// Delete removes a book, sql.ErrNoRows when absent.
func (r *BookRepo) Delete(ctx context.Context, isbn string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE isbn = $1`, isbn)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
