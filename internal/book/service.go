package book

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/book/entity"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/validation"
)

// Store is the persistence the book service needs. Missing rows are reported
// as sql.ErrNoRows and taken isbns as database.ErrUniqueViolation.
type Store interface {
	List(ctx context.Context) ([]entity.Book, error)
	Get(ctx context.Context, isbn string) (*entity.Book, error)
	Create(ctx context.Context, b *entity.Book) error
	Update(ctx context.Context, b *entity.Book) error
	Delete(ctx context.Context, isbn string) error
}

var (
	ErrNotFound      = errors.New("book not found")
	ErrDuplicateBook = errors.New("isbn already exists")
)

// Input is a book payload. Pointer fields let validation tell a missing
// field from a zero value. Integer bounds match the INTEGER columns.
type Input struct {
	ISBN      *string `json:"isbn" validate:"required,min=1"`
	AmazonURL *string `json:"amazon_url" validate:"required,min=1"`
	Author    *string `json:"author" validate:"required,min=1"`
	Language  *string `json:"language" validate:"required,min=1"`
	Pages     *int    `json:"pages" validate:"required,min=1,max=2147483647"`
	Publisher *string `json:"publisher" validate:"required,min=1"`
	Title     *string `json:"title" validate:"required,min=1"`
	Year      *int    `json:"year" validate:"required,min=-2147483648,max=2147483647"`
}

func (in Input) book() *entity.Book {
	return &entity.Book{
		ISBN:      *in.ISBN,
		AmazonURL: *in.AmazonURL,
		Author:    *in.Author,
		Language:  *in.Language,
		Pages:     *in.Pages,
		Publisher: *in.Publisher,
		Title:     *in.Title,
		Year:      *in.Year,
	}
}

// Service encapsulates book CRUD and depends on a Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]entity.Book, error) {
	return s.store.List(ctx)
}

func (s *Service) GetByIsbn(ctx context.Context, isbn string) (*entity.Book, error) {
	b, err := s.store.Get(ctx, isbn)
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

// Create validates in and stores the book.
func (s *Service) Create(ctx context.Context, in Input) (*entity.Book, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	b := in.book()
	if err := s.store.Create(ctx, b); err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

// Update replaces the book stored under isbn. The isbn in the payload is
// optional and never changes the key.
func (s *Service) Update(ctx context.Context, isbn string, in Input) (*entity.Book, error) {
	in.ISBN = &isbn
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	b := in.book()
	if err := s.store.Update(ctx, b); err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, isbn string) error {
	return mapErr(s.store.Delete(ctx, isbn))
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return apierror.Wrap(apierror.KindNotFound, "There is no book with that isbn", ErrNotFound)
	case errors.Is(err, database.ErrUniqueViolation):
		return apierror.Wrap(apierror.KindConflict, "A book with that isbn already exists", ErrDuplicateBook)
	default:
		return err
	}
}
