package message

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/message/entity"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/validation"
)

// Store is the persistence the message service needs. Missing rows are
// reported as sql.ErrNoRows and unknown participants as
// database.ErrForeignKeyViolation.
type Store interface {
	Create(ctx context.Context, m *entity.Message) error
	Get(ctx context.Context, id snowflake.ID) (*entity.Detail, error)
	MarkRead(ctx context.Context, id snowflake.ID, at time.Time) (*entity.Receipt, error)
}

// IDGenerator produces message ids; *snowflake.Node satisfies it.
type IDGenerator interface {
	Generate() snowflake.ID
}

var (
	ErrNotFound         = errors.New("message not found")
	ErrUnknownRecipient = errors.New("unknown recipient")
	ErrUnknownSender    = errors.New("unknown sender")
)

// Service creates and reads messages. It does not check who is asking:
// access is enforced by RequireParticipant and RequireRecipient.
type Service struct {
	store Store
	ids   IDGenerator
	now   func() time.Time
}

func NewService(store Store, ids IDGenerator) *Service {
	return &Service{store: store, ids: ids, now: time.Now}
}

// CreateInput is the body of POST /messages.
type CreateInput struct {
	ToUsername *string `json:"to_username" validate:"required,min=1"`
	Body       *string `json:"body" validate:"required,min=1"`
}

// Create stores a message from fromUsername with sent_at set to now and no
// read_at.
func (s *Service) Create(ctx context.Context, fromUsername string, in CreateInput) (*entity.Message, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	m := &entity.Message{
		ID:           s.ids.Generate(),
		FromUsername: fromUsername,
		ToUsername:   *in.ToUsername,
		Body:         *in.Body,
		SentAt:       s.now().UTC(),
	}
	if err := s.store.Create(ctx, m); err != nil {
		if errors.Is(err, database.ErrForeignKeyViolation) {
			// a valid token whose user row is gone
			if database.ConstraintName(err) == database.MessagesFromUserFK {
				return nil, apierror.Wrap(apierror.KindAuthentication, "Unauthorized", ErrUnknownSender)
			}
			return nil, apierror.Wrap(apierror.KindValidation, "to_username does not exist", ErrUnknownRecipient)
		}
		return nil, err
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*entity.Detail, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}
		return nil, err
	}
	return d, nil
}

// MarkRead sets read_at to now, overwriting any earlier value.
func (s *Service) MarkRead(ctx context.Context, id snowflake.ID) (*entity.Receipt, error) {
	rc, err := s.store.MarkRead(ctx, id, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound()
		}
		return nil, err
	}
	return rc, nil
}

func notFound() error {
	return apierror.Wrap(apierror.KindNotFound, "message not found", ErrNotFound)
}

// ParseID parses a path id; malformed ids are reported as not found.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, notFound()
	}
	return id, nil
}
