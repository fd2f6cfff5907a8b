package message

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/memstore"
	userentity "github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
)

func strp(s string) *string { return &s }

func seedUsers(t *testing.T, db *memstore.DB, names ...string) {
	t.Helper()
	for _, name := range names {
		u := &userentity.User{Username: name, Password: "x", FirstName: name, LastName: "Test", Phone: "1", JoinAt: time.Now()}
		if err := db.Users().Create(context.Background(), u); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
}

func newTestService(t *testing.T) (*Service, *memstore.DB) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	db := memstore.New()
	seedUsers(t, db, "alice", "bob", "carol")
	return NewService(db.Messages(), node), db
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, "alice", CreateInput{ToUsername: strp("bob"), Body: strp("hello")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == 0 || m.FromUsername != "alice" || m.ToUsername != "bob" || m.ReadAt != nil || m.SentAt.IsZero() {
		t.Fatalf("unexpected message %+v", m)
	}

	d, err := svc.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.FromUser.Username != "alice" || d.ToUser.Username != "bob" || d.Body != "hello" {
		t.Fatalf("unexpected detail %+v", d)
	}
	if d.ToUser.FirstName != "bob" {
		t.Fatalf("expected recipient profile, got %+v", d.ToUser)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
		msg  string
	}{
		{name: "missing recipient", in: CreateInput{Body: strp("hi")}, msg: "to_username is required"},
		{name: "empty body", in: CreateInput{ToUsername: strp("bob"), Body: strp("")}, msg: "body must not be empty"},
		{name: "unknown recipient", in: CreateInput{ToUsername: strp("zed"), Body: strp("hi")}, msg: "to_username does not exist"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "alice", tc.in)
			var apiErr *apierror.Error
			if !errors.As(err, &apiErr) || apiErr.Kind != apierror.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if apiErr.Message != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, apiErr.Message)
			}
		})
	}
}

func TestCreateFromMissingSender(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "ghost", CreateInput{ToUsername: strp("bob"), Body: strp("hi")})
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != apierror.KindAuthentication {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if !errors.Is(err, ErrUnknownSender) || errors.Is(err, ErrUnknownRecipient) {
		t.Fatalf("expected ErrUnknownSender only, got %v", err)
	}
}

func TestMarkReadOverwrites(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	m, err := svc.Create(ctx, "alice", CreateInput{ToUsername: strp("bob"), Body: strp("hello")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }
	rc, err := svc.MarkRead(ctx, m.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if rc.ID != m.ID || !rc.ReadAt.Equal(first) {
		t.Fatalf("unexpected receipt %+v", rc)
	}

	second := first.Add(time.Hour)
	svc.now = func() time.Time { return second }
	if _, err := svc.MarkRead(ctx, m.ID); err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	d, err := svc.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.ReadAt == nil || !d.ReadAt.Equal(second) {
		t.Fatalf("expected read_at overwritten to %v, got %v", second, d.ReadAt)
	}
}

func TestMissingMessage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Get(ctx, snowflake.ID(12345)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.MarkRead(ctx, snowflake.ID(12345)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("mark read: expected ErrNotFound, got %v", err)
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("1234"); err != nil || id != 1234 {
		t.Fatalf("parse: id=%d err=%v", id, err)
	}
	for _, raw := range []string{"", "abc", "-5", "0"} {
		if _, err := ParseID(raw); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%q: expected ErrNotFound, got %v", raw, err)
		}
	}
}
