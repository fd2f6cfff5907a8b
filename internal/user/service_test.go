package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/memstore"
	msgentity "github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/message/entity"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
)

func strp(s string) *string { return &s }

func registerInput(username, password string) RegisterInput {
	return RegisterInput{
		Username:  strp(username),
		Password:  strp(password),
		FirstName: strp("First"),
		LastName:  strp("Last"),
		Phone:     strp("+15550000"),
	}
}

func newTestService(t *testing.T) (*UserService, *memstore.DB) {
	t.Helper()
	db := memstore.New()
	return NewUserService(db.Users(), BcryptHasher{Cost: bcrypt.MinCost}, zap.NewNop().Sugar()), db
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	u, err := svc.Register(ctx, registerInput("alice", "correct horse"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Password == "correct horse" || u.Password == "" {
		t.Fatalf("password must be hashed, got %q", u.Password)
	}
	if !u.JoinAt.Equal(fixed) || u.LastLoginAt == nil || !u.LastLoginAt.Equal(fixed) {
		t.Fatalf("timestamps not set to now: join=%v last=%v", u.JoinAt, u.LastLoginAt)
	}

	ok, err := svc.Authenticate(ctx, "alice", "correct horse")
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = svc.Authenticate(ctx, "alice", "wrong")
	if err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Authenticate(context.Background(), "ghost", "pw")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, registerInput("alice", "pw")); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, registerInput("alice", "pw2"))
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != apierror.KindConflict {
		t.Fatalf("expected conflict api error, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	in := registerInput("alice", "pw")
	in.Phone = nil
	_, err := svc.Register(context.Background(), in)
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != apierror.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apiErr.Message != "phone is required" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}

	blank := registerInput("   ", "pw")
	if _, err := svc.Register(context.Background(), blank); !errors.As(err, &apiErr) || apiErr.Kind != apierror.KindValidation {
		t.Fatalf("expected validation error for blank username, got %v", err)
	}

	// 37 two-byte runes: 37 characters but 74 bytes.
	for name, pw := range map[string]string{
		"ascii":     strings.Repeat("a", 73),
		"multibyte": strings.Repeat("é", 37),
	} {
		_, err := svc.Register(context.Background(), registerInput("long-"+name, pw))
		if !errors.As(err, &apiErr) || apiErr.Kind != apierror.KindValidation {
			t.Fatalf("%s: expected validation error for long password, got %v", name, err)
		}
	}
	if _, err := svc.Register(context.Background(), registerInput("edge", strings.Repeat("a", 72))); err != nil {
		t.Fatalf("72-byte password should be accepted: %v", err)
	}
}

func TestUpdateLoginTimestamp(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, registerInput("alice", "pw")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, registerInput("bob", "pw")); err != nil {
		t.Fatalf("register: %v", err)
	}
	later := time.Now().Add(time.Hour).UTC()
	svc.now = func() time.Time { return later }

	svc.UpdateLoginTimestamp(ctx, "alice")
	svc.UpdateLoginTimestamp(ctx, "ghost")

	alice, _ := db.Users().GetByUsername(ctx, "alice")
	bob, _ := db.Users().GetByUsername(ctx, "bob")
	if !alice.LastLoginAt.Equal(later) {
		t.Fatalf("alice last login not updated: %v", alice.LastLoginAt)
	}
	if bob.LastLoginAt.Equal(later) {
		t.Fatalf("only the named user should be touched")
	}
}

func TestGetAllAndMessages(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"carol", "alice", "bob"} {
		if _, err := svc.Register(ctx, registerInput(name, "pw")); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if _, err := svc.Get(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	u, err := svc.Get(ctx, "bob")
	if err != nil || u.Username != "bob" {
		t.Fatalf("get bob: %v %v", u, err)
	}

	all, err := svc.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 || all[0].Username != "alice" || all[2].Username != "carol" {
		t.Fatalf("unexpected users %+v", all)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	msgs := []msgentity.Message{
		{ID: snowflake.ID(2), FromUsername: "alice", ToUsername: "bob", Body: "second", SentAt: base.Add(time.Minute)},
		{ID: snowflake.ID(1), FromUsername: "alice", ToUsername: "carol", Body: "first", SentAt: base},
		{ID: snowflake.ID(3), FromUsername: "bob", ToUsername: "alice", Body: "reply", SentAt: base.Add(2 * time.Minute)},
	}
	for i := range msgs {
		if err := db.Messages().Create(ctx, &msgs[i]); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	from, err := svc.MessagesFrom(ctx, "alice")
	if err != nil {
		t.Fatalf("messages from: %v", err)
	}
	if len(from) != 2 || from[0].Body != "first" || from[1].Body != "second" {
		t.Fatalf("expected chronological sent messages, got %+v", from)
	}
	if from[0].ToUser == nil || from[0].ToUser.Username != "carol" || from[0].FromUser != nil {
		t.Fatalf("sent messages carry the recipient only: %+v", from[0])
	}

	to, err := svc.MessagesTo(ctx, "alice")
	if err != nil {
		t.Fatalf("messages to: %v", err)
	}
	if len(to) != 1 || to[0].FromUser == nil || to[0].FromUser.Username != "bob" || to[0].ToUser != nil {
		t.Fatalf("unexpected received messages %+v", to)
	}

	none, err := svc.MessagesFrom(ctx, "carol")
	if err != nil {
		t.Fatalf("messages from carol: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty slice, got %#v", none)
	}
}
