package database

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/lib/pq"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "unique", err: &pq.Error{Code: "23505", Constraint: "users_pkey"}, want: ErrUniqueViolation},
		{name: "foreign key", err: &pq.Error{Code: "23503", Constraint: "messages_to_username_fkey"}, want: ErrForeignKeyViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			if name := ConstraintName(got); name != tc.err.(*pq.Error).Constraint {
				t.Fatalf("expected constraint %q, got %q", tc.err.(*pq.Error).Constraint, name)
			}
		})
	}
}

func TestClassifyPassesThroughOtherErrors(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
	plain := errors.New("boom")
	if ConstraintName(plain) != "" {
		t.Fatalf("plain error has no constraint")
	}
	if got := Classify(plain); got != plain {
		t.Fatalf("expected plain error back, got %v", got)
	}
	syntax := &pq.Error{Code: "42601"}
	if got := Classify(syntax); got != error(syntax) {
		t.Fatalf("expected syntax error back, got %v", got)
	}
}

func TestQuoteLiteral(t *testing.T) {
	if got := quoteLiteral("Asia/Shanghai"); got != "'Asia/Shanghai'" {
		t.Fatalf("unexpected literal: %s", got)
	}
	if got := quoteLiteral("o'clock"); got != "'o''clock'" {
		t.Fatalf("quotes not escaped: %s", got)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/books?sslmode=disable")
	t.Setenv("DATABASE_MAX_CONNS", "0")
	t.Setenv("DATABASE_MIGRATE", "false")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("config from env: %v", err)
	}
	if cfg.DSN != "postgres://u:p@db:5432/books?sslmode=disable" {
		t.Fatalf("unexpected dsn: %s", cfg.DSN)
	}
	if cfg.MaxConns != 5 {
		t.Fatalf("expected max conns fallback to 5, got %d", cfg.MaxConns)
	}
	if cfg.Migrate {
		t.Fatalf("expected migrations disabled")
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	if err != nil {
		t.Fatalf("glob up: %v", err)
	}
	downs, err := fs.Glob(migrationFS, "migrations/*.down.sql")
	if err != nil {
		t.Fatalf("glob down: %v", err)
	}
	if len(ups) != 3 || len(downs) != len(ups) {
		t.Fatalf("expected 3 paired migrations, got %d up / %d down", len(ups), len(downs))
	}
}
