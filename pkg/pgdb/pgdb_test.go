package pgdb

import (
	"context"
	"os"
	"testing"
)

func TestOpenRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{URL: "  "}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestOpenPings(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := Open(context.Background(), Config{URL: dsn, MaxOpenConns: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var one int
	if err := db.NewSelect().ColumnExpr("1").Scan(context.Background(), &one); err != nil || one != 1 {
		t.Fatalf("select 1 = %d, %v", one, err)
	}
}
