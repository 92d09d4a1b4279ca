package errors

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpPgxError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_code", TableName: "orders", Message: "duplicate key value"}
	err := Wrap(CodeInternal, fmt.Errorf("insert order: %w", pgErr), "persist order")

	d := Dump(err)
	if d.Code != CodeInternal {
		t.Fatalf("expected internal code, got %s", d.Code)
	}
	if d.DBDriver != "pgx" || d.DBCode != "23505" || d.DBConstraint != "idx_orders_code" || d.DBTable != "orders" {
		t.Fatalf("unexpected db fields: %+v", d)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected the wrap chain, got %v", d.Chain)
	}

	fields := d.Fields()
	if fields["db_constraint"] != "idx_orders_code" {
		t.Fatalf("expected constraint in log fields, got %v", fields)
	}
	if _, ok := fields["db_column"]; ok {
		t.Fatalf("empty db values should be omitted: %v", fields)
	}
}

func TestDumpPqError(t *testing.T) {
	err := fmt.Errorf("update room: %w", &pq.Error{Code: "40001", Message: "could not serialize access"})

	d := Dump(err)
	if d.DBDriver != "pq" || d.DBCode != "40001" || d.DBMessage != "could not serialize access" {
		t.Fatalf("unexpected db fields: %+v", d)
	}
}

func TestDumpPlainError(t *testing.T) {
	d := Dump(New(CodeNotFound, "order not found"))
	if d.DBDriver != "" {
		t.Fatalf("expected no db driver, got %q", d.DBDriver)
	}
	if _, ok := d.Fields()["db_driver"]; ok {
		t.Fatal("db fields should be absent for non-db errors")
	}
	if !reflect.DeepEqual(Dump(nil), ErrorDump{}) {
		t.Fatal("nil error should dump empty")
	}
}
