package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "user_notifications_pkey"}

	if !IsUniqueViolation(dup) {
		t.Fatal("bare 23505 not recognised")
	}
	if !IsUniqueViolation(fmt.Errorf("add delivery: %w", dup)) {
		t.Fatal("wrapped 23505 not recognised")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: CodeForeignKeyViolation}) {
		t.Fatal("23503 misread as unique violation")
	}
	if IsUniqueViolation(errors.New("connection reset")) {
		t.Fatal("plain error misread as unique violation")
	}
	if IsUniqueViolation(nil) {
		t.Fatal("nil misread as unique violation")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	fk := &pgconn.PgError{Code: CodeForeignKeyViolation, ConstraintName: "user_notifications_user_id_fkey"}

	if !IsForeignKeyViolation(fk) {
		t.Fatal("bare 23503 not recognised")
	}
	if !IsForeignKeyViolation(fmt.Errorf("add delivery: %w", fk)) {
		t.Fatal("wrapped 23503 not recognised")
	}
	if IsForeignKeyViolation(&pgconn.PgError{Code: CodeUniqueViolation}) {
		t.Fatal("23505 misread as foreign key violation")
	}
	if IsForeignKeyViolation(nil) {
		t.Fatal("nil misread as foreign key violation")
	}
}
