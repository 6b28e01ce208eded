package store

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupKVMock(t *testing.T) (*KVStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	kv := NewKVStore(db)
	cleanup := func() { db.Close() }
	return kv, mock, cleanup
}

func TestKVStore_Token_Present(t *testing.T) {
	kv, mock, cleanup := setupKVMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE key = ?`)).
		WithArgs(tokenKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("tok-123"))

	token, ok := kv.Token()
	if !ok || token != "tok-123" {
		t.Errorf("expected tok-123, got %q (ok=%v)", token, ok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestKVStore_Token_Absent(t *testing.T) {
	kv, mock, cleanup := setupKVMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE key = ?`)).
		WithArgs(tokenKey).
		WillReturnError(errors.New("sql: no rows in result set"))

	if token, ok := kv.Token(); ok {
		t.Errorf("expected no token, got %q", token)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestKVStore_SetToken(t *testing.T) {
	kv, mock, cleanup := setupKVMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`)).
		WithArgs(tokenKey, "tok-123").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := kv.SetToken("tok-123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestKVStore_Clear(t *testing.T) {
	kv, mock, cleanup := setupKVMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv WHERE key = ?`)).
		WithArgs(tokenKey).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := kv.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
