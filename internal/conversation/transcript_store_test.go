package conversation

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestTranscriptStoreNilSafety(t *testing.T) {
	var store *TranscriptStore
	ctx := context.Background()

	if err := store.AppendMessage(ctx, "sess-1", "user", "hello"); err != nil {
		t.Fatalf("nil store append: %v", err)
	}
	if err := store.EndSession(ctx, "sess-1"); err != nil {
		t.Fatalf("nil store end: %v", err)
	}
	msgs, err := store.Messages(ctx, "sess-1", 0)
	if err != nil || msgs != nil {
		t.Fatalf("nil store messages: %v, %v", msgs, err)
	}

	if NewTranscriptStore(nil) != nil {
		t.Fatal("a nil db should yield a nil store")
	}
}

func TestTranscriptStoreAppendMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewTranscriptStore(db)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), "sess-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO session_messages").
		WithArgs(sqlmock.AnyArg(), "sess-1", "user", "book an appointment", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.AppendMessage(context.Background(), "sess-1", "user", "book an appointment"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTranscriptStoreMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewTranscriptStore(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "session_id", "role", "content", "created_at"}).
		AddRow(uuid.NewString(), "sess-1", "user", "hello", now).
		AddRow(uuid.NewString(), "sess-1", "assistant", "Hello! Welcome to Smile Dental.", now)

	mock.ExpectQuery("SELECT id, session_id, role, content, created_at").
		WithArgs("sess-1").
		WillReturnRows(rows)

	msgs, err := store.Messages(context.Background(), "sess-1", 0)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("roles out of order: %+v", msgs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTranscriptStoreEndSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewTranscriptStore(db)

	mock.ExpectExec("UPDATE sessions SET status = 'ended'").
		WithArgs(sqlmock.AnyArg(), "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.EndSession(context.Background(), "sess-1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
