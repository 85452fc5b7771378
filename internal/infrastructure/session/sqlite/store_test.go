package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/geogli/chatbot/internal/core/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db, 24*time.Hour, nil), mock
}

func TestAppendTurnInsertsRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("s-1", "user", "What is SDG 15.3.1?", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.AppendTurn(context.Background(), domain.Turn{
		SessionID: "s-1",
		Role:      domain.RoleUser,
		Content:   "What is SDG 15.3.1?",
	})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecentTurnsReturnsChronologicalOrder(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"session_id", "role", "content", "created_at"}).
		AddRow("s-1", "user", "first question", now.Add(-2*time.Minute)).
		AddRow("s-1", "assistant", "first answer", now.Add(-time.Minute)).
		AddRow("s-1", "user", "follow-up", now)

	mock.ExpectQuery("SELECT session_id, role, content, created_at").
		WithArgs("s-1", 10).
		WillReturnRows(rows)

	turns, err := store.RecentTurns(context.Background(), "s-1", 10)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Content != "first question" || turns[2].Content != "follow-up" {
		t.Fatalf("turns out of order: %+v", turns)
	}
	if turns[1].Role != domain.RoleAssistant {
		t.Fatalf("turn role = %s, want assistant", turns[1].Role)
	}
}

func TestRecentTurnsDefaultsLimit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT session_id, role, content, created_at").
		WithArgs("s-1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "role", "content", "created_at"}))

	turns, err := store.RecentTurns(context.Background(), "s-1", 0)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected no turns, got %d", len(turns))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEvictInactiveReportsRemovedRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM conversations WHERE session_id IN").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	removed, err := store.EvictInactive(context.Background())
	if err != nil {
		t.Fatalf("EvictInactive() error = %v", err)
	}
	if removed != 7 {
		t.Fatalf("removed = %d, want 7", removed)
	}
}
