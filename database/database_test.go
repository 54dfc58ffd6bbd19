package database

import (
	"context"
	"errors"
	"testing"
)

type note struct {
	ID    string   `json:"id"`
	Body  string   `json:"body"`
	Score int      `json:"score"`
	Tags  []string `json:"tags,omitempty"`
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(":memory:")
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := Put(ctx, s, "notes", "n1", note{ID: "n1", Body: "hello", Score: 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := Get[note](ctx, s, "notes", "n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Body != "hello" || got.Score != 3 {
		t.Errorf("Get = %+v, want body=hello score=3", got)
	}
}

func TestGetMissingIsNotFoundOpError(t *testing.T) {
	s := openTestStore(t)

	_, err := Get[note](context.Background(), s, "notes", "missing")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %T, want *OpError", err)
	}
	if opErr.Collection != "notes" || opErr.Op != "get" {
		t.Errorf("OpError = {%s %s}, want {notes get}", opErr.Collection, opErr.Op)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := Put(ctx, s, "notes", "n1", note{ID: "n1", Body: "draft", Score: 1, Tags: []string{"a"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := Update(ctx, s, "notes", "n1", map[string]any{"score": 9}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := Get[note](ctx, s, "notes", "n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Score != 9 {
		t.Errorf("Score = %d, want 9", got.Score)
	}
	if got.Body != "draft" || len(got.Tags) != 1 {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestUpdateMissingFails(t *testing.T) {
	err := Update(context.Background(), openTestStore(t), "notes", "nope", map[string]any{"score": 1})
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != "update" {
		t.Fatalf("err = %v, want update OpError", err)
	}
}

func TestGetWhereCountClear(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i, body := range []string{"a", "b", "c", "d"} {
		id := "n" + body
		if err := Put(ctx, s, "notes", id, note{ID: id, Body: body, Score: i}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := Put(ctx, s, "other", "x", note{ID: "x"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	all, err := GetAll[note](ctx, s, "notes")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 4 || all[0].ID != "na" || all[3].ID != "nd" {
		t.Errorf("GetAll = %+v, want 4 notes ordered by id", all)
	}

	even, err := GetWhere(ctx, s, "notes", func(n note) bool { return n.Score%2 == 0 })
	if err != nil {
		t.Fatalf("GetWhere: %v", err)
	}
	if len(even) != 2 {
		t.Errorf("GetWhere returned %d, want 2", len(even))
	}

	n, err := Count(ctx, s, "notes")
	if err != nil || n != 4 {
		t.Fatalf("Count = %d, %v; want 4", n, err)
	}

	if err := Clear(ctx, s, "notes"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := Count(ctx, s, "notes"); n != 0 {
		t.Errorf("Count after Clear = %d, want 0", n)
	}
	if n, _ := Count(ctx, s, "other"); n != 1 {
		t.Errorf("Clear touched another collection: count = %d", n)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := Put(ctx, s, "notes", "n1", note{ID: "n1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := Delete(ctx, s, "notes", "n1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := Delete(ctx, s, "notes", "n1"); !IsNotFound(err) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestPersistsAcrossReconnect(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1 := NewSQLiteStore(dir)
	if err := s1.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := Put(ctx, s1, "notes", "n1", note{ID: "n1", Body: "kept"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s1.Close()

	s2 := NewSQLiteStore(dir)
	if err := s2.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s2.Close()

	got, err := Get[note](ctx, s2, "notes", "n1")
	if err != nil {
		t.Fatalf("Get after reconnect: %v", err)
	}
	if got.Body != "kept" {
		t.Errorf("Body = %q, want kept", got.Body)
	}
}

func TestNotConnected(t *testing.T) {
	s := NewSQLiteStore(":memory:")
	_, err := Get[note](context.Background(), s, "notes", "n1")
	if err == nil || IsNotFound(err) {
		t.Fatalf("err = %v, want connection error", err)
	}
}
