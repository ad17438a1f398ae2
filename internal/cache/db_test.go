package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
)

func newTestDBStore(t *testing.T, maxBytes int64) (*DBStore, sqlmock.Sqlmock, string) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	dir := t.TempDir()
	s, err := NewDBStore(db, dir, maxBytes, time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDBStore: %v", err)
	}
	t.Cleanup(func() {
		s.hot.Stop()
		s.fallback.Close()
		db.Close()
	})
	return s, mock, dir
}

func writeArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("webp"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDBStoreEvictOldestServedFirst(t *testing.T) {
	t.Parallel()

	s, mock, dir := newTestDBStore(t, 100)
	path := writeArtifact(t, dir, "alice-1.webp")

	// Over the byte bound: the least-recently-served row goes, then the
	// total fits and the loop stops.
	mock.ExpectQuery(`SELECT SUM\(byte_size\) FROM screengrabs`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(150)))
	mock.ExpectQuery(`ORDER BY last_served_at ASC LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"account_name", "status_id"}).AddRow("alice", "1"))
	mock.ExpectExec(`DELETE FROM screengrabs`).
		WithArgs("alice", "1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT SUM\(byte_size\) FROM screengrabs`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(80)))

	if err := s.evict(context.Background()); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("evicted entry's artifact file still on disk")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDBStoreEvictStopsInsideBound(t *testing.T) {
	t.Parallel()

	s, mock, _ := newTestDBStore(t, 100)

	mock.ExpectQuery(`SELECT SUM\(byte_size\) FROM screengrabs`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(40)))

	if err := s.evict(context.Background()); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDBStoreSweepRemovesExpiredAndOrphans(t *testing.T) {
	t.Parallel()

	s, mock, dir := newTestDBStore(t, 1<<20)
	expiredPath := writeArtifact(t, dir, "alice-1.webp")
	orphanPath := writeArtifact(t, dir, "ghost-9.webp")

	mock.ExpectQuery(`WHERE expires_at <`).
		WillReturnRows(sqlmock.NewRows([]string{"account_name", "status_id"}).AddRow("alice", "1"))
	mock.ExpectExec(`DELETE FROM screengrabs`).
		WithArgs("alice", "1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Orphan scan: only ghost-9.webp is left on disk and has no row.
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("ghost", "9").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	for _, path := range []string{expiredPath, orphanPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still on disk after sweep", filepath.Base(path))
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDBStoreSweepKeepsIndexedFiles(t *testing.T) {
	t.Parallel()

	s, mock, dir := newTestDBStore(t, 1<<20)
	keptPath := writeArtifact(t, dir, "alice-1.webp")

	mock.ExpectQuery(`WHERE expires_at <`).
		WillReturnRows(sqlmock.NewRows([]string{"account_name", "status_id"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice", "1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	if _, err := os.Stat(keptPath); err != nil {
		t.Fatalf("indexed artifact removed by sweep: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
