package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tallyloyalty/tally/internal/database"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, mock *mockS3Client) *Manager {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "tally.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{
		S3:         S3Config{Bucket: "backups", AccessKey: "key", SecretKey: "secret"},
		DBPath:     dbPath,
		Passphrase: "test-passphrase",
	}, db, testLogger())
	m.client = mock
	return m
}

func TestManagerDisabledWithoutConfig(t *testing.T) {
	m := NewManager(Config{}, nil, testLogger())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}

	if _, err := m.RunBackup(context.Background()); err == nil {
		t.Error("RunBackup on disabled manager should fail")
	}

	// Start on a disabled manager is a no-op; Stop must not hang
	m.Start(context.Background())
	m.Stop()
}

func TestManagerEnabledWithConfig(t *testing.T) {
	m := NewManager(Config{
		S3:         S3Config{Bucket: "backups", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "pass",
	}, nil, testLogger())
	if m.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m.Status().State, StateIdle)
	}
}

func TestRunBackupAndFetch(t *testing.T) {
	mock := newMockS3()
	m := newTestManager(t, mock)

	key, err := m.RunBackup(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if !strings.HasPrefix(key, "tally-") || !strings.HasSuffix(key, ".db.enc") {
		t.Errorf("key = %q, want tally-*.db.enc", key)
	}

	status := m.Status()
	if status.State != StateIdle {
		t.Errorf("state = %q, want %q", status.State, StateIdle)
	}
	if status.LastBackup == nil {
		t.Error("last_backup should be set")
	}

	// The uploaded object is not a readable database file
	sealed, ok := mock.objects[key]
	if !ok {
		t.Fatal("object not uploaded")
	}
	if bytes.HasPrefix(sealed, []byte("SQLite format 3")) {
		t.Error("uploaded object is unencrypted")
	}

	// Fetch decrypts back to a database snapshot
	snapshot, err := m.Fetch(context.Background(), key)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.HasPrefix(snapshot, []byte("SQLite format 3")) {
		t.Error("decrypted snapshot is not a SQLite database")
	}
}

func TestRunBackupUploadFailure(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("connection refused")
	m := newTestManager(t, mock)

	if _, err := m.RunBackup(context.Background()); err == nil {
		t.Fatal("run backup should fail when upload fails")
	}

	status := m.Status()
	if status.State != StateError {
		t.Errorf("state = %q, want %q", status.State, StateError)
	}
	if status.Error == "" {
		t.Error("error message should be recorded")
	}
}

func TestFetchWrongKey(t *testing.T) {
	mock := newMockS3()
	m := newTestManager(t, mock)

	if _, err := m.Fetch(context.Background(), "tally-missing.db.enc"); err == nil {
		t.Error("fetch of missing key should fail")
	}
}
