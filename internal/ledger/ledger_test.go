package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSafeStem(t *testing.T) {
	assert.Equal(t, "Alice", safeStem("Alice"))
	assert.Equal(t, "Alice_Smith", safeStem("Alice Smith"))
	assert.Equal(t, "_______", safeStem("../../."))
	assert.Equal(t, "contact", safeStem("   "))
}

func TestFileStore_RecordAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	first := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	require.NoError(t, store.Record("Alice", "Bob", 0.3, first, first.Add(30*time.Second)))
	require.NoError(t, store.Record("Alice", "Bob", 0.9, second, second.Add(30*time.Second)))

	// 0.3 + 0.9 → 30% + 90%，封顶 100
	entry, err := store.Load("Alice")
	require.NoError(t, err)
	record := entry.Contacts["Bob"]
	require.NotNil(t, record)
	assert.Equal(t, 100.0, record.RiskPercent)
	require.Len(t, record.Timestamps, 2)
	assert.Equal(t, "2026-08-30T10:00:00Z", record.Timestamps[0])
	assert.Equal(t, "2026-08-30T10:01:00Z", record.Timestamps[1])

	// 账页可被新实例重新读取
	reopened, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	entry, err = reopened.Load("Alice")
	require.NoError(t, err)
	assert.Equal(t, 100.0, entry.Contacts["Bob"].RiskPercent)
}

func TestFileStore_FileLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.Record("Alice Smith", "Bob", 0.2, now, now))

	path := filepath.Join(dir, "Alice_Smith", "contacts.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry PersonLedger
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "Alice Smith", entry.Person)
	assert.InDelta(t, 20.0, entry.Contacts["Bob"].RiskPercent, 1e-9)
}

func TestFileStore_SeparateLedgersPerPerson(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.Record("Alice", "Bob", 0.1, now, now))
	require.NoError(t, store.Record("Bob", "Alice", 0.1, now, now))

	alice, err := store.Load("Alice")
	require.NoError(t, err)
	bob, err := store.Load("Bob")
	require.NoError(t, err)

	assert.Contains(t, alice.Contacts, "Bob")
	assert.Contains(t, bob.Contacts, "Alice")
	assert.NotContains(t, alice.Contacts, "Alice")
}

func TestFileStore_CorruptFileResetsToEmpty(t *testing.T) {
	dir := t.TempDir()
	personDir := filepath.Join(dir, "Alice")
	require.NoError(t, os.MkdirAll(personDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(personDir, "contacts.json"), []byte("{not json"), 0o644))

	store, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	// 损坏文件不报错，按空账页继续
	require.NoError(t, store.Record("Alice", "Bob", 0.5, time.Now(), time.Now()))
	entry, err := store.Load("Alice")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, entry.Contacts["Bob"].RiskPercent, 1e-9)
}

func TestPostgresStore_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStoreWithDB(db, zap.NewNop())
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contact_ledger")).
		WithArgs("Alice", "Bob", 0.3*100.0, now, now.Add(time.Minute)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Record("Alice", "Bob", 0.3, now, now.Add(time.Minute)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStoreWithDB(db, zap.NewNop())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contact_ledger")).
		WillReturnError(assert.AnError)

	err = store.Record("Alice", "Bob", 0.3, time.Now(), time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record contact")
}
