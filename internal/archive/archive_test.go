package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/prime3679/family-os-sub001/internal/database"
	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/ritual"
	"github.com/prime3679/family-os-sub001/internal/store"
	"github.com/prime3679/family-os-sub001/internal/week"
)

const (
	testWeek       = week.Key("2026-03-02")
	testPassphrase = "correct horse battery staple"
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
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

func (m *mockS3Client) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type archiveFixture struct {
	manager   *Manager
	s3        *mockS3Client
	svc       *ritual.Service
	archives  *store.ArchiveStore
	events    *store.WeekEventStore
	household *model.Household
	userA     *model.User
	userB     *model.User
}

func setupArchiveTest(t *testing.T) *archiveFixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}

	users := store.NewUserStore(db)
	households := store.NewHouseholdStore(db)
	states := store.NewRitualStateStore(db)
	weeks := store.NewHouseholdWeekStore(db)
	events := store.NewWeekEventStore(db)
	archives := store.NewArchiveStore(db)

	userA, err := users.Create("ana@example.com", "Ana", "hash-a")
	if err != nil {
		t.Fatalf("create user a: %v", err)
	}
	userB, err := users.Create("ben@example.com", "Ben", "hash-b")
	if err != nil {
		t.Fatalf("create user b: %v", err)
	}
	household, err := households.Create("Test Household", "TESTCODE")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if _, err := households.AddMember(household.ID, userA.ID, "parent", model.SlotParentA); err != nil {
		t.Fatalf("add member a: %v", err)
	}
	if _, err := households.AddMember(household.ID, userB.ID, "parent", model.SlotParentB); err != nil {
		t.Fatalf("add member b: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ritual.NewService(db, states, weeks, households, users, events, nil, logger)

	manager := NewManager(Config{
		S3:         S3Config{Bucket: "familyos-test", Region: "auto", AccessKey: "key", SecretKey: "secret"},
		Passphrase: testPassphrase,
	}, archives, states, households, svc, logger, nil)

	mock := newMockS3()
	manager.client = mock

	return &archiveFixture{
		manager:   manager,
		s3:        mock,
		svc:       svc,
		archives:  archives,
		events:    events,
		household: household,
		userA:     userA,
		userB:     userB,
	}
}

// completeWeek walks both members to a finished, agreed week.
func (f *archiveFixture) completeWeek(t *testing.T) {
	t.Helper()
	resolution := "Ana takes Friday pickup"
	for _, u := range []*model.User{f.userA, f.userB} {
		if _, err := f.svc.Apply(u.ID, f.household.ID, testWeek, ritual.SetDecision{ConflictID: "conflict-1", Resolution: &resolution}); err != nil {
			t.Fatalf("set decision for %s: %v", u.Name, err)
		}
		if _, err := f.svc.Apply(u.ID, f.household.ID, testWeek, ritual.AdvanceStep{Step: model.StepReady}); err != nil {
			t.Fatalf("advance for %s: %v", u.Name, err)
		}
		if _, err := f.svc.Apply(u.ID, f.household.ID, testWeek, ritual.CompleteRitual{}); err != nil {
			t.Fatalf("complete for %s: %v", u.Name, err)
		}
	}
}

func TestManagerDisabledWithoutConfig(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, nil, nil, nil)
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}
	if m.Enabled() {
		t.Error("expected disabled manager")
	}
	if _, err := m.ArchiveWeek(context.Background(), 1, testWeek); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("archive err = %v, want ErrNotConfigured", err)
	}

	// S3 credentials without a passphrase stay disabled too.
	m2 := NewManager(Config{
		S3: S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"},
	}, nil, nil, nil, nil, nil, nil)
	if m2.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q without passphrase", m2.Status().State, StateDisabled)
	}
}

func TestArchiveWeekRefusesIncompleteWeek(t *testing.T) {
	f := setupArchiveTest(t)

	// Only one member finished; the fresh derivation says in_progress.
	if _, err := f.svc.Apply(f.userA.ID, f.household.ID, testWeek, ritual.AdvanceStep{Step: model.StepReady}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := f.svc.Apply(f.userA.ID, f.household.ID, testWeek, ritual.CompleteRitual{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := f.manager.ArchiveWeek(context.Background(), f.household.ID, testWeek)
	if !errors.Is(err, ErrWeekIncomplete) {
		t.Fatalf("err = %v, want ErrWeekIncomplete", err)
	}
	if f.s3.count() != 0 {
		t.Error("expected no uploads for an incomplete week")
	}
	record, err := f.archives.Get(f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record != nil {
		t.Error("expected no archive record for an incomplete week")
	}
}

func TestArchiveWeekUploadsEncryptedDocument(t *testing.T) {
	f := setupArchiveTest(t)

	if _, err := f.events.Create(f.household.ID, testWeek, "mon", "9:00 AM", 60, "parent_a", "work", "Standup", "google"); err != nil {
		t.Fatalf("create event: %v", err)
	}
	if _, err := f.events.Create(f.household.ID, testWeek, "sat", "10:00 AM", 90, "both", "kids", "Swim lesson", "google"); err != nil {
		t.Fatalf("create event: %v", err)
	}
	f.completeWeek(t)

	record, err := f.manager.ArchiveWeek(context.Background(), f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}

	wantKey := fmt.Sprintf("weeks/%d/%s.enc", f.household.ID, testWeek)
	if record.ObjectKey != wantKey {
		t.Errorf("object key = %q, want %q", record.ObjectKey, wantKey)
	}

	sealed, ok := f.s3.object(record.ObjectKey)
	if !ok {
		t.Fatal("expected object uploaded")
	}
	if int64(len(sealed)) != record.SizeBytes {
		t.Errorf("size = %d, want %d", record.SizeBytes, len(sealed))
	}
	sum := sha256.Sum256(sealed)
	if got := hex.EncodeToString(sum[:]); got != record.Checksum {
		t.Errorf("checksum = %q, want %q", record.Checksum, got)
	}
	if bytes.Contains(sealed, []byte(`"week"`)) {
		t.Error("uploaded object contains plaintext JSON")
	}

	plaintext, err := Decrypt(sealed, testPassphrase)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	var doc WeekDocument
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.Week != string(testWeek) {
		t.Errorf("doc week = %q, want %q", doc.Week, testWeek)
	}
	if doc.Status != model.WeekCompleted {
		t.Errorf("doc status = %q, want completed", doc.Status)
	}
	if len(doc.Members) != 2 {
		t.Fatalf("doc members = %d, want 2", len(doc.Members))
	}
	for _, member := range doc.Members {
		if member.CompletedAt == nil {
			t.Errorf("member %d completed_at = nil, want set", member.UserID)
		}
	}
	if doc.Decisions["conflict-1"] != "Ana takes Friday pickup" {
		t.Errorf("doc decisions = %v, want the agreed resolution", doc.Decisions)
	}
	if doc.Summary.TotalEvents != 2 {
		t.Errorf("doc total events = %d, want 2", doc.Summary.TotalEvents)
	}
}

func TestArchiveWeekIdempotent(t *testing.T) {
	f := setupArchiveTest(t)
	f.completeWeek(t)

	first, err := f.manager.ArchiveWeek(context.Background(), f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("first archive: %v", err)
	}
	second, err := f.manager.ArchiveWeek(context.Background(), f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("second archive: %v", err)
	}

	if first.ObjectKey != second.ObjectKey {
		t.Errorf("object keys differ: %q vs %q", first.ObjectKey, second.ObjectKey)
	}
	if f.s3.count() != 1 {
		t.Errorf("objects in storage = %d, want 1", f.s3.count())
	}

	records, err := f.archives.List(f.household.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}

	// The record always describes the latest upload.
	sealed, _ := f.s3.object(second.ObjectKey)
	sum := sha256.Sum256(sealed)
	if got := hex.EncodeToString(sum[:]); got != records[0].Checksum {
		t.Errorf("stored checksum = %q, want %q", records[0].Checksum, got)
	}
}

func TestFetchVerifiesAndDecrypts(t *testing.T) {
	f := setupArchiveTest(t)
	f.completeWeek(t)

	record, err := f.manager.ArchiveWeek(context.Background(), f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}

	doc, err := f.manager.Fetch(context.Background(), f.household.ID, testWeek)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if doc.Week != string(testWeek) || doc.Status != model.WeekCompleted {
		t.Errorf("doc = %+v, want completed %s", doc, testWeek)
	}

	// A corrupted object fails the checksum, not the decryption.
	f.s3.mu.Lock()
	f.s3.objects[record.ObjectKey][len(f.s3.objects[record.ObjectKey])-1] ^= 0xFF
	f.s3.mu.Unlock()

	if _, err := f.manager.Fetch(context.Background(), f.household.ID, testWeek); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("fetch err = %v, want ErrChecksumMismatch", err)
	}
}

func TestFetchMissingArchive(t *testing.T) {
	f := setupArchiveTest(t)

	_, err := f.manager.Fetch(context.Background(), f.household.ID, testWeek)
	if !errors.Is(err, ritual.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestArchiveStatusTransitions(t *testing.T) {
	f := setupArchiveTest(t)
	f.completeWeek(t)

	var mu sync.Mutex
	var received []Status
	f.manager.callback = func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	if _, err := f.manager.ArchiveWeek(context.Background(), f.household.ID, testWeek); err != nil {
		t.Fatalf("archive: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d callbacks, want 2", len(received))
	}
	if received[0].State != StateRunning || !received[0].InProgress {
		t.Errorf("first callback = %+v, want running in progress", received[0])
	}
	if received[1].State != StateIdle || received[1].LastArchive == nil {
		t.Errorf("second callback = %+v, want idle with last archive", received[1])
	}
	for i, s := range received {
		if s.HouseholdID != f.household.ID || s.Week != string(testWeek) {
			t.Errorf("callback %d scoped to household %d week %q, want %d %q",
				i, s.HouseholdID, s.Week, f.household.ID, testWeek)
		}
	}
}
