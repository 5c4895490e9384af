// Package archive writes completed weeks to S3-compatible object
// storage as encrypted JSON documents: the plan of record once a
// household finishes its weekly ritual.
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
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/ritual"
	"github.com/prime3679/family-os-sub001/internal/schedule"
	"github.com/prime3679/family-os-sub001/internal/store"
	"github.com/prime3679/family-os-sub001/internal/week"
)

var (
	// ErrNotConfigured rejects archive operations without S3 credentials.
	ErrNotConfigured = errors.New("archiving not configured")
	// ErrWeekIncomplete rejects archiving a week the household has not finished.
	ErrWeekIncomplete = errors.New("week not completed")
	// ErrChecksumMismatch flags a stored object that no longer matches its record.
	ErrChecksumMismatch = errors.New("archive checksum mismatch")
)

// s3Client is the slice of the S3 API the manager uses; tests provide
// an in-memory fake.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds archive manager configuration. Archiving stays disabled
// until both the S3 credentials and the passphrase are present.
type Config struct {
	S3         S3Config
	Passphrase string
}

func (c Config) enabled() bool {
	return c.S3.Bucket != "" && c.S3.AccessKey != "" && c.S3.SecretKey != "" && c.Passphrase != ""
}

// State represents the archive manager state.
type State string

const (
	StateDisabled State = "disabled"
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateError    State = "error"
)

// Status describes the most recent archive operation. HouseholdID and
// Week are zero until the first archive runs.
type Status struct {
	State       State      `json:"state"`
	HouseholdID int64      `json:"household_id,omitempty"`
	Week        string     `json:"week,omitempty"`
	LastArchive *time.Time `json:"last_archive,omitempty"`
	Error       string     `json:"error,omitempty"`
	InProgress  bool       `json:"in_progress"`
}

// StatusCallback is called whenever the archive state changes.
type StatusCallback func(Status)

// MemberRecord is one parent's completion inside an archived document.
type MemberRecord struct {
	UserID      int64            `json:"user_id"`
	Slot        model.MemberSlot `json:"slot"`
	CompletedAt *time.Time       `json:"completed_at"`
}

// WeekDocument is the plaintext shape of an archived week.
type WeekDocument struct {
	Week        string                 `json:"week"`
	HouseholdID int64                  `json:"household_id"`
	Status      model.WeekStatus       `json:"status"`
	Members     []MemberRecord         `json:"members"`
	Decisions   map[string]string      `json:"decisions"`
	Summary     schedule.WeekSummary   `json:"summary"`
	Balance     schedule.BalanceResult `json:"balance"`
	Conflicts   int                    `json:"conflicts"`
	ArchivedAt  time.Time              `json:"archived_at"`
}

// Manager encrypts and uploads completed weeks.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	client   s3Client
	archives *store.ArchiveStore
	states   *store.RitualStateStore
	members  *store.HouseholdStore
	ritual   *ritual.Service
	logger   *slog.Logger
}

// NewManager creates an archive manager. With incomplete config the
// manager constructs fine but reports disabled and refuses to archive.
func NewManager(cfg Config, archives *store.ArchiveStore, states *store.RitualStateStore, members *store.HouseholdStore, svc *ritual.Service, logger *slog.Logger, callback StatusCallback) *Manager {
	m := &Manager{
		cfg:      cfg,
		archives: archives,
		states:   states,
		members:  members,
		ritual:   svc,
		logger:   logger,
		callback: callback,
		status:   Status{State: StateDisabled},
	}

	if cfg.enabled() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether archiving is configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Status returns the current archive status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// ArchiveWeek encrypts and uploads the week's final document. The
// household must have completed the ritual per a fresh derivation, not
// the cached status row. Re-archiving a week overwrites the same
// object and updates its record.
func (m *Manager) ArchiveWeek(ctx context.Context, householdID int64, wk week.Key) (*model.WeekArchive, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	if client == nil {
		return nil, ErrNotConfigured
	}

	status, err := m.ritual.RefreshStatus(householdID, wk)
	if err != nil {
		return nil, fmt.Errorf("derive week status: %w", err)
	}
	if status != model.WeekCompleted {
		return nil, fmt.Errorf("%w: household %d week %s is %s", ErrWeekIncomplete, householdID, wk, status)
	}

	m.setStatus(Status{State: StateRunning, HouseholdID: householdID, Week: string(wk), InProgress: true})

	doc, err := m.buildDocument(householdID, wk, status)
	if err != nil {
		m.setStatus(Status{State: StateError, HouseholdID: householdID, Week: string(wk), Error: err.Error()})
		return nil, err
	}

	plaintext, err := json.Marshal(doc)
	if err != nil {
		m.setStatus(Status{State: StateError, HouseholdID: householdID, Week: string(wk), Error: err.Error()})
		return nil, fmt.Errorf("encode document: %w", err)
	}

	sealed, err := Encrypt(plaintext, passphrase)
	if err != nil {
		m.setStatus(Status{State: StateError, HouseholdID: householdID, Week: string(wk), Error: err.Error()})
		return nil, fmt.Errorf("encrypt document: %w", err)
	}

	key := objectKey(householdID, wk)
	sum := sha256.Sum256(sealed)
	checksum := hex.EncodeToString(sum[:])

	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	}); err != nil {
		m.setStatus(Status{State: StateError, HouseholdID: householdID, Week: string(wk), Error: err.Error()})
		return nil, fmt.Errorf("upload archive: %w", err)
	}

	record, err := m.archives.Record(householdID, wk, key, int64(len(sealed)), checksum)
	if err != nil {
		m.setStatus(Status{State: StateError, HouseholdID: householdID, Week: string(wk), Error: err.Error()})
		return nil, fmt.Errorf("record archive: %w", err)
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, HouseholdID: householdID, Week: string(wk), LastArchive: &now})
	m.logger.Info("archived week",
		"household_id", householdID,
		"week", wk,
		"object_key", key,
		"size_bytes", record.SizeBytes,
	)
	return record, nil
}

func objectKey(householdID int64, wk week.Key) string {
	return fmt.Sprintf("weeks/%d/%s.enc", householdID, wk)
}

func (m *Manager) buildDocument(householdID int64, wk week.Key, status model.WeekStatus) (*WeekDocument, error) {
	states, err := m.states.ListHouseholdWeek(householdID, wk)
	if err != nil {
		return nil, fmt.Errorf("load ritual states: %w", err)
	}
	memberRows, err := m.members.ListMembers(householdID)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	slots := make(map[int64]model.MemberSlot, len(memberRows))
	for _, member := range memberRows {
		slots[member.UserID] = member.Slot
	}

	records := make([]MemberRecord, 0, len(states))
	for _, st := range states {
		records = append(records, MemberRecord{
			UserID:      st.UserID,
			Slot:        slots[st.UserID],
			CompletedAt: st.CompletedAt,
		})
	}

	analysis, err := m.ritual.AnalyzeWeek(householdID, wk)
	if err != nil {
		return nil, err
	}

	return &WeekDocument{
		Week:        string(wk),
		HouseholdID: householdID,
		Status:      status,
		Members:     records,
		Decisions:   agreedDecisions(states),
		Summary:     analysis.Summary,
		Balance:     analysis.Balance,
		Conflicts:   len(analysis.Conflicts),
		ArchivedAt:  time.Now().UTC(),
	}, nil
}

// agreedDecisions keeps only resolutions both members landed on; with
// a single member their word is final.
func agreedDecisions(states []model.RitualState) map[string]string {
	agreed := map[string]string{}
	switch len(states) {
	case 1:
		for id, d := range states[0].Decisions {
			if d.Resolved {
				agreed[id] = d.Resolution
			}
		}
	case 2:
		for _, c := range ritual.CompareDecisions(states[0].Decisions, states[1].Decisions) {
			if c.Matches && c.FinalResolution != nil {
				agreed[c.ConflictID] = *c.FinalResolution
			}
		}
	}
	return agreed
}

// Fetch downloads an archived week, verifies it against the recorded
// checksum, and decrypts it.
func (m *Manager) Fetch(ctx context.Context, householdID int64, wk week.Key) (*WeekDocument, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	if client == nil {
		return nil, ErrNotConfigured
	}

	record, err := m.archives.Get(householdID, wk)
	if err != nil {
		return nil, fmt.Errorf("get archive record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: no archive for week %s", ritual.ErrNotFound, wk)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	sum := sha256.Sum256(sealed)
	if hex.EncodeToString(sum[:]) != record.Checksum {
		return nil, ErrChecksumMismatch
	}

	plaintext, err := Decrypt(sealed, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt archive: %w", err)
	}

	var doc WeekDocument
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}
