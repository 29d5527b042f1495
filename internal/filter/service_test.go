package filter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscomlabs/contactd/internal/domain"
)

type fakeQueue struct {
	mu        sync.Mutex
	published [][]byte
	acked     []string
	pubErr    error
}

func (f *fakeQueue) Publish(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeQueue) Receive(ctx context.Context, count int, block time.Duration) ([]domain.QueueMessage, error) {
	return nil, nil
}

func (f *fakeQueue) Ack(ctx context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return nil
}

func (f *fakeQueue) Reclaim(ctx context.Context, minIdle time.Duration, count int) ([]domain.QueueMessage, error) {
	return nil, nil
}

type fakeMessageStore struct {
	created []domain.ContactMessage
	err     error
}

func (f *fakeMessageStore) Create(ctx context.Context, m domain.ContactMessage) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, m)
	return nil
}

func (f *fakeMessageStore) Get(ctx context.Context, id string) (domain.ContactMessage, error) {
	return domain.ContactMessage{}, domain.ErrNotFound
}

func (f *fakeMessageStore) List(ctx context.Context, opts domain.MessageListOpts) (domain.MessageList, error) {
	return domain.MessageList{}, nil
}

func (f *fakeMessageStore) Stats(ctx context.Context) (domain.Stats, error) {
	return domain.Stats{}, nil
}

type fakeBlocklist struct {
	blocked map[string]bool
	err     error
}

func (f *fakeBlocklist) IsBlocked(ctx context.Context, ip string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.blocked[ip], nil
}

func (f *fakeBlocklist) List(ctx context.Context) ([]domain.BlockedContact, error) { return nil, nil }
func (f *fakeBlocklist) Block(ctx context.Context, b domain.BlockedContact) error  { return nil }
func (f *fakeBlocklist) Unblock(ctx context.Context, id string) error              { return nil }

type fakeClassifier struct {
	result domain.Classification
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, message string) (domain.Classification, error) {
	f.calls++
	if f.err != nil {
		return domain.Classification{}, f.err
	}
	return f.result, nil
}

type fakeArchiver struct {
	ids []string
	err error
}

func (f *fakeArchiver) ArchiveRaw(ctx context.Context, id string, receivedAt time.Time, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, id)
	return nil
}

type fakeEvents struct {
	published [][]byte
}

func (f *fakeEvents) Publish(ctx context.Context, channel string, payload []byte) error {
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeEvents) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	svc       *Service
	intake    *fakeQueue
	notify    *fakeQueue
	store     *fakeMessageStore
	blocklist *fakeBlocklist
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		intake:    &fakeQueue{},
		notify:    &fakeQueue{},
		store:     &fakeMessageStore{},
		blocklist: &fakeBlocklist{blocked: map[string]bool{}},
	}
	if opts.EventChannel == "" {
		opts.EventChannel = "contact:events"
	}
	f.svc = New(f.intake, f.notify, f.store, f.blocklist, opts, testLogger())
	f.svc.now = func() time.Time { return time.Unix(1756700000, 0) }
	return f
}

func intakePayload(t *testing.T, msg domain.IntakeMessage) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return b
}

func TestHandle_UnblockedMessageIsArchivedAndForwarded(t *testing.T) {
	f := newFixture(Options{})

	payload := intakePayload(t, domain.IntakeMessage{
		ContactMessage: "hello",
		ContactName:    "Jane",
		IPAddress:      "203.0.113.9",
		ContactType:    domain.KindStandard,
	})
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	require.Len(t, f.store.created, 1)
	rec := f.store.created[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1756700000), rec.Timestamp)
	assert.False(t, rec.IsBlocked)

	require.Len(t, f.notify.published, 1)
	assert.Equal(t, []string{"q-1"}, f.intake.acked)
}

func TestHandle_BlockedMessageIsArchivedNotForwarded(t *testing.T) {
	f := newFixture(Options{})
	f.blocklist.blocked["10.0.0.1"] = true

	payload := intakePayload(t, domain.IntakeMessage{
		ContactMessage: "hello",
		IPAddress:      "10.0.0.1",
		ContactType:    domain.KindStandard,
	})
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	require.Len(t, f.store.created, 1)
	assert.True(t, f.store.created[0].IsBlocked)
	assert.Empty(t, f.notify.published)
	assert.Equal(t, []string{"q-1"}, f.intake.acked)
}

func TestHandle_ArchiveFailureLeavesMessagePending(t *testing.T) {
	f := newFixture(Options{})
	f.store.err = errors.New("postgres down")

	payload := intakePayload(t, domain.IntakeMessage{ContactMessage: "hi", IPAddress: "203.0.113.9"})
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	assert.Empty(t, f.intake.acked, "failed archive must not be acked")
	assert.Empty(t, f.notify.published)
}

func TestHandle_ForwardFailureLeavesMessagePending(t *testing.T) {
	f := newFixture(Options{})
	f.notify.pubErr = errors.New("redis down")

	payload := intakePayload(t, domain.IntakeMessage{ContactMessage: "hi", IPAddress: "203.0.113.9"})
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	assert.Empty(t, f.intake.acked)
}

func TestHandle_MalformedPayloadIsAcked(t *testing.T) {
	f := newFixture(Options{})

	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: []byte("{{{")})

	assert.Empty(t, f.store.created)
	assert.Equal(t, []string{"q-1"}, f.intake.acked)
}

func TestHandle_BlocklistErrorTreatedAsNotBlocked(t *testing.T) {
	f := newFixture(Options{})
	f.blocklist.err = errors.New("scan failed")

	payload := intakePayload(t, domain.IntakeMessage{ContactMessage: "hi", IPAddress: "203.0.113.9"})
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	require.Len(t, f.store.created, 1)
	assert.False(t, f.store.created[0].IsBlocked)
	assert.Len(t, f.notify.published, 1)
}

func TestHandle_ClassificationAttached(t *testing.T) {
	classifier := &fakeClassifier{result: domain.Classification{
		Category:   domain.CategoryConsultingRequest,
		Priority:   domain.PriorityHigh,
		Confidence: 0.9,
	}}
	f := newFixture(Options{Classifier: classifier})

	payload := intakePayload(t, domain.IntakeMessage{ContactMessage: "hire me", IPAddress: "203.0.113.9"})
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	require.Len(t, f.notify.published, 1)
	var forwarded domain.IntakeMessage
	require.NoError(t, json.Unmarshal(f.notify.published[0], &forwarded))
	assert.Equal(t, "consulting_request", forwarded.ClassificationType)
	assert.Equal(t, "high", forwarded.ClassificationPriority)
	assert.Equal(t, "0.90", forwarded.ConfidenceScore)
}

func TestHandle_ClassifierFailureIsNonFatal(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("llm timeout")}
	f := newFixture(Options{Classifier: classifier})

	payload := intakePayload(t, domain.IntakeMessage{ContactMessage: "hi", IPAddress: "203.0.113.9"})
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	require.Len(t, f.notify.published, 1)
	var forwarded domain.IntakeMessage
	require.NoError(t, json.Unmarshal(f.notify.published[0], &forwarded))
	assert.Empty(t, forwarded.ClassificationType)
	assert.Equal(t, []string{"q-1"}, f.intake.acked)
}

func TestHandle_ClassifierSkippedForBlockedSenders(t *testing.T) {
	classifier := &fakeClassifier{}
	f := newFixture(Options{Classifier: classifier})
	f.blocklist.blocked["10.0.0.1"] = true

	payload := intakePayload(t, domain.IntakeMessage{ContactMessage: "hi", IPAddress: "10.0.0.1"})
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	assert.Zero(t, classifier.calls)
}

func TestHandle_RawArchiveFailureIsNonFatal(t *testing.T) {
	archiver := &fakeArchiver{err: errors.New("s3 down")}
	f := newFixture(Options{Archiver: archiver})

	payload := intakePayload(t, domain.IntakeMessage{ContactMessage: "hi", IPAddress: "203.0.113.9"})
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	require.Len(t, f.store.created, 1)
	assert.Equal(t, []string{"q-1"}, f.intake.acked)
}

func TestHandle_EventPublishedForArchivedMessage(t *testing.T) {
	events := &fakeEvents{}
	f := newFixture(Options{Events: events, EventChannel: "contact:events"})

	payload := intakePayload(t, domain.IntakeMessage{ContactMessage: "hi", IPAddress: "203.0.113.9"})
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	require.Len(t, events.published, 1)
	assert.Contains(t, string(events.published[0]), "message_archived")
}

func TestHandle_UnknownKindNormalisedToStandard(t *testing.T) {
	f := newFixture(Options{})

	payload := []byte(`{"contact_message":"hi","ip_address":"203.0.113.9","contact_type":"weird"}`)
	f.svc.handle(context.Background(), domain.QueueMessage{ID: "q-1", Payload: payload})

	require.Len(t, f.store.created, 1)
	assert.Equal(t, domain.KindStandard, f.store.created[0].ContactType)
}
