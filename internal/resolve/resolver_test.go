package resolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pagebrief/backend/internal/dispatch"
	"pagebrief/backend/internal/docstore"
	"pagebrief/backend/internal/poll"
)

// --- Mocks ---

type MockDocs struct {
	mock.Mock
}

func (m *MockDocs) Exists(ctx context.Context, id string) (*docstore.Metadata, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*docstore.Metadata), args.Error(1)
}

func (m *MockDocs) Get(ctx context.Context, id string) (*docstore.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*docstore.Record), args.Error(1)
}

func (m *MockDocs) SetIndexedStatus(ctx context.Context, id, status string) {
	m.Called(ctx, id, status)
}

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) Passages(ctx context.Context, docID, query string) (string, error) {
	args := m.Called(ctx, docID, query)
	return args.String(0), args.Error(1)
}

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, kind dispatch.Kind, params dispatch.Params) (string, error) {
	args := m.Called(ctx, kind, params)
	return args.String(0), args.Error(1)
}

type MockPoller struct {
	mock.Mock
}

func (m *MockPoller) Await(ctx context.Context, jobID string, check poll.CheckFunc, maxRetries int, baseWait time.Duration) poll.Outcome {
	args := m.Called(ctx, jobID, maxRetries, baseWait)
	return args.Get(0).(poll.Outcome)
}

// --- Tests ---

func TestResolve_IndexedDocumentQueriedDirectly(t *testing.T) {
	docs := new(MockDocs)
	index := new(MockIndex)
	submitter := new(MockSubmitter)
	poller := new(MockPoller)
	r := New(docs, index, submitter, poller, 5, time.Second)

	docs.On("Exists", mock.Anything, "doc-1").Return(&docstore.Metadata{IndexedStatus: docstore.StatusComplete}, nil)
	index.On("Passages", mock.Anything, "doc-1", "main points").Return("passage one\n\npassage two", nil)

	got, err := r.Resolve(context.Background(), "doc-1", "main points", false)
	require.NoError(t, err)
	assert.True(t, got.Enhanced)
	assert.Equal(t, "passage one\n\npassage two", got.Text)

	// No dispatch happened.
	submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_UnindexedDispatchesAndCompletes(t *testing.T) {
	docs := new(MockDocs)
	index := new(MockIndex)
	submitter := new(MockSubmitter)
	poller := new(MockPoller)
	r := New(docs, index, submitter, poller, 5, time.Second)

	docs.On("Exists", mock.Anything, "doc-1").Return(&docstore.Metadata{IndexedStatus: docstore.StatusPending}, nil)
	submitter.On("Submit", mock.Anything, dispatch.KindIndex, mock.MatchedBy(func(p dispatch.Params) bool {
		return p.DocumentID == "doc-1"
	})).Return("job-1", nil)
	poller.On("Await", mock.Anything, "job-1", 5, time.Second).Return(poll.Completed("indexed passages"))
	docs.On("SetIndexedStatus", mock.Anything, "doc-1", docstore.StatusComplete).Return()

	got, err := r.Resolve(context.Background(), "doc-1", "q", false)
	require.NoError(t, err)
	assert.True(t, got.Enhanced)
	assert.Equal(t, "indexed passages", got.Text)
	docs.AssertExpectations(t)
}

func TestResolve_FailureOptionalFallsBackToRawText(t *testing.T) {
	docs := new(MockDocs)
	index := new(MockIndex)
	submitter := new(MockSubmitter)
	poller := new(MockPoller)
	r := New(docs, index, submitter, poller, 5, time.Second)

	docs.On("Exists", mock.Anything, "doc-1").Return((*docstore.Metadata)(nil), nil)
	submitter.On("Submit", mock.Anything, dispatch.KindIndex, mock.Anything).Return("job-1", nil)
	poller.On("Await", mock.Anything, "job-1", 5, time.Second).Return(poll.Failed("mapping error"))
	docs.On("SetIndexedStatus", mock.Anything, "doc-1", docstore.StatusFailed).Return()
	docs.On("Get", mock.Anything, "doc-1").Return(&docstore.Record{CleanedText: "the raw cleaned text"}, nil)

	got, err := r.Resolve(context.Background(), "doc-1", "q", false)
	require.NoError(t, err)
	assert.False(t, got.Enhanced)
	assert.Equal(t, "the raw cleaned text", got.Text)
}

func TestResolve_FailureRequiredReturnsError(t *testing.T) {
	docs := new(MockDocs)
	index := new(MockIndex)
	submitter := new(MockSubmitter)
	poller := new(MockPoller)
	r := New(docs, index, submitter, poller, 5, time.Second)

	docs.On("Exists", mock.Anything, "doc-1").Return((*docstore.Metadata)(nil), nil)
	submitter.On("Submit", mock.Anything, dispatch.KindIndex, mock.Anything).Return("job-1", nil)
	poller.On("Await", mock.Anything, "job-1", 5, time.Second).Return(poll.Failed("mapping error"))
	docs.On("SetIndexedStatus", mock.Anything, "doc-1", docstore.StatusFailed).Return()

	_, err := r.Resolve(context.Background(), "doc-1", "q", true)
	assert.ErrorIs(t, err, ErrEnhancementFailed)
	docs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestResolve_TimeoutLeavesStatusPending(t *testing.T) {
	docs := new(MockDocs)
	index := new(MockIndex)
	submitter := new(MockSubmitter)
	poller := new(MockPoller)
	r := New(docs, index, submitter, poller, 5, time.Second)

	docs.On("Exists", mock.Anything, "doc-1").Return((*docstore.Metadata)(nil), nil)
	submitter.On("Submit", mock.Anything, dispatch.KindIndex, mock.Anything).Return("job-1", nil)
	poller.On("Await", mock.Anything, "job-1", 5, time.Second).Return(poll.Outcome{Status: poll.StatusTimedOut})
	docs.On("Get", mock.Anything, "doc-1").Return(&docstore.Record{CleanedText: "raw"}, nil)

	got, err := r.Resolve(context.Background(), "doc-1", "q", false)
	require.NoError(t, err)
	assert.False(t, got.Enhanced)

	// Still unknown, so the indexed status must not move to a terminal state.
	docs.AssertNotCalled(t, "SetIndexedStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_DispatchFailureFallsBack(t *testing.T) {
	docs := new(MockDocs)
	index := new(MockIndex)
	submitter := new(MockSubmitter)
	poller := new(MockPoller)
	r := New(docs, index, submitter, poller, 5, time.Second)

	docs.On("Exists", mock.Anything, "doc-1").Return((*docstore.Metadata)(nil), nil)
	submitter.On("Submit", mock.Anything, dispatch.KindIndex, mock.Anything).Return("", errors.New("no topic"))
	docs.On("Get", mock.Anything, "doc-1").Return(&docstore.Record{CleanedText: "raw"}, nil)

	got, err := r.Resolve(context.Background(), "doc-1", "q", false)
	require.NoError(t, err)
	assert.Equal(t, "raw", got.Text)
	assert.False(t, got.Enhanced)
}

func TestResolve_IndexedButEmptyPassagesReindexes(t *testing.T) {
	docs := new(MockDocs)
	index := new(MockIndex)
	submitter := new(MockSubmitter)
	poller := new(MockPoller)
	r := New(docs, index, submitter, poller, 5, time.Second)

	docs.On("Exists", mock.Anything, "doc-1").Return(&docstore.Metadata{IndexedStatus: docstore.StatusComplete}, nil)
	index.On("Passages", mock.Anything, "doc-1", "q").Return("", nil)
	submitter.On("Submit", mock.Anything, dispatch.KindIndex, mock.Anything).Return("job-2", nil)
	poller.On("Await", mock.Anything, "job-2", 5, time.Second).Return(poll.Completed("recovered passages"))
	docs.On("SetIndexedStatus", mock.Anything, "doc-1", docstore.StatusComplete).Return()

	got, err := r.Resolve(context.Background(), "doc-1", "q", false)
	require.NoError(t, err)
	assert.Equal(t, "recovered passages", got.Text)
	submitter.AssertExpectations(t)
}
