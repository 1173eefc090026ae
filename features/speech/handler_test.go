package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pagebrief/backend/internal/dispatch"
	"pagebrief/backend/internal/poll"
)

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, kind dispatch.Kind, params dispatch.Params) (string, error) {
	args := m.Called(ctx, kind, params)
	return args.String(0), args.Error(1)
}

type MockAwaiter struct {
	mock.Mock
}

func (m *MockAwaiter) AwaitDeadline(ctx context.Context, jobID string, check poll.CheckFunc, interval, ceiling time.Duration) poll.Outcome {
	args := m.Called(ctx, jobID, interval, ceiling)
	return args.Get(0).(poll.Outcome)
}

func audioBody(t *testing.T, raw string) string {
	t.Helper()
	b, err := json.Marshal(map[string]string{"audio_data": raw})
	require.NoError(t, err)
	return string(b)
}

func TestSubmit_Accepted(t *testing.T) {
	audio := []byte("webm bytes")
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, dispatch.KindTranscription, dispatch.Params{Audio: audio}).
		Return("job-1", nil)
	h := NewHandler(submitter, new(MockAwaiter), nil, 10*time.Second, 120*time.Second)

	body := audioBody(t, base64.StdEncoding.EncodeToString(audio))
	req := httptest.NewRequest(http.MethodPost, "/speech", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp["job_id"])
}

func TestSubmit_UnpaddedBase64Accepted(t *testing.T) {
	audio := []byte("xx") // encodes to "eHg=", strip the padding
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, dispatch.KindTranscription, dispatch.Params{Audio: audio}).
		Return("job-1", nil)
	h := NewHandler(submitter, new(MockAwaiter), nil, time.Second, time.Minute)

	encoded := strings.TrimRight(base64.StdEncoding.EncodeToString(audio), "=")
	req := httptest.NewRequest(http.MethodPost, "/speech", strings.NewReader(audioBody(t, encoded)))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	submitter.AssertExpectations(t)
}

func TestSubmit_Validation(t *testing.T) {
	h := NewHandler(new(MockSubmitter), new(MockAwaiter), nil, time.Second, time.Minute)

	t.Run("missing audio", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/speech", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		h.Submit(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Missing 'audio_data'")
	})

	t.Run("invalid base64", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/speech", strings.NewReader(audioBody(t, "!!!not-base64!!!")))
		rec := httptest.NewRecorder()
		h.Submit(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid base64 audio data")
	})
}

func TestSubmit_DispatchFailure(t *testing.T) {
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return("", dispatch.ErrDispatch)
	h := NewHandler(submitter, new(MockAwaiter), nil, time.Second, time.Minute)

	body := audioBody(t, base64.StdEncoding.EncodeToString([]byte("audio")))
	req := httptest.NewRequest(http.MethodPost, "/speech", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "DISPATCH_ERROR")
}

func TestTranscribe(t *testing.T) {
	newBlockingHandler := func(outcome poll.Outcome) (*Handler, *MockSubmitter) {
		submitter := new(MockSubmitter)
		submitter.On("Submit", mock.Anything, dispatch.KindTranscription, mock.Anything).Return("job-1", nil)
		awaiter := new(MockAwaiter)
		awaiter.On("AwaitDeadline", mock.Anything, "job-1", 10*time.Second, 120*time.Second).Return(outcome)
		return NewHandler(submitter, awaiter, nil, 10*time.Second, 120*time.Second), submitter
	}
	body := func() *strings.Reader {
		return strings.NewReader(audioBody(t, base64.StdEncoding.EncodeToString([]byte("audio"))))
	}

	t.Run("completed returns transcript", func(t *testing.T) {
		h, _ := newBlockingHandler(poll.Completed("hello world"))

		req := httptest.NewRequest(http.MethodPost, "/speech/transcribe", body())
		rec := httptest.NewRecorder()
		h.Transcribe(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "hello world", resp["transcript"])
	})

	t.Run("failed job", func(t *testing.T) {
		h, _ := newBlockingHandler(poll.Failed("unsupported codec"))

		req := httptest.NewRequest(http.MethodPost, "/speech/transcribe", body())
		rec := httptest.NewRecorder()
		h.Transcribe(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "PROCESSING_ERROR")
		assert.Contains(t, rec.Body.String(), "unsupported codec")
	})

	t.Run("timed out", func(t *testing.T) {
		h, _ := newBlockingHandler(poll.Outcome{Status: poll.StatusTimedOut})

		req := httptest.NewRequest(http.MethodPost, "/speech/transcribe", body())
		rec := httptest.NewRecorder()
		h.Transcribe(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "TIMEOUT")
	})
}
