package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pagebrief/backend/internal/blob"
	"pagebrief/backend/internal/config"
	"pagebrief/backend/internal/middleware"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

func TestSubmit_ImageText(t *testing.T) {
	pub := new(MockPublisher)
	d := New(pub, blob.NewMemoryStore())

	var published payload
	pub.On("Publish", config.TopicVision, mock.MatchedBy(func(body []byte) bool {
		return json.Unmarshal(body, &published) == nil
	})).Return(nil)

	jobID, err := d.Submit(context.Background(), KindImageText, Params{URL: "https://example.com/cat.png"})
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	assert.Equal(t, jobID, published.JobID)
	assert.Equal(t, "image-text", published.Kind)
	assert.Equal(t, "https://example.com/cat.png", published.ImageURL)
	pub.AssertExpectations(t)
}

func TestSubmit_FreshJobIDPerCall(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	d := New(pub, blob.NewMemoryStore())

	id1, err := d.Submit(context.Background(), KindImageText, Params{URL: "https://a"})
	require.NoError(t, err)
	id2, err := d.Submit(context.Background(), KindImageText, Params{URL: "https://a"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestSubmit_TranscriptionStagesAudioFirst(t *testing.T) {
	blobs := blob.NewMemoryStore()
	pub := new(MockPublisher)
	d := New(pub, blobs)

	audio := []byte{0x1a, 0x45, 0xdf, 0xa3}

	pub.On("Publish", config.TopicTranscribe, mock.MatchedBy(func(body []byte) bool {
		// The staged object must already be readable when the job goes out.
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			return false
		}
		staged, err := blobs.Get(context.Background(), p.AudioKey)
		return err == nil && assert.ObjectsAreEqual(audio, staged)
	})).Return(nil)

	jobID, err := d.Submit(context.Background(), KindTranscription, Params{Audio: audio})
	require.NoError(t, err)

	staged, err := blobs.Get(context.Background(), fmt.Sprintf("temp-audio/%s.webm", jobID))
	require.NoError(t, err)
	assert.Equal(t, audio, staged)
	pub.AssertExpectations(t)
}

func TestSubmit_TranscriptionWithoutAudio(t *testing.T) {
	d := New(new(MockPublisher), blob.NewMemoryStore())

	_, err := d.Submit(context.Background(), KindTranscription, Params{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSubmit_PublishFailureCleansUpStagedAudio(t *testing.T) {
	blobs := blob.NewMemoryStore()
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nsqd unreachable"))
	d := New(pub, blobs)

	_, err := d.Submit(context.Background(), KindTranscription, Params{Audio: []byte("audio")})
	require.ErrorIs(t, err, ErrDispatch)

	// The compensating delete removed the orphaned object.
	assert.Equal(t, 0, blobs.Len())
}

func TestSubmit_NoPublisher(t *testing.T) {
	d := New(nil, blob.NewMemoryStore())

	_, err := d.Submit(context.Background(), KindImageText, Params{URL: "https://a"})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSubmit_UnknownKind(t *testing.T) {
	d := New(new(MockPublisher), blob.NewMemoryStore())

	_, err := d.Submit(context.Background(), Kind("teleport"), Params{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSubmit_PropagatesCorrelationID(t *testing.T) {
	pub := new(MockPublisher)
	d := New(pub, blob.NewMemoryStore())

	var published payload
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(body []byte) bool {
		return json.Unmarshal(body, &published) == nil
	})).Return(nil)

	ctx := middleware.WithCorrelationID(context.Background(), "corr-123")
	_, err := d.Submit(ctx, KindIndex, Params{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "corr-123", published.CorrelationID)
}
