package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vmerrors "github.com/openvoip/voicemailstack/internal/errors"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/models"
)

type fakeVoipmsClient struct {
	mu           sync.Mutex
	audio        []byte
	fetchErr     error
	listenedRefs []models.AudioReference
	deletedRefs  []models.AudioReference
	deleteErr    error
}

func (f *fakeVoipmsClient) ListMailboxes(_ context.Context) ([]models.Mailbox, error) {
	return nil, nil
}

func (f *fakeVoipmsClient) ListMessages(_ context.Context, _ *models.Mailbox) (models.MailboxSnapshot, error) {
	return models.MailboxSnapshot{}, nil
}

func (f *fakeVoipmsClient) FetchAudio(_ context.Context, _ models.AudioReference) ([]byte, error) {
	return f.audio, f.fetchErr
}

func (f *fakeVoipmsClient) SetListened(_ context.Context, ref models.AudioReference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listenedRefs = append(f.listenedRefs, ref)
	return nil
}

func (f *fakeVoipmsClient) DeleteMessage(_ context.Context, ref models.AudioReference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedRefs = append(f.deletedRefs, ref)
	return f.deleteErr
}

func (f *fakeVoipmsClient) CheckCredentials(_ context.Context) error { return nil }

func (f *fakeVoipmsClient) listenedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listenedRefs)
}

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func audioRouter(client *fakeVoipmsClient) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/audio/:ref", StreamAudio(client, testLogger()))
	r.POST("/messages/:ref/listened", MarkListened(client))
	r.DELETE("/messages/:ref", DeleteMessage(client))
	return r
}

func validRef() models.AudioReference {
	return models.AudioReference{Mailbox: "100", Folder: "INBOX", MessageNum: 3}
}

func TestStreamAudio_FullPayload(t *testing.T) {
	// Arrange
	payload := make([]byte, 500)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	client := &fakeVoipmsClient{audio: payload}
	router := audioRouter(client)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audio/"+validRef().Encode(), nil)
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
	assert.Equal(t, "500", w.Header().Get("Content-Length"))
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestStreamAudio_SynthesizedByteRange(t *testing.T) {
	// Arrange
	payload := make([]byte, 500)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	client := &fakeVoipmsClient{audio: payload}
	router := audioRouter(client)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audio/"+validRef().Encode(), nil)
	req.Header.Set("Range", "bytes=0-99")
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 0-99/500", w.Header().Get("Content-Range"))
	assert.Equal(t, payload[:100], w.Body.Bytes())
}

func TestStreamAudio_OpenEndedRange(t *testing.T) {
	// Arrange
	payload := make([]byte, 500)
	client := &fakeVoipmsClient{audio: payload}
	router := audioRouter(client)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audio/"+validRef().Encode(), nil)
	req.Header.Set("Range", "bytes=400-")
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 400-499/500", w.Header().Get("Content-Range"))
	assert.Equal(t, 100, w.Body.Len())
}

func TestStreamAudio_MalformedReference(t *testing.T) {
	// Arrange
	client := &fakeVoipmsClient{audio: []byte("audio")}
	router := audioRouter(client)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audio/not-a-valid-token!!", nil)
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamAudio_MessageGone(t *testing.T) {
	// Arrange
	client := &fakeVoipmsClient{fetchErr: &vmerrors.NotFoundError{Reference: "100/INBOX/3"}}
	router := audioRouter(client)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audio/"+validRef().Encode(), nil)
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamAudio_ProviderFailure(t *testing.T) {
	// Arrange
	client := &fakeVoipmsClient{fetchErr: &vmerrors.TransientError{Cause: assert.AnError}}
	router := audioRouter(client)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audio/"+validRef().Encode(), nil)
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestStreamAudio_MarksListenedAfterPlayback(t *testing.T) {
	// Arrange
	client := &fakeVoipmsClient{audio: []byte("audio")}
	router := audioRouter(client)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audio/"+validRef().Encode(), nil)
	router.ServeHTTP(w, req)

	// Assert: the mark runs detached from the request
	require.Equal(t, http.StatusOK, w.Code)
	assert.Eventually(t, func() bool {
		return client.listenedCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMarkListened(t *testing.T) {
	// Arrange
	client := &fakeVoipmsClient{}
	router := audioRouter(client)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/messages/"+validRef().Encode()+"/listened", nil)
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, client.listenedCount())
}

func TestDeleteMessage_NotFound(t *testing.T) {
	// Arrange
	client := &fakeVoipmsClient{deleteErr: &vmerrors.NotFoundError{Reference: "100/INBOX/3"}}
	router := audioRouter(client)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/messages/"+validRef().Encode(), nil)
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteMessage_MalformedReference(t *testing.T) {
	// Arrange
	client := &fakeVoipmsClient{}
	router := audioRouter(client)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/messages/garbage!!", nil)
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, client.deletedRefs)
}
