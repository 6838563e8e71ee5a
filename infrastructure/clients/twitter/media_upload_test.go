package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
)

// uploadServer records the media upload calls it receives and replays
// scripted STATUS states.
type uploadServer struct {
	mu            sync.Mutex
	appendIndices []int
	appendSizes   []int64
	statusCalls   int
	statusStates  []string // consumed one per STATUS call; last repeats
	failAppendAt  int      // segment index to reject, -1 for none
	initStatus    int      // non-zero forces an INIT error status
}

func newUploadServer() *uploadServer {
	return &uploadServer{failAppendAt: -1, statusStates: []string{"succeeded"}}
}

func (s *uploadServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch r.URL.Query().Get("command") {
		case "INIT":
			if s.initStatus != 0 {
				w.WriteHeader(s.initStatus)
				_, _ = w.Write([]byte(`{"errors":[{"message":"nope"}]}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"media_id_string": "media-1"})
		case "APPEND":
			index, _ := strconv.Atoi(r.URL.Query().Get("segment_index"))
			if index == s.failAppendAt {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"errors":[{"message":"segment rejected"}]}`))
				return
			}
			file, _, err := r.FormFile("media")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer file.Close()
			size := int64(0)
			buf := make([]byte, 64*1024)
			for {
				n, err := file.Read(buf)
				size += int64(n)
				if err != nil {
					break
				}
			}
			s.appendIndices = append(s.appendIndices, index)
			s.appendSizes = append(s.appendSizes, size)
			w.WriteHeader(http.StatusNoContent)
		case "FINALIZE":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"media_id_string": "media-1",
				"processing_info": map[string]any{"state": "pending", "check_after_secs": 1},
			})
		case "STATUS":
			state := s.statusStates[len(s.statusStates)-1]
			if s.statusCalls < len(s.statusStates) {
				state = s.statusStates[s.statusCalls]
			}
			s.statusCalls++
			info := map[string]any{"state": state}
			if state == "failed" {
				info["error"] = map[string]any{"message": "invalid codec"}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"media_id_string": "media-1",
				"processing_info": info,
			})
		default:
			// Single-shot image upload has no command parameter.
			_ = json.NewEncoder(w).Encode(map[string]any{"media_id_string": "img-1"})
		}
	}
}

func newTestClient(server *httptest.Server) *Client {
	c := NewTwitterClient(testTwitterConfig())
	c.httpClient = server.Client()
	c.apiBaseURL = server.URL
	c.uploadBase = server.URL
	c.pollInterval = time.Millisecond
	c.maxPollAttempts = 5
	return c
}

func oauth1Connection() *model.Connection {
	token := "oauth1-token"
	secret := "oauth1-secret"
	return &model.Connection{
		AccountID:         "acct-1",
		Platform:          model.PlatformTwitter,
		AccessToken:       "oauth2-access",
		OAuth1Token:       &token,
		OAuth1TokenSecret: &secret,
		Active:            true,
	}
}

func TestUploadVideo_ChunksInOrder(t *testing.T) {
	state := newUploadServer()
	state.statusStates = []string{"in_progress", "in_progress", "succeeded"}
	server := httptest.NewServer(state.handler())
	defer server.Close()

	client := newTestClient(server)

	// Two full segments plus a 3-byte tail.
	data := make([]byte, 2*UploadChunkSize+3)
	mediaID, err := client.UploadVideo(context.Background(), oauth1Connection(), data, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "media-1", mediaID)

	assert.Equal(t, []int{0, 1, 2}, state.appendIndices)
	assert.Equal(t, []int64{UploadChunkSize, UploadChunkSize, 3}, state.appendSizes)
	// Two in_progress polls then the terminal succeeded one.
	assert.Equal(t, 3, state.statusCalls)
}

func TestUploadVideo_AppendFailureAborts(t *testing.T) {
	state := newUploadServer()
	state.failAppendAt = 1
	server := httptest.NewServer(state.handler())
	defer server.Close()

	client := newTestClient(server)

	data := make([]byte, 3*UploadChunkSize)
	_, err := client.UploadVideo(context.Background(), oauth1Connection(), data, "video/mp4")

	var uploadErr *model.MediaUploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "APPEND", uploadErr.Phase)
	assert.Equal(t, http.StatusInternalServerError, uploadErr.StatusCode)
	// Segment 0 landed; nothing after the rejected segment was attempted.
	assert.Equal(t, []int{0}, state.appendIndices)
	assert.Equal(t, 0, state.statusCalls)
}

func TestUploadVideo_ProcessingFailureIsTerminal(t *testing.T) {
	state := newUploadServer()
	state.statusStates = []string{"in_progress", "failed"}
	server := httptest.NewServer(state.handler())
	defer server.Close()

	client := newTestClient(server)

	_, err := client.UploadVideo(context.Background(), oauth1Connection(), make([]byte, 10), "video/mp4")

	var processingErr *model.MediaProcessingError
	require.ErrorAs(t, err, &processingErr)
	assert.Equal(t, "media-1", processingErr.MediaID)
	assert.Contains(t, processingErr.Reason, "invalid codec")
}

func TestUploadVideo_PollBoundExhausted(t *testing.T) {
	state := newUploadServer()
	state.statusStates = []string{"in_progress"}
	server := httptest.NewServer(state.handler())
	defer server.Close()

	client := newTestClient(server)
	client.maxPollAttempts = 3

	_, err := client.UploadVideo(context.Background(), oauth1Connection(), make([]byte, 10), "video/mp4")

	assert.ErrorIs(t, err, model.ErrMediaProcessingTimeout)
	assert.Equal(t, 3, state.statusCalls)
}

func TestUploadVideo_ScopeAndRateLimitClassification(t *testing.T) {
	for _, tc := range []struct {
		name        string
		status      int
		scope       bool
		rateLimited bool
	}{
		{name: "forbidden reads as scope problem", status: http.StatusForbidden, scope: true},
		{name: "throttled reads as rate limit", status: http.StatusTooManyRequests, rateLimited: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			state := newUploadServer()
			state.initStatus = tc.status
			server := httptest.NewServer(state.handler())
			defer server.Close()

			client := newTestClient(server)
			_, err := client.UploadVideo(context.Background(), oauth1Connection(), make([]byte, 10), "video/mp4")

			var uploadErr *model.MediaUploadError
			require.ErrorAs(t, err, &uploadErr)
			assert.Equal(t, tc.scope, uploadErr.ScopeProblem())
			assert.Equal(t, tc.rateLimited, uploadErr.RateLimited())
		})
	}
}

func TestUploadVideo_RequiresOAuth1Leg(t *testing.T) {
	client := NewTwitterClient(testTwitterConfig())

	conn := oauth1Connection()
	conn.OAuth1Token = nil
	conn.OAuth1TokenSecret = nil

	_, err := client.UploadVideo(context.Background(), conn, make([]byte, 10), "video/mp4")
	assert.ErrorIs(t, err, model.ErrRequiresReauthorization)

	_, err = client.UploadImage(context.Background(), conn, make([]byte, 10), "image/png")
	assert.ErrorIs(t, err, model.ErrRequiresReauthorization)
}

func TestUploadImage_SingleShot(t *testing.T) {
	state := newUploadServer()
	server := httptest.NewServer(state.handler())
	defer server.Close()

	client := newTestClient(server)

	mediaID, err := client.UploadImage(context.Background(), oauth1Connection(), []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "img-1", mediaID)
	assert.Empty(t, state.appendIndices)
}

func TestChunkCount(t *testing.T) {
	assert.Equal(t, 0, chunkCount(0, UploadChunkSize))
	assert.Equal(t, 1, chunkCount(1, UploadChunkSize))
	assert.Equal(t, 1, chunkCount(UploadChunkSize, UploadChunkSize))
	assert.Equal(t, 2, chunkCount(UploadChunkSize+1, UploadChunkSize))
	assert.Equal(t, 3, chunkCount(2*UploadChunkSize+3, UploadChunkSize))
}

func TestUploadVideo_ContextCancelledDuringPoll(t *testing.T) {
	state := newUploadServer()
	state.statusStates = []string{"pending"}
	server := httptest.NewServer(state.handler())
	defer server.Close()

	client := newTestClient(server)
	client.pollInterval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.UploadVideo(ctx, oauth1Connection(), make([]byte, 10), "video/mp4")
	assert.True(t, errors.Is(err, context.Canceled))
}
