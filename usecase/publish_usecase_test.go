package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/usecase"
)

func newPublishUsecase(validator usecase.IValidateUsecase, platform *MockPlatform, blobStore *MockBlobStore) usecase.IPublishUsecase {
	platforms := map[string]repository.IPlatform{model.PlatformTwitter: platform}
	return usecase.NewPublishUsecase(validator, platforms, blobStore, nil, nil, 300)
}

func TestPublishUsecase_TextOnlyPost(t *testing.T) {
	conn := twitterConnection()

	mockValidator := new(MockValidator)
	mockValidator.On("EnsureValid", mock.Anything, "acct-1", model.PlatformTwitter, model.CapabilityPostText).
		Return(conn, nil).
		Once()

	mockPlatform := &MockPlatform{name: model.PlatformTwitter}
	mockPlatform.On("VerifyCredentials", mock.Anything, conn).
		Return("ext-1", "@acct", nil).
		Once()
	mockPlatform.On("CreatePost", mock.Anything, conn, "hello world", "", "").
		Return("post-1", nil).
		Once()

	publishUsecase := newPublishUsecase(mockValidator, mockPlatform, new(MockBlobStore))

	result := publishUsecase.PublishPayload(context.Background(), "acct-1", model.PlatformTwitter,
		model.PostPayload{Caption: "hello world"}, false, "content-1", 0)

	assert.Equal(t, "posted", result.Status)
	assert.Equal(t, []string{"post-1"}, result.PostIDs)
	mockValidator.AssertExpectations(t)
	mockPlatform.AssertExpectations(t)
}

func TestPublishUsecase_ThreadPartialFailure(t *testing.T) {
	conn := twitterConnection()

	mockValidator := new(MockValidator)
	mockValidator.On("EnsureValid", mock.Anything, "acct-1", model.PlatformTwitter, model.CapabilityPostText).
		Return(conn, nil).
		Once()

	// The chain halts at the failed post; earlier ids survive.
	mockPlatform := &MockPlatform{name: model.PlatformTwitter}
	mockPlatform.On("VerifyCredentials", mock.Anything, conn).
		Return("ext-1", "@acct", nil).
		Once()
	mockPlatform.On("CreateThread", mock.Anything, conn, []string{"part one", "part two", "part three"}, "").
		Return(&model.ThreadResult{
			PostIDs:     []string{"post-1"},
			FailedIndex: 1,
			Err:         errors.New("duplicate content"),
		}).
		Once()

	publishUsecase := newPublishUsecase(mockValidator, mockPlatform, new(MockBlobStore))

	result := publishUsecase.PublishPayload(context.Background(), "acct-1", model.PlatformTwitter,
		model.PostPayload{Caption: "part one", Thread: []string{"part two", "part three"}}, false, "content-1", 0)

	assert.Equal(t, "failed", result.Status)
	assert.Equal(t, []string{"post-1"}, result.PostIDs)
	assert.Equal(t, 1, result.FailedIndex)
	assert.Contains(t, result.Error, "duplicate content")
	mockValidator.AssertExpectations(t)
	mockPlatform.AssertExpectations(t)
}

func TestPublishUsecase_VideoIsStagedFreshlyPresigned(t *testing.T) {
	conn := twitterConnection()
	videoBytes := []byte("video-bytes")

	mockValidator := new(MockValidator)
	mockValidator.On("EnsureValid", mock.Anything, "acct-1", model.PlatformTwitter, model.CapabilityVideoUpload).
		Return(conn, nil).
		Once()

	// The stored key is presigned immediately before the fetch; earlier URLs
	// are never reused.
	mockBlobStore := new(MockBlobStore)
	mockBlobStore.On("Presign", mock.Anything, "media/clip.mp4", 300).
		Return("https://blobs.example/fresh?sig=abc", nil).
		Once()
	mockBlobStore.On("Fetch", mock.Anything, "https://blobs.example/fresh?sig=abc").
		Return(videoBytes, "video/mp4", nil).
		Once()

	mockPlatform := &MockPlatform{name: model.PlatformTwitter}
	mockPlatform.On("VerifyCredentials", mock.Anything, conn).
		Return("ext-1", "@acct", nil).
		Once()
	mockPlatform.On("UploadVideo", mock.Anything, conn, videoBytes, "video/mp4").
		Return("media-99", nil).
		Once()
	mockPlatform.On("CreatePost", mock.Anything, conn, "watch this", "media-99", "").
		Return("post-7", nil).
		Once()

	publishUsecase := newPublishUsecase(mockValidator, mockPlatform, mockBlobStore)

	result := publishUsecase.PublishPayload(context.Background(), "acct-1", model.PlatformTwitter,
		model.PostPayload{Caption: "watch this", MediaRefs: []string{"media/clip.mp4"}, MediaType: model.MediaTypeVideo},
		true, "content-2", 0)

	assert.Equal(t, "posted", result.Status)
	assert.Equal(t, []string{"post-7"}, result.PostIDs)
	mockValidator.AssertExpectations(t)
	mockBlobStore.AssertExpectations(t)
	mockPlatform.AssertExpectations(t)
}

func TestPublishUsecase_RevokedTokenHaltsBeforeAnyWrite(t *testing.T) {
	conn := twitterConnection()

	// Local validation passes (the token is unexpired), but the platform has
	// revoked it. The credential check must catch that before media is
	// staged or anything is posted.
	mockValidator := new(MockValidator)
	mockValidator.On("EnsureValid", mock.Anything, "acct-1", model.PlatformTwitter, model.CapabilityMediaWrite).
		Return(conn, nil).
		Once()

	mockPlatform := &MockPlatform{name: model.PlatformTwitter}
	mockPlatform.On("VerifyCredentials", mock.Anything, conn).
		Return("", "", model.ErrRequiresReauthorization).
		Once()

	mockBlobStore := new(MockBlobStore)

	publishUsecase := newPublishUsecase(mockValidator, mockPlatform, mockBlobStore)

	result := publishUsecase.PublishPayload(context.Background(), "acct-1", model.PlatformTwitter,
		model.PostPayload{Caption: "hello", MediaRefs: []string{"media/pic.png"}, MediaType: model.MediaTypeImage},
		false, "content-1", 0)

	assert.Equal(t, "failed", result.Status)
	assert.Contains(t, result.Error, model.ErrRequiresReauthorization.Error())
	mockPlatform.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockPlatform.AssertNotCalled(t, "UploadImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockBlobStore.AssertNotCalled(t, "Presign", mock.Anything, mock.Anything, mock.Anything)
	mockValidator.AssertExpectations(t)
	mockPlatform.AssertExpectations(t)
}

func TestPublishUsecase_ValidationFailureShortCircuits(t *testing.T) {
	mockValidator := new(MockValidator)
	mockValidator.On("EnsureValid", mock.Anything, "acct-1", model.PlatformTwitter, model.CapabilityPostText).
		Return(nil, model.ErrRequiresReauthorization).
		Once()

	mockPlatform := &MockPlatform{name: model.PlatformTwitter}

	publishUsecase := newPublishUsecase(mockValidator, mockPlatform, new(MockBlobStore))

	result := publishUsecase.PublishPayload(context.Background(), "acct-1", model.PlatformTwitter,
		model.PostPayload{Caption: "hello"}, false, "content-1", 0)

	assert.Equal(t, "failed", result.Status)
	assert.Contains(t, result.Error, model.ErrRequiresReauthorization.Error())
	mockValidator.AssertExpectations(t)
	mockPlatform.AssertExpectations(t)
}

func TestPublishUsecase_PostNowIsPerPlatform(t *testing.T) {
	conn := twitterConnection()

	// One platform fails validation, the other posts; neither outcome
	// affects the other.
	mockValidator := new(MockValidator)
	mockValidator.On("EnsureValid", mock.Anything, "acct-1", model.PlatformTwitter, model.CapabilityPostText).
		Return(conn, nil).
		Once()
	mockValidator.On("EnsureValid", mock.Anything, "acct-1", model.PlatformFacebook, model.CapabilityPostText).
		Return(nil, model.ErrConnectionNotFound).
		Once()

	mockTwitter := &MockPlatform{name: model.PlatformTwitter}
	mockTwitter.On("VerifyCredentials", mock.Anything, conn).
		Return("ext-1", "@acct", nil).
		Once()
	mockTwitter.On("CreatePost", mock.Anything, conn, "hello", "", "").
		Return("post-1", nil).
		Once()
	mockFacebook := &MockPlatform{name: model.PlatformFacebook}

	platforms := map[string]repository.IPlatform{
		model.PlatformTwitter:  mockTwitter,
		model.PlatformFacebook: mockFacebook,
	}
	publishUsecase := usecase.NewPublishUsecase(mockValidator, platforms, new(MockBlobStore), nil, nil, 300)

	results := publishUsecase.PostNow(context.Background(), "acct-1", &dto.PostNowRequest{
		Platforms: []string{"Twitter", "facebook"},
		ContentID: "content-1",
		Caption:   "hello",
	})

	assert.Len(t, results, 2)
	assert.Equal(t, "posted", results[0].Status)
	assert.Equal(t, "failed", results[1].Status)
	mockValidator.AssertExpectations(t)
	mockTwitter.AssertExpectations(t)
	mockFacebook.AssertExpectations(t)
}

func TestPublishUsecase_UnsupportedPlatform(t *testing.T) {
	mockValidator := new(MockValidator)
	publishUsecase := usecase.NewPublishUsecase(mockValidator, map[string]repository.IPlatform{}, new(MockBlobStore), nil, nil, 300)

	result := publishUsecase.PublishPayload(context.Background(), "acct-1", "myspace",
		model.PostPayload{Caption: "hello"}, false, "content-1", 0)

	assert.Equal(t, "failed", result.Status)
	assert.Contains(t, result.Error, "unsupported platform")
	mockValidator.AssertExpectations(t)
}
