package usecase_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// Mock implementations shared by the usecase tests.

type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) GetConnection(ctx context.Context, accountID, platform string) (*model.Connection, error) {
	args := m.Called(ctx, accountID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

func (m *MockConnectionRepository) UpsertOAuth2(ctx context.Context, conn *model.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) UpdateOAuth1(ctx context.Context, accountID, platform, token, tokenSecret, handle string) error {
	args := m.Called(ctx, accountID, platform, token, tokenSecret, handle)
	return args.Error(0)
}

func (m *MockConnectionRepository) UpdateOAuth2Tokens(ctx context.Context, accountID, platform, accessToken, refreshToken string, expiresAt *time.Time) error {
	args := m.Called(ctx, accountID, platform, accessToken, refreshToken, expiresAt)
	return args.Error(0)
}

func (m *MockConnectionRepository) Invalidate(ctx context.Context, accountID, platform string) error {
	args := m.Called(ctx, accountID, platform)
	return args.Error(0)
}

func (m *MockConnectionRepository) ListConnections(ctx context.Context, accountID string) ([]*model.Connection, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Connection), args.Error(1)
}

type MockOAuth2Flow struct {
	mock.Mock
}

func (m *MockOAuth2Flow) AuthorizeURL(state, codeVerifier, redirectURI string, scopes []string) string {
	args := m.Called(state, codeVerifier, redirectURI, scopes)
	return args.String(0)
}

func (m *MockOAuth2Flow) Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*repository.OAuth2Grant, error) {
	args := m.Called(ctx, code, codeVerifier, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.OAuth2Grant), args.Error(1)
}

func (m *MockOAuth2Flow) Refresh(ctx context.Context, refreshToken string) (*repository.OAuth2Grant, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.OAuth2Grant), args.Error(1)
}

type MockOAuth1Flow struct {
	mock.Mock
}

func (m *MockOAuth1Flow) RequestToken(ctx context.Context, callbackURL string) (string, string, string, error) {
	args := m.Called(ctx, callbackURL)
	return args.String(0), args.String(1), args.String(2), args.Error(3)
}

func (m *MockOAuth1Flow) AccessToken(ctx context.Context, requestToken, requestTokenSecret, verifier string) (string, string, string, error) {
	args := m.Called(ctx, requestToken, requestTokenSecret, verifier)
	return args.String(0), args.String(1), args.String(2), args.Error(3)
}

type MockPendingAuthorization struct {
	mock.Mock
}

func (m *MockPendingAuthorization) Save(ctx context.Context, pending *model.PendingAuthorization) error {
	args := m.Called(ctx, pending)
	return args.Error(0)
}

func (m *MockPendingAuthorization) Consume(ctx context.Context, state string) (*model.PendingAuthorization, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PendingAuthorization), args.Error(1)
}

type MockPlatform struct {
	mock.Mock
	name string
}

func (m *MockPlatform) Name() string { return m.name }

func (m *MockPlatform) VerifyCredentials(ctx context.Context, conn *model.Connection) (string, string, error) {
	args := m.Called(ctx, conn)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockPlatform) UploadImage(ctx context.Context, conn *model.Connection, data []byte, mimeType string) (string, error) {
	args := m.Called(ctx, conn, data, mimeType)
	return args.String(0), args.Error(1)
}

func (m *MockPlatform) UploadVideo(ctx context.Context, conn *model.Connection, data []byte, mimeType string) (string, error) {
	args := m.Called(ctx, conn, data, mimeType)
	return args.String(0), args.Error(1)
}

func (m *MockPlatform) CreatePost(ctx context.Context, conn *model.Connection, text, mediaID, replyToID string) (string, error) {
	args := m.Called(ctx, conn, text, mediaID, replyToID)
	return args.String(0), args.Error(1)
}

func (m *MockPlatform) CreateThread(ctx context.Context, conn *model.Connection, texts []string, mediaID string) *model.ThreadResult {
	args := m.Called(ctx, conn, texts, mediaID)
	return args.Get(0).(*model.ThreadResult)
}

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) PutObject(ctx context.Context, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Presign(ctx context.Context, key string, ttlSeconds int) (string, error) {
	args := m.Called(ctx, key, ttlSeconds)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

type MockScheduledPostRepository struct {
	mock.Mock
}

func (m *MockScheduledPostRepository) Create(ctx context.Context, post *model.ScheduledPost) (int64, error) {
	args := m.Called(ctx, post)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScheduledPostRepository) GetByID(ctx context.Context, id int64) (*model.ScheduledPost, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduledPost), args.Error(1)
}

func (m *MockScheduledPostRepository) FindReusable(ctx context.Context, accountID, contentID string, postIndex int) (*model.ScheduledPost, error) {
	args := m.Called(ctx, accountID, contentID, postIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduledPost), args.Error(1)
}

func (m *MockScheduledPostRepository) ResetForReschedule(ctx context.Context, id int64, dueAt time.Time, platforms string, payload model.PostPayload) error {
	args := m.Called(ctx, id, dueAt, platforms, payload)
	return args.Error(0)
}

func (m *MockScheduledPostRepository) SetJobHandle(ctx context.Context, id int64, handle *string) error {
	args := m.Called(ctx, id, handle)
	return args.Error(0)
}

func (m *MockScheduledPostRepository) MarkTerminal(ctx context.Context, id int64, status string, errMsg *string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockScheduledPostRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ScheduledPost), args.Error(1)
}

func (m *MockScheduledPostRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ScheduledPost), args.Error(1)
}

type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, scheduledPostID int64, dueAt time.Time) (string, error) {
	args := m.Called(ctx, scheduledPostID, dueAt)
	return args.String(0), args.Error(1)
}

func (m *MockJobQueue) Cancel(ctx context.Context, handle string) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(ctx context.Context, accountID, platform string, capability model.Capability) (*dto.ValidateResponse, error) {
	args := m.Called(ctx, accountID, platform, capability)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ValidateResponse), args.Error(1)
}

func (m *MockValidator) EnsureValid(ctx context.Context, accountID, platform string, capability model.Capability) (*model.Connection, error) {
	args := m.Called(ctx, accountID, platform, capability)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PostNow(ctx context.Context, accountID string, req *dto.PostNowRequest) []dto.PlatformPostResult {
	args := m.Called(ctx, accountID, req)
	return args.Get(0).([]dto.PlatformPostResult)
}

func (m *MockPublisher) PublishPayload(ctx context.Context, accountID, platform string, payload model.PostPayload, scheduled bool, contentID string, postIndex int) dto.PlatformPostResult {
	args := m.Called(ctx, accountID, platform, payload, scheduled, contentID, postIndex)
	return args.Get(0).(dto.PlatformPostResult)
}
