package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/livingvectors/lv-api/internal/models"
	"github.com/livingvectors/lv-api/internal/oauth"
	"github.com/livingvectors/lv-api/internal/services"
	"github.com/stretchr/testify/mock"
)

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockUserService) EnsureDevUser(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockAccountLinker mocks the AccountLinker
type MockAccountLinker struct {
	mock.Mock
}

func (m *MockAccountLinker) Link(ctx context.Context, a *oauth.Assertion) (*services.LinkResult, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LinkResult), args.Error(1)
}

// MockSessionService mocks the SessionService
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, user *models.User, ipAddress, userAgent string) (string, time.Time, error) {
	args := m.Called(ctx, user, ipAddress, userAgent)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockSessionService) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSessionService) Materialize(ctx context.Context, token string) (*services.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Session), args.Error(1)
}

// MockVerificationService mocks the VerificationService
type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Create(ctx context.Context, identifier string) (string, error) {
	args := m.Called(ctx, identifier)
	return args.String(0), args.Error(1)
}

func (m *MockVerificationService) Consume(ctx context.Context, identifier, token string) error {
	args := m.Called(ctx, identifier, token)
	return args.Error(0)
}

// MockEmailService mocks the EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendSignInLink(to, link string) error {
	args := m.Called(to, link)
	return args.Error(0)
}

// MockPyAPIService mocks the PyAPIClient
type MockPyAPIService struct {
	mock.Mock
}

func (m *MockPyAPIService) Chat(ctx context.Context, message string, history []services.HistoryMessage) (*services.ChatReply, error) {
	args := m.Called(ctx, message, history)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ChatReply), args.Error(1)
}

func (m *MockPyAPIService) Status(ctx context.Context) (*services.ServiceStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ServiceStatus), args.Error(1)
}

// MockProvider mocks an OAuth provider
type MockProvider struct {
	mock.Mock
	ProviderName string
}

func (m *MockProvider) Name() string {
	return m.ProviderName
}

func (m *MockProvider) DisplayName() string {
	return "Mock " + m.ProviderName
}

func (m *MockProvider) GetConsentURL(state string) string {
	return "https://provider.example.com/authorize?state=" + state
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code string) (*oauth.Assertion, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.Assertion), args.Error(1)
}
