package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ShrutiSoni4370/HealNest-sub001/internal/hub"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/presence"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) Chat(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockMoodAnalyzer struct {
	mock.Mock
}

func (m *MockMoodAnalyzer) Analyze(ctx context.Context, text string) (*types.MoodReport, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.MoodReport), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendEmail(to, subject, body string) error {
	args := m.Called(to, subject, body)
	return args.Error(0)
}

func (m *MockNotifier) SendSMS(to, message string) error {
	args := m.Called(to, message)
	return args.Error(0)
}

func (m *MockNotifier) SendVerificationCode(channel, to, code string) error {
	args := m.Called(channel, to, code)
	return args.Error(0)
}

type companionFixture struct {
	hub       *hub.Hub
	registry  *presence.Registry
	chat      *MockChatClient
	analyzer  *MockMoodAnalyzer
	notifier  *MockNotifier
	companion *Companion
}

func newCompanionFixture(t *testing.T, alertEmail string) *companionFixture {
	t.Helper()
	log := logger.New("panic")
	h := hub.New(log)
	reg := presence.NewRegistry(h, log)
	chat := new(MockChatClient)
	analyzer := new(MockMoodAnalyzer)
	notifier := new(MockNotifier)
	return &companionFixture{
		hub:       h,
		registry:  reg,
		chat:      chat,
		analyzer:  analyzer,
		notifier:  notifier,
		companion: NewCompanion(h, reg, chat, analyzer, notifier, alertEmail, log),
	}
}

func (f *companionFixture) connect(t *testing.T, userID string) *hub.Connection {
	t.Helper()
	conn := hub.NewConnection(context.Background(), nil, hub.ConnectionConfig{}, logger.New("panic"))
	f.hub.Attach(conn)
	f.registry.Register(conn, userID, types.UserTypePatient, &types.UserProfile{ID: userID})
	drainFrames(conn)
	return conn
}

func drainFrames(conn *hub.Connection) []*hub.Envelope {
	var out []*hub.Envelope
	for {
		env, ok := conn.NextOutbound()
		if !ok {
			return out
		}
		out = append(out, env)
	}
}

func framesOf(frames []*hub.Envelope, event string) []*hub.Envelope {
	var out []*hub.Envelope
	for _, f := range frames {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func TestHandleMessageRejectsEmptyMessage(t *testing.T) {
	f := newCompanionFixture(t, "")
	conn := f.connect(t, "user-1")

	f.companion.handleMessage(context.Background(), conn, json.RawMessage(`{"message":"  "}`))

	frames := drainFrames(conn)
	assert.Len(t, framesOf(frames, types.EventCompanionError), 1)
	f.chat.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
	f.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestRespondRelaysChatReply(t *testing.T) {
	f := newCompanionFixture(t, "")
	conn := f.connect(t, "user-1")

	f.chat.On("Chat", mock.Anything, "I had a rough day").Return("That sounds hard. Want to talk about it?", nil)

	f.companion.respond(context.Background(), conn, "I had a rough day")

	frames := framesOf(drainFrames(conn), types.EventCompanionReply)
	require.Len(t, frames, 1)

	var body map[string]string
	require.NoError(t, json.Unmarshal(frames[0].Data, &body))
	assert.Equal(t, "That sounds hard. Want to talk about it?", body["reply"])
}

func TestRespondReportsChatFailure(t *testing.T) {
	f := newCompanionFixture(t, "")
	conn := f.connect(t, "user-1")

	f.chat.On("Chat", mock.Anything, "hello").Return("", errors.New("upstream down"))

	f.companion.respond(context.Background(), conn, "hello")

	assert.Len(t, framesOf(drainFrames(conn), types.EventCompanionError), 1)
}

func TestAssessEmitsMoodReport(t *testing.T) {
	f := newCompanionFixture(t, "")
	conn := f.connect(t, "user-1")

	f.analyzer.On("Analyze", mock.Anything, "feeling okay").Return(&types.MoodReport{
		Risk:            types.RiskLow,
		DominantEmotion: "neutral",
	}, nil)

	f.companion.assess(context.Background(), conn, "user-1", "feeling okay")

	frames := drainFrames(conn)
	assert.Len(t, framesOf(frames, types.EventCompanionMood), 1)
	assert.Empty(t, framesOf(frames, types.EventCompanionCrisis))
	f.notifier.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssessCriticalRiskAlertsCareTeam(t *testing.T) {
	f := newCompanionFixture(t, "care@healnest.example")
	conn := f.connect(t, "user-1")

	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(&types.MoodReport{
		Risk:            types.RiskCritical,
		DominantEmotion: "despair",
		CrisisDetected:  true,
	}, nil)
	f.notifier.On("SendEmail", "care@healnest.example", mock.Anything, mock.Anything).Return(nil)

	f.companion.assess(context.Background(), conn, "user-1", "I can't do this anymore")

	frames := drainFrames(conn)
	assert.Len(t, framesOf(frames, types.EventCompanionMood), 1)
	assert.Len(t, framesOf(frames, types.EventCompanionCrisis), 1)
	f.notifier.AssertExpectations(t)
}

func TestAssessHighRiskWithoutAlertAddressOnlyWarnsUser(t *testing.T) {
	f := newCompanionFixture(t, "")
	conn := f.connect(t, "user-1")

	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(&types.MoodReport{
		Risk:            types.RiskHigh,
		DominantEmotion: "grief",
	}, nil)

	f.companion.assess(context.Background(), conn, "user-1", "everything is falling apart")

	assert.Len(t, framesOf(drainFrames(conn), types.EventCompanionCrisis), 1)
	f.notifier.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssessToleratesAnalyzerFailure(t *testing.T) {
	f := newCompanionFixture(t, "")
	conn := f.connect(t, "user-1")

	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, errors.New("inference down"))

	assert.NotPanics(t, func() {
		f.companion.assess(context.Background(), conn, "user-1", "hello")
	})
	assert.Empty(t, drainFrames(conn))
}
