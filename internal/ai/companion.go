package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/internal/hub"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/presence"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/interfaces"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// Companion exposes the supportive chat over the socket layer: every user
// message gets an LLM reply and a mood assessment. A crisis-graded message
// additionally alerts the configured care-team address. Replies and
// assessments only ever go to the sending connection.
type Companion struct {
	hub        *hub.Hub
	registry   *presence.Registry
	chat       interfaces.ChatClient
	analyzer   interfaces.MoodAnalyzer
	notifier   interfaces.NotificationService
	alertEmail string
	logger     *logrus.Entry
}

// NewCompanion creates the companion chat handler. alertEmail may be empty,
// in which case crisis alerts are logged but not delivered.
func NewCompanion(h *hub.Hub, reg *presence.Registry, chat interfaces.ChatClient, analyzer interfaces.MoodAnalyzer, notifier interfaces.NotificationService, alertEmail string, log *logger.Logger) *Companion {
	return &Companion{
		hub:        h,
		registry:   reg,
		chat:       chat,
		analyzer:   analyzer,
		notifier:   notifier,
		alertEmail: alertEmail,
		logger:     log.WithComponent("companion"),
	}
}

// RegisterHandlers wires the companion events into the hub router.
func (c *Companion) RegisterHandlers(h *hub.Hub) error {
	return h.Handle(types.EventCompanionMessage, c.handleMessage)
}

// handleMessage validates the payload and hands the slow inference calls to
// goroutines so the dispatch loop stays responsive. Neither call touches
// shared hub state beyond emitting to the caller.
func (c *Companion) handleMessage(ctx context.Context, conn *hub.Connection, data json.RawMessage) {
	var payload types.CompanionMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || strings.TrimSpace(payload.Message) == "" {
		c.hub.EmitTo(conn, types.EventCompanionError, &types.ErrorPayload{Message: "message is required"})
		return
	}

	userID, _ := c.registry.ResolveID(conn)

	go c.assess(ctx, conn, userID, payload.Message)
	go c.respond(ctx, conn, payload.Message)
}

// respond generates the LLM reply for one message.
func (c *Companion) respond(ctx context.Context, conn *hub.Connection, message string) {
	reply, err := c.chat.Chat(ctx, message)
	if err != nil {
		c.logger.WithError(err).Error("Companion reply failed")
		c.hub.EmitTo(conn, types.EventCompanionError, &types.ErrorPayload{Message: "companion is unavailable right now"})
		return
	}
	c.hub.EmitTo(conn, types.EventCompanionReply, map[string]string{"reply": reply})
}

// assess grades the message mood. An analyzer failure drops the assessment
// silently; the chat reply still goes out.
func (c *Companion) assess(ctx context.Context, conn *hub.Connection, userID, message string) {
	report, err := c.analyzer.Analyze(ctx, message)
	if err != nil {
		c.logger.WithError(err).Warn("Mood analysis unavailable")
		return
	}
	report.UserID = userID

	c.hub.EmitTo(conn, types.EventCompanionMood, report)

	if report.Risk != types.RiskCritical && report.Risk != types.RiskHigh {
		return
	}

	c.hub.EmitTo(conn, types.EventCompanionCrisis, map[string]interface{}{
		"risk": report.Risk,
		"message": "You don't have to go through this alone. Please consider reaching out " +
			"to a crisis helpline or emergency services right now.",
	})
	c.alertCareTeam(userID, report)
}

// alertCareTeam emails the configured address about a high-risk message.
func (c *Companion) alertCareTeam(userID string, report *types.MoodReport) {
	entry := c.logger.WithFields(logrus.Fields{"user_id": userID, "risk": report.Risk})
	if c.alertEmail == "" {
		entry.Warn("Crisis detected but no alert address configured")
		return
	}

	body := fmt.Sprintf(
		"A message from user %s was graded %s risk (dominant emotion: %s, crisis keywords: %t).\nPlease follow up according to the escalation protocol.",
		userID, report.Risk, report.DominantEmotion, report.CrisisDetected,
	)
	if err := c.notifier.SendEmail(c.alertEmail, "HealNest crisis alert", body); err != nil {
		entry.WithError(err).Error("Failed to deliver crisis alert")
		return
	}
	entry.Info("Crisis alert delivered")
}
