package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"staffhub/internal/domain/attendance"
	"staffhub/internal/platform/i18n"
)

type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts escalations and wellbeing alerts to a single channel, in the default locale.
type Slack struct {
	client  poster
	channel string
	tr      *i18n.Translator
}

func NewSlack(token, channel string, tr *i18n.Translator, opts ...slack.Option) *Slack {
	return &Slack{client: slack.New(token, opts...), channel: channel, tr: tr}
}

func (s *Slack) postMessage(ctx context.Context, message string) error {
	_, _, err := s.client.PostMessageContext(ctx,
		s.channel,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (s *Slack) AnomaliesEscalated(ctx context.Context, merchantID string, anomalies []attendance.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	locale := s.tr.DefaultLocale()
	var b strings.Builder
	b.WriteString(s.tr.In(locale, "notify.escalated", map[string]any{"Count": len(anomalies), "Merchant": merchantID}))
	for _, a := range anomalies {
		fmt.Fprintf(&b, "\n• %s (shift %s, employee %s)", a.Type, a.ShiftID, a.EmployeeID)
	}
	return s.postMessage(ctx, b.String())
}

func (s *Slack) WellbeingAlert(ctx context.Context, view attendance.WellbeingView) error {
	locale := s.tr.DefaultLocale()
	msg := s.tr.In(locale, "notify.wellbeing", map[string]any{
		"Employee": view.EmployeeID,
		"Hours":    view.HoursThisWeek,
		"Max":      view.MaxWeeklyHours,
	})
	return s.postMessage(ctx, msg+" ("+string(view.Alert)+")")
}

// Log writes notifications to the structured log when no chat integration is configured.
type Log struct{}

func (Log) AnomaliesEscalated(ctx context.Context, merchantID string, anomalies []attendance.Anomaly) error {
	ids := make([]string, 0, len(anomalies))
	for _, a := range anomalies {
		ids = append(ids, a.ID)
	}
	slog.InfoContext(ctx, "anomalies escalated", "merchantId", merchantID, "count", len(anomalies), "anomalyIds", ids)
	return nil
}

func (Log) WellbeingAlert(ctx context.Context, view attendance.WellbeingView) error {
	slog.InfoContext(ctx, "wellbeing alert",
		"employeeId", view.EmployeeID,
		"alert", view.Alert,
		"hoursThisWeek", view.HoursThisWeek,
		"overtimeThisWeek", view.OvertimeThisWeek,
	)
	return nil
}
