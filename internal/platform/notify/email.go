package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"staffhub/internal/domain/attendance"
	"staffhub/internal/platform/email"
	"staffhub/internal/platform/i18n"
)

// Email mails escalations and wellbeing alerts to a fixed recipient list.
type Email struct {
	mailer email.Mailer
	from   string
	to     string
	tr     *i18n.Translator
}

func NewEmail(mailer email.Mailer, from, to string, tr *i18n.Translator) *Email {
	return &Email{mailer: mailer, from: from, to: to, tr: tr}
}

func (e *Email) AnomaliesEscalated(ctx context.Context, merchantID string, anomalies []attendance.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	locale := e.tr.DefaultLocale()
	data := map[string]any{"Count": len(anomalies), "Merchant": merchantID}

	var b strings.Builder
	b.WriteString(e.tr.In(locale, "notify.escalated", data))
	b.WriteString("\n")
	for _, a := range anomalies {
		fmt.Fprintf(&b, "\n- %s: shift %s, employee %s", a.Type, a.ShiftID, a.EmployeeID)
	}
	return e.send(ctx, e.tr.In(locale, "notify.escalated.subject", data), b.String())
}

func (e *Email) WellbeingAlert(ctx context.Context, view attendance.WellbeingView) error {
	locale := e.tr.DefaultLocale()
	data := map[string]any{
		"Employee": view.EmployeeID,
		"Hours":    view.HoursThisWeek,
		"Max":      view.MaxWeeklyHours,
	}
	return e.send(ctx, e.tr.In(locale, "notify.wellbeing.subject", data), e.tr.In(locale, "notify.wellbeing", data))
}

func (e *Email) send(ctx context.Context, subject, body string) error {
	if err := e.mailer.Send(ctx, e.from, e.to, subject, body); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	return nil
}

// Multi fans a notification out to every channel and joins their errors.
type Multi []attendance.Notifier

func (m Multi) AnomaliesEscalated(ctx context.Context, merchantID string, anomalies []attendance.Anomaly) error {
	var errs []error
	for _, n := range m {
		if err := n.AnomaliesEscalated(ctx, merchantID, anomalies); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) WellbeingAlert(ctx context.Context, view attendance.WellbeingView) error {
	var errs []error
	for _, n := range m {
		if err := n.WellbeingAlert(ctx, view); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
