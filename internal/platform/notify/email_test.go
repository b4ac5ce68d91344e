package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffhub/internal/domain/attendance"
)

type sentMail struct {
	from, to, subject, body string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, from, to, subject, body string) error {
	m.sent = append(m.sent, sentMail{from: from, to: to, subject: subject, body: body})
	return m.err
}

func TestEmailAnomaliesEscalated(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewEmail(mailer, "alerts@staffhub.local", "boss@shop.it", newTranslator(t))

	err := n.AnomaliesEscalated(context.Background(), "m1", []attendance.Anomaly{
		{ID: "a1", ShiftID: "s1", EmployeeID: "e1", Type: attendance.AnomalyMissingCheckOut},
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "boss@shop.it", mailer.sent[0].to)
	assert.Equal(t, "1 anomalie da revisionare", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "missing_check_out: shift s1, employee e1")

	require.NoError(t, n.AnomaliesEscalated(context.Background(), "m1", nil))
	assert.Len(t, mailer.sent, 1)
}

func TestEmailWellbeingAlert(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("connection refused")}
	n := NewEmail(mailer, "alerts@staffhub.local", "hr@shop.it", newTranslator(t))

	err := n.WellbeingAlert(context.Background(), attendance.WellbeingView{EmployeeID: "e7", HoursThisWeek: 41, MaxWeeklyHours: 40})
	assert.ErrorContains(t, err, "connection refused")
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Avviso benessere: e7", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "41 ore su 40")
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	ok := &recordingMailer{}
	failing := &recordingMailer{err: errors.New("smtp down")}
	tr := newTranslator(t)
	m := Multi{NewEmail(failing, "a@b.c", "x@y.z", tr), Log{}, NewEmail(ok, "a@b.c", "x@y.z", tr)}

	err := m.WellbeingAlert(context.Background(), attendance.WellbeingView{EmployeeID: "e1"})
	assert.ErrorContains(t, err, "smtp down")
	assert.Len(t, ok.sent, 1, "a failing channel does not stop the others")

	assert.NoError(t, Multi{Log{}}.AnomaliesEscalated(context.Background(), "m1", nil))
}
