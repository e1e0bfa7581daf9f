package report

import (
	"context"
	"encoding/base64"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/user"
)

func TestService_LowAttendanceEmails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	msgs, err := f.svc.LowAttendanceEmails(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msg := msgs[0]
	assert.Equal(t, []mail.Address{{Name: "Maria Garcia", Address: "maria@portal.test"}}, msg.To)
	assert.Equal(t, lowAttendanceTemplate, msg.TemplateName)
	data, ok := msg.TemplateData.(lowAttendanceData)
	require.True(t, ok)
	assert.Equal(t, "Maria Garcia", data.Name)
	assert.Equal(t, 1, data.Present)
	assert.Equal(t, 3, data.Total)
	assert.InDelta(t, 33.3, data.Percentage, 0.05)
	assert.Equal(t, attendance.LowThreshold, data.Threshold)

	require.Len(t, msg.Attachments, 1)
	at := msg.Attachments[0]
	assert.Equal(t, "attendance.csv", at.Filename)
	assert.Equal(t, "text/csv", at.ContentType)
	sheet, err := base64.StdEncoding.DecodeString(at.Content.String())
	require.NoError(t, err)
	assert.Equal(t, "date,course,status\n"+
		"2024-01-01,CS1002,absent\n"+
		"2024-01-02,CS1002,present\n"+
		"2024-01-03,CS1002,absent\n", string(sheet))

	t.Run("inactive students are skipped", func(t *testing.T) {
		inactive := false
		_, err := f.users.Update(ctx, "STU002", user.UpdateUser{Name: "Maria Garcia", Email: "maria@portal.test", IsActive: &inactive})
		require.NoError(t, err)

		msgs, err := f.svc.LowAttendanceEmails(ctx)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}
