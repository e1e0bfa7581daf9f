package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/user"
)

const (
	lowAttendanceTemplate = "low_attendance"
	recordsAttachment     = "attendance.csv"
)

type lowAttendanceData struct {
	Name       string
	Percentage float64
	Present    int
	Total      int
	Threshold  float64
}

// LowAttendanceEmails builds one warning per active student below the low-attendance threshold.
func (svc *Service) LowAttendanceEmails(ctx context.Context) ([]*core.EmailMessage, error) {
	students, err := svc.users.Query(ctx, user.QueryFilter{Role: user.RoleStudent})
	if err != nil {
		return nil, err
	}
	active := make(map[string]user.User, len(students))
	ids := make([]string, 0, len(students))
	for _, s := range students {
		if s.IsActive {
			active[s.ID] = s
			ids = append(ids, s.ID)
		}
	}

	ledger, err := svc.attendance.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	roster := attendance.LowAttendanceRoster(ids, ledger, svc.attendance.LowThreshold())
	msgs := make([]*core.EmailMessage, 0, len(roster))
	for _, entry := range roster {
		stu := active[entry.StudentID]
		if stu.Email == "" {
			continue
		}
		msg := &core.EmailMessage{
			To:           []mail.Address{{Name: stu.Name, Address: stu.Email}},
			Subject:      "Low attendance warning",
			TemplateName: lowAttendanceTemplate,
			TemplateData: lowAttendanceData{
				Name:       stu.Name,
				Percentage: entry.Summary.Percentage,
				Present:    entry.Summary.Present,
				Total:      entry.Summary.Total,
				Threshold:  svc.attendance.LowThreshold(),
			},
		}
		sa, _ := ledger.Get(entry.StudentID)
		if err := attachRecords(msg, sa.Records); err != nil {
			return nil, errors.Wrapf(err, "attaching records of %s", entry.StudentID)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// attachRecords attaches the student's sessions as a CSV sheet.
func attachRecords(msg *core.EmailMessage, records []attendance.Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "course", "status"}); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write([]string{rec.Date, rec.Course, string(rec.Status)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return msg.Attach(&buf, recordsAttachment, "text/csv")
}
