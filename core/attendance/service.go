package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
)

var NowFunc = time.Now // mockable

// Service manages the Attendance and AttendanceHistory collections of a core.RecordStore.
type Service struct {
	store        core.RecordStore
	logger       core.Logger
	lowThreshold float64
}

// NewService returns a Service flagging students under lowThreshold percent. A non-positive value means LowThreshold.
func NewService(store core.RecordStore, logger core.Logger, lowThreshold float64) *Service {
	if lowThreshold <= 0 {
		lowThreshold = LowThreshold
	}
	return &Service{store: store, logger: logger, lowThreshold: lowThreshold}
}

func (svc *Service) LowThreshold() float64 { return svc.lowThreshold }

// Ledger returns the whole attendance ledger; empty when nothing was ever recorded.
func (svc *Service) Ledger(ctx context.Context) (Ledger, error) {
	l := make(Ledger)
	if _, err := core.LoadJSON(ctx, svc.store, core.Attendance, &l); err != nil {
		return nil, err
	}
	if l == nil { // stored as null
		l = make(Ledger)
	}
	return l, nil
}

// MarkAttendance applies marks in a single write of the ledger: either all of them are recorded or none is.
func (svc *Service) MarkAttendance(ctx context.Context, marks []Mark) error {
	err := core.UpdateJSON(ctx, svc.store, core.Attendance,
		func() interface{} {
			l := make(Ledger)
			return &l
		},
		func(v interface{}) error {
			return v.(*Ledger).Mark(marks...)
		},
	)
	if err != nil {
		if !core.IsValidationError(err) {
			svc.logger.Error(fmt.Sprintf("marking attendance (%d marks): %v", len(marks), err), err)
		}
		return err
	}
	svc.logger.Info(fmt.Sprintf("attendance marked: %d entries", len(marks)))
	return nil
}

// SessionMarks is the attendance of a class for one session, keyed by student ID.
type SessionMarks struct {
	Date     string            `json:"date" validate:"required,datetime=2006-01-02"`
	Course   string            `json:"course" validate:"required,notblank"`
	Statuses map[string]Status `json:"statuses" validate:"required,min=1"`
}

func (sm *SessionMarks) Validate(validate *validator.Validate) error {
	sm.Date = core.CleanString(sm.Date)
	sm.Course = core.CleanString(sm.Course)
	return validate.Struct(sm)
}

// Marks flattens sm, in no particular order.
func (sm SessionMarks) Marks() []Mark {
	marks := make([]Mark, 0, len(sm.Statuses))
	for id, st := range sm.Statuses {
		marks = append(marks, Mark{StudentID: id, Date: sm.Date, Course: sm.Course, Status: st})
	}
	return marks
}

// SaveSession records a whole class session, then appends its snapshot to the history.
// The history entry is only written once the marks are stored.
func (svc *Service) SaveSession(ctx context.Context, sm SessionMarks) (HistoryEntry, error) {
	if err := svc.MarkAttendance(ctx, sm.Marks()); err != nil {
		return HistoryEntry{}, err
	}

	entry := HistoryEntry{
		ID:         uuid.New().String(),
		Date:       sm.Date,
		Course:     sm.Course,
		Total:      len(sm.Statuses),
		RecordedAt: NowFunc().UTC(),
	}
	for _, st := range sm.Statuses {
		if st == Present {
			entry.Present++
		} else {
			entry.Absent++
		}
	}

	err := core.UpdateJSON(ctx, svc.store, core.AttendanceHistory,
		func() interface{} { return new(History) },
		func(v interface{}) error {
			h := v.(*History)
			*h = append(*h, entry)
			return nil
		},
	)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("saving attendance history %s/%s: %v", sm.Date, sm.Course, err), err)
		return HistoryEntry{}, errors.Wrap(err, "attendance saved but history was not")
	}
	svc.logger.Info(fmt.Sprintf("attendance session saved: %s/%s - %d/%d present", entry.Date, entry.Course, entry.Present, entry.Total))
	return entry, nil
}

// Summary returns the attendance summary of a student, flagged against the service threshold.
func (svc *Service) Summary(ctx context.Context, studentID string) (Summary, error) {
	l, err := svc.Ledger(ctx)
	if err != nil {
		return Summary{}, err
	}
	return l.SummaryBelow(studentID, svc.lowThreshold), nil
}

// Records returns the attendance records of a student, as recorded.
func (svc *Service) Records(ctx context.Context, studentID string) ([]Record, error) {
	l, err := svc.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	if sa, ok := l.Get(studentID); ok {
		return sa.Records, nil
	}
	return []Record{}, nil
}

// History returns the latest n marking sessions; n <= 0 returns them all.
func (svc *Service) History(ctx context.Context, n int) (History, error) {
	var h History
	if _, err := core.LoadJSON(ctx, svc.store, core.AttendanceHistory, &h); err != nil {
		return nil, err
	}
	return h.Recent(n), nil
}
