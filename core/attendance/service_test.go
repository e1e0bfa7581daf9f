package attendance

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/testutil"
)

func setClock(t *testing.T, start time.Time) {
	var mu sync.Mutex
	now := start
	NowFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
	t.Cleanup(func() { NowFunc = time.Now })
}

func TestService_MarkAttendance(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.OpenStore(t), testutil.Logger(), 0)
	assert.Equal(t, LowThreshold, svc.LowThreshold())

	sum, err := svc.Summary(ctx, "STU001")
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)

	mark := Mark{StudentID: "STU001", Date: "2024-01-01", Course: "CourseX", Status: Present}
	require.NoError(t, svc.MarkAttendance(ctx, []Mark{mark}))
	sum, err = svc.Summary(ctx, "STU001")
	require.NoError(t, err)
	assert.Equal(t, Summary{Present: 1, Total: 1, Percentage: 100}, sum)

	// identical mark: idempotent
	require.NoError(t, svc.MarkAttendance(ctx, []Mark{mark}))
	sum, err = svc.Summary(ctx, "STU001")
	require.NoError(t, err)
	assert.Equal(t, Summary{Present: 1, Total: 1, Percentage: 100}, sum)

	mark.Status = Absent
	require.NoError(t, svc.MarkAttendance(ctx, []Mark{mark}))
	sum, err = svc.Summary(ctx, "STU001")
	require.NoError(t, err)
	assert.Equal(t, Summary{Absent: 1, Total: 1, Percentage: 0, IsLow: true}, sum)

	recs, err := svc.Records(ctx, "STU001")
	require.NoError(t, err)
	assert.Equal(t, []Record{{Date: "2024-01-01", Course: "CourseX", Status: Absent}}, recs)

	recs, err = svc.Records(ctx, "STU002")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestService_MarkAttendance_invalidBatch(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.OpenStore(t), testutil.Logger(), LowThreshold)

	err := svc.MarkAttendance(ctx, []Mark{
		{StudentID: "STU001", Date: "2024-01-01", Course: "CS1002", Status: Present},
		{StudentID: "STU002", Date: "2024-01-01", Course: "", Status: Present},
	})
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))

	l, err := svc.Ledger(ctx)
	require.NoError(t, err)
	assert.Empty(t, l)
}

func TestService_MarkAttendance_nullLedger(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{name: "null collection", stored: "null"},
		{name: "null entry", stored: `{"STU001": null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := testutil.OpenStore(t)
			require.NoError(t, store.Save(ctx, core.Attendance, []byte(tt.stored)))
			svc := NewService(store, testutil.Logger(), LowThreshold)

			l, err := svc.Ledger(ctx)
			require.NoError(t, err)
			require.NotNil(t, l)

			require.NoError(t, svc.MarkAttendance(ctx, []Mark{{StudentID: "STU001", Date: "2024-01-01", Course: "CS1002", Status: Present}}))
			sum, err := svc.Summary(ctx, "STU001")
			require.NoError(t, err)
			assert.Equal(t, Summary{Present: 1, Total: 1, Percentage: 100}, sum)
		})
	}
}

func TestService_customThreshold(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.OpenStore(t), testutil.Logger(), 80)

	require.NoError(t, svc.MarkAttendance(ctx, []Mark{
		{StudentID: "STU001", Date: "2024-01-01", Course: "CS1002", Status: Present},
		{StudentID: "STU001", Date: "2024-01-02", Course: "CS1002", Status: Present},
		{StudentID: "STU001", Date: "2024-01-03", Course: "CS1002", Status: Present},
		{StudentID: "STU001", Date: "2024-01-04", Course: "CS1002", Status: Absent},
	}))

	sum, err := svc.Summary(ctx, "STU001")
	require.NoError(t, err)
	assert.Equal(t, 75.0, sum.Percentage)
	assert.True(t, sum.IsLow)

	l, err := svc.Ledger(ctx)
	require.NoError(t, err)
	roster := LowAttendanceRoster([]string{"STU001", "STU002"}, l, svc.LowThreshold())
	require.Len(t, roster, 1)
	assert.Equal(t, "STU001", roster[0].StudentID)
	assert.Equal(t, 0.0, TodaysPresencePercentage([]string{"STU001", "STU002"}, l, "2024-01-04"))
}

func TestService_SaveSession(t *testing.T) {
	ctx := context.Background()
	setClock(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	svc := NewService(testutil.OpenStore(t), testutil.Logger(), LowThreshold)

	entry, err := svc.SaveSession(ctx, SessionMarks{
		Date:   "2024-01-01",
		Course: "CS1002",
		Statuses: map[string]Status{
			"STU001": Present,
			"STU002": Present,
			"STU003": Absent,
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "2024-01-01", entry.Date)
	assert.Equal(t, "CS1002", entry.Course)
	assert.Equal(t, 2, entry.Present)
	assert.Equal(t, 1, entry.Absent)
	assert.Equal(t, 3, entry.Total)
	assert.Equal(t, time.Date(2024, 1, 10, 8, 1, 0, 0, time.UTC), entry.RecordedAt)

	// re-saving the session updates in place; a second snapshot is appended
	entry2, err := svc.SaveSession(ctx, SessionMarks{
		Date:     "2024-01-01",
		Course:   "CS1002",
		Statuses: map[string]Status{"STU001": Absent, "STU002": Present, "STU003": Absent},
	})
	require.NoError(t, err)

	l, err := svc.Ledger(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, l["STU001"].Total)
	assert.Equal(t, 1, l["STU001"].Absent)

	h, err := svc.History(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, History{entry2, entry}, h)

	h, err = svc.History(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, History{entry2}, h)
}

func TestService_SaveSession_invalid(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.OpenStore(t), testutil.Logger(), LowThreshold)

	_, err := svc.SaveSession(ctx, SessionMarks{
		Date:     "2024-01-01",
		Course:   "CS1002",
		Statuses: map[string]Status{"STU001": "late"},
	})
	assert.True(t, core.IsValidationError(err))

	h, err := svc.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestSessionMarks_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	sm := SessionMarks{Date: " 2024-01-01 ", Course: " CS1002 ", Statuses: map[string]Status{"STU001": Present}}
	require.NoError(t, sm.Validate(validate))
	assert.Equal(t, "2024-01-01", sm.Date)
	assert.Equal(t, "CS1002", sm.Course)

	assert.Error(t, (&SessionMarks{Date: "01/01/2024", Course: "CS1002", Statuses: map[string]Status{"STU001": Present}}).Validate(validate))
	assert.Error(t, (&SessionMarks{Date: "2024-01-01", Course: "CS1002"}).Validate(validate))
	assert.Error(t, (&SessionMarks{Date: "2024-01-01", Course: " ", Statuses: map[string]Status{"STU001": Present}}).Validate(validate))
}

func TestService_persistenceFailure(t *testing.T) {
	ctx := context.Background()

	svc := NewService(testutil.NewFailingStore(false), testutil.Logger(), LowThreshold)
	err := svc.MarkAttendance(ctx, []Mark{{StudentID: "STU001", Date: "2024-01-01", Course: "CS1002", Status: Present}})
	assert.True(t, core.IsPersistenceError(err), "got %v", err)

	_, err = svc.SaveSession(ctx, SessionMarks{Date: "2024-01-01", Course: "CS1002", Statuses: map[string]Status{"STU001": Present}})
	assert.True(t, core.IsPersistenceError(err), "got %v", err)

	svc = NewService(testutil.NewFailingStore(true), testutil.Logger(), LowThreshold)
	_, err = svc.Summary(ctx, "STU001")
	assert.True(t, core.IsPersistenceError(err), "got %v", err)
	_, err = svc.History(ctx, 5)
	assert.True(t, core.IsPersistenceError(err), "got %v", err)
}

func TestService_concurrentMarks(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.OpenStore(t), testutil.Logger(), LowThreshold)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for _, st := range []Status{Present, Absent} {
			wg.Add(1)
			go func(day int, st Status) {
				defer wg.Done()
				err := svc.MarkAttendance(ctx, []Mark{
					{StudentID: "STU001", Date: fmt.Sprintf("2024-01-%02d", day+1), Course: "CS1002", Status: st},
				})
				assert.NoError(t, err)
			}(i, st)
		}
	}
	wg.Wait()

	l, err := svc.Ledger(ctx)
	require.NoError(t, err)
	sa := l["STU001"]
	assert.Equal(t, 10, sa.Total)
	assert.Equal(t, sa.Total, sa.Present+sa.Absent)
	assert.Len(t, sa.Records, 10)
}
