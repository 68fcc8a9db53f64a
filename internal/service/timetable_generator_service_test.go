package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

func generateRequest(facultyID string) dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{FacultyID: facultyID, AcademicYear: testScope.AcademicYear, Semester: testScope.Semester}
}

func TestGenerateSpreadsAcademicCourse(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	cse := f.batch("CSE-2022")
	dbms := f.course("CS301", models.CourseTypeAcademic, 3)
	f.assign(rao.ID, dbms.ID, cse.ID)

	resp, err := f.generator().Generate(f.ctx, generateRequest(rao.ID))
	require.NoError(t, err)
	require.Len(t, resp.Entries, 3)
	assert.Empty(t, resp.Warnings)
	assert.Nil(t, resp.Coverage)

	days := make(map[calendar.Weekday][]int)
	for _, e := range resp.Entries {
		assert.Equal(t, dbms.ID, e.CourseID)
		assert.Equal(t, cse.ID, e.BatchID)
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "CS301", e.CourseCode)
		days[e.Day] = append(days[e.Day], e.Period)
	}
	assert.LessOrEqual(t, len(days), 3)
	for day, periods := range days {
		assert.LessOrEqual(t, len(periods), 2, day)
		if len(periods) == 2 {
			assert.NotEqual(t, 1, abs(periods[0]-periods[1]), "adjacent periods on %s", day)
		}
	}

	covered := map[int]bool{}
	for _, e := range resp.Entries {
		covered[e.Period] = true
	}
	assert.True(t, covered[1] && covered[2] && covered[8])

	stored, err := f.store.Timetable().ListByFaculty(f.ctx, rao.ID, testScope)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestGenerateAvoidsExistingBatchSlots(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	iyer := f.faculty("Dr. Iyer", "iyer@example.edu")
	cse := f.batch("CSE-2022")
	dbms := f.course("CS301", models.CourseTypeAcademic, 4)
	osCourse := f.course("CS302", models.CourseTypeAcademic, 2)
	f.assign(rao.ID, dbms.ID, cse.ID)
	f.assign(iyer.ID, osCourse.ID, cse.ID)
	f.entry(iyer.ID, cse.ID, osCourse.ID, calendar.Monday, 1)
	f.entry(iyer.ID, cse.ID, osCourse.ID, calendar.Tuesday, 1)

	resp, err := f.generator().Generate(f.ctx, generateRequest(rao.ID))
	require.NoError(t, err)
	require.Len(t, resp.Entries, 4)
	for _, e := range resp.Entries {
		blocked := (e.Day == calendar.Monday || e.Day == calendar.Tuesday) && e.Period == 1
		assert.False(t, blocked, "placed over an existing batch entry on %s", e.Day)
	}

	week, err := f.store.Timetable().ListByBatch(f.ctx, cse.ID, testScope)
	require.NoError(t, err)
	assert.Empty(t, ValidateEntries(week))
}

func TestGeneratePlacesLabAsContiguousBlock(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	iyer := f.faculty("Dr. Iyer", "iyer@example.edu")
	cse := f.batch("CSE-2022")
	lab := f.course("CS391", models.CourseTypeLab, 3)
	theory := f.course("CS302", models.CourseTypeAcademic, 1)
	f.assign(rao.ID, lab.ID, cse.ID)
	f.assign(iyer.ID, theory.ID, cse.ID)
	f.entry(iyer.ID, cse.ID, theory.ID, calendar.Monday, 3)

	resp, err := f.generator().Generate(f.ctx, generateRequest(rao.ID))
	require.NoError(t, err)
	require.Len(t, resp.Entries, 3)
	for i, e := range resp.Entries {
		assert.Equal(t, calendar.Monday, e.Day)
		assert.Equal(t, 4+i, e.Period)
	}
	assert.Empty(t, ValidateEntries(resp.Entries))

	require.NotNil(t, resp.Coverage)
	assert.Equal(t, []int{1, 2, 8}, resp.Coverage.MissingPeriods)
	assert.Zero(t, resp.RepairMoves)
}

func TestGenerateLimitsLabBlocksPerBatchDay(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	cse := f.batch("CSE-2022")
	for _, code := range []string{"CS391", "CS392", "CS393"} {
		c := f.course(code, models.CourseTypeLab, 2)
		f.assign(rao.ID, c.ID, cse.ID)
	}

	resp, err := f.generator().Generate(f.ctx, generateRequest(rao.ID))
	require.NoError(t, err)
	require.Len(t, resp.Entries, 6)

	byCourse := make(map[string]calendar.Weekday)
	for _, e := range resp.Entries {
		assert.NotEqual(t, 1, e.Period)
		byCourse[e.CourseCode] = e.Day
	}
	assert.Equal(t, calendar.Monday, byCourse["CS391"])
	assert.Equal(t, calendar.Monday, byCourse["CS392"])
	assert.Equal(t, calendar.Tuesday, byCourse["CS393"])
}

func TestGenerateReportsUnschedulableAndContinues(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	cse := f.batch("CSE-2022")
	longLab := f.course("CS399", models.CourseTypeLab, 8)
	seminar := f.course("HS101", models.CourseTypeNonAcademic, 2)
	f.assign(rao.ID, longLab.ID, cse.ID)
	f.assign(rao.ID, seminar.ID, cse.ID)

	resp, err := f.generator().Generate(f.ctx, generateRequest(rao.ID))
	require.NoError(t, err)
	require.Len(t, resp.Warnings, 1)
	w := resp.Warnings[0]
	assert.Equal(t, "CS399", w.CourseCode)
	assert.Equal(t, appErrors.ErrUnschedulable.Code, w.Code)
	assert.Equal(t, 8, w.Required)
	assert.Zero(t, w.Placed)

	require.Len(t, resp.Entries, 2)
	assert.NotEqual(t, resp.Entries[0].Day, resp.Entries[1].Day)
	for _, e := range resp.Entries {
		assert.NotContains(t, []int{1, 8}, e.Period)
	}
	assert.Nil(t, resp.Coverage, "coverage is not checked below three entries")
}

func TestGenerateReplacesPreviousRun(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	cse := f.batch("CSE-2022")
	dbms := f.course("CS301", models.CourseTypeAcademic, 3)
	f.assign(rao.ID, dbms.ID, cse.ID)

	svc := f.generator()
	first, err := svc.Generate(f.ctx, generateRequest(rao.ID))
	require.NoError(t, err)
	second, err := svc.Generate(f.ctx, generateRequest(rao.ID))
	require.NoError(t, err)
	assert.Len(t, second.Entries, len(first.Entries))

	stored, err := f.store.Timetable().ListByFaculty(f.ctx, rao.ID, testScope)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestGenerateValidatesInput(t *testing.T) {
	f := newCatalogFixture(t)
	svc := f.generator()

	_, err := svc.Generate(f.ctx, dto.GenerateTimetableRequest{FacultyID: "f-1", AcademicYear: "2024", Semester: 5})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Generate(f.ctx, generateRequest("missing"))
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

type failingReplace struct {
	timetableWriter
	err error
}

func (w failingReplace) ReplaceForFaculty(context.Context, string, models.TimetableScope, []models.TimetableEntry) error {
	return w.err
}

func TestGenerateMapsPersistenceFailures(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	cse := f.batch("CSE-2022")
	dbms := f.course("CS301", models.CourseTypeAcademic, 2)
	f.assign(rao.ID, dbms.ID, cse.ID)

	cases := []struct {
		err  error
		want *appErrors.Error
	}{
		{err: repository.ErrDuplicate, want: appErrors.ErrConflict},
		{err: repository.ErrEntryReferenced, want: appErrors.ErrConflict},
		{err: errors.New("connection reset"), want: appErrors.ErrStoreUnavailable},
	}
	for _, tc := range cases {
		writer := failingReplace{timetableWriter: f.store.Timetable(), err: tc.err}
		svc := NewTimetableGeneratorService(f.store.Faculty(), f.store.Assignments(), writer, nil, nil, nil, nil)
		_, err := svc.Generate(f.ctx, generateRequest(rao.ID))
		assert.True(t, appErrors.Is(err, tc.want), "%v", err)
	}

	stored, err := f.store.Timetable().ListByFaculty(f.ctx, rao.ID, testScope)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestOrderAssignments(t *testing.T) {
	list := []models.CourseAssignmentDetail{
		{CourseAssignment: models.CourseAssignment{ID: "3"}, CourseType: models.CourseTypeNonAcademic, CourseCode: "HS101"},
		{CourseAssignment: models.CourseAssignment{ID: "2"}, CourseType: models.CourseTypeAcademic, CourseCode: "CS301", BatchName: "B"},
		{CourseAssignment: models.CourseAssignment{ID: "1"}, CourseType: models.CourseTypeAcademic, CourseCode: "CS301", BatchName: "A"},
		{CourseAssignment: models.CourseAssignment{ID: "4"}, CourseType: models.CourseTypeLab, CourseCode: "CS391"},
	}
	orderAssignments(list)
	var ids []string
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"4", "1", "2", "3"}, ids)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
