package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository/memory"
)

var testScope = models.TimetableScope{AcademicYear: "2024-2025", Semester: 5}

type catalogFixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	return &catalogFixture{t: t, ctx: context.Background(), store: memory.New()}
}

func (f *catalogFixture) faculty(name, email string) models.Faculty {
	f.t.Helper()
	fac := models.Faculty{Name: name, Email: email, Department: "CSE", Designation: models.DesignationAssistantProfessor}
	require.NoError(f.t, f.store.Faculty().Create(f.ctx, &fac))
	return fac
}

func (f *catalogFixture) batch(name string) models.Batch {
	f.t.Helper()
	b := models.Batch{BatchName: name, Department: "CSE"}
	require.NoError(f.t, f.store.Batches().Create(f.ctx, &b))
	return b
}

func (f *catalogFixture) course(code string, courseType models.CourseType, periods int) models.Course {
	f.t.Helper()
	c := models.Course{Title: code + " title", Code: code, ContactPeriods: periods, SemesterNo: 5, Type: courseType, Department: "CSE"}
	require.NoError(f.t, f.store.Courses().Create(f.ctx, &c))
	return c
}

func (f *catalogFixture) assign(facultyID, courseID, batchID string) models.CourseAssignment {
	f.t.Helper()
	a := models.CourseAssignment{FacultyID: facultyID, CourseID: courseID, BatchID: batchID}
	require.NoError(f.t, f.store.Assignments().Create(f.ctx, &a))
	return a
}

func (f *catalogFixture) entry(facultyID, batchID, courseID string, day calendar.Weekday, period int) models.TimetableEntry {
	f.t.Helper()
	e := models.TimetableEntry{
		FacultyID: facultyID, BatchID: batchID, CourseID: courseID,
		AcademicYear: testScope.AcademicYear, Semester: testScope.Semester,
		Day: day, Period: period,
	}
	require.NoError(f.t, f.store.Timetable().Create(f.ctx, &e))
	return e
}

func (f *catalogFixture) generator() *TimetableGeneratorService {
	return NewTimetableGeneratorService(f.store.Faculty(), f.store.Assignments(), f.store.Timetable(), nil, NewMetricsService(), nil, nil)
}

// nextWeekday returns the first date strictly after from that falls on day.
func nextWeekday(from time.Time, day time.Weekday) time.Time {
	d := from.AddDate(0, 0, 1)
	for d.Weekday() != day {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
