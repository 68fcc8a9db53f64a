package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/handler"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	"github.com/noah-isme/faculty-timetable-api/internal/repository"
	"github.com/noah-isme/faculty-timetable-api/internal/repository/memory"
	"github.com/noah-isme/faculty-timetable-api/pkg/config"
	"github.com/noah-isme/faculty-timetable-api/pkg/database"
)

type facultyStore interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error)
	ListAll(ctx context.Context) ([]models.Faculty, error)
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, faculty *models.Faculty) error
	Update(ctx context.Context, faculty *models.Faculty) error
}

type batchStore interface {
	List(ctx context.Context, department string) ([]models.Batch, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
}

type courseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	CreateMany(ctx context.Context, courses []*models.Course) error
}

type assignmentStore interface {
	ListByFaculty(ctx context.Context, facultyID string) ([]models.CourseAssignmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.CourseAssignment, error)
	Create(ctx context.Context, assignment *models.CourseAssignment) error
	Delete(ctx context.Context, id string) error
	FacultyIDsHandlingBatch(ctx context.Context, batchID string) ([]string, error)
}

type timetableStore interface {
	ListByFaculty(ctx context.Context, facultyID string, scope models.TimetableScope) ([]models.TimetableEntryDetail, error)
	ListByBatch(ctx context.Context, batchID string, scope models.TimetableScope) ([]models.TimetableEntryDetail, error)
	FindByID(ctx context.Context, id string) (*models.TimetableEntry, error)
	FacultySlotTaken(ctx context.Context, scope models.TimetableScope, facultyID string, day calendar.Weekday, period int, excludeID string) (bool, error)
	BatchSlotTaken(ctx context.Context, scope models.TimetableScope, batchID string, day calendar.Weekday, period int, excludeID string) (bool, error)
	ReplaceForFaculty(ctx context.Context, facultyID string, scope models.TimetableScope, entries []models.TimetableEntry) error
	Create(ctx context.Context, entry *models.TimetableEntry) error
	Update(ctx context.Context, entry *models.TimetableEntry) error
	Delete(ctx context.Context, id string) error
}

type substituteStore interface {
	Create(ctx context.Context, req *models.SubstituteRequest) error
	FindByID(ctx context.Context, id string) (*models.SubstituteRequestDetail, error)
	FindByTokenDigest(ctx context.Context, digest string) (*models.SubstituteRequestDetail, error)
	ListByRequester(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error)
	ListBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error)
	ListPendingBySubstitute(ctx context.Context, facultyID string) ([]models.SubstituteRequestDetail, error)
	Resolve(ctx context.Context, params models.ResolveSubstituteParams) error
	HasApprovedSubstitution(ctx context.Context, facultyID string, date time.Time, day calendar.Weekday, period int) (bool, error)
}

// stores bundles the repositories of the selected driver.
type stores struct {
	faculty     facultyStore
	batches     batchStore
	courses     courseStore
	assignments assignmentStore
	timetable   timetableStore
	substitutes substituteStore
	checks      map[string]handler.Pinger
	close       func() error
}

func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.New()
		return &stores{
			faculty:     store.Faculty(),
			batches:     store.Batches(),
			courses:     store.Courses(),
			assignments: store.Assignments(),
			timetable:   store.Timetable(),
			substitutes: store.SubstituteRequests(),
			checks:      map[string]handler.Pinger{},
			close:       func() error { return nil },
		}, nil
	case config.StoreDriverPostgres, "":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		return postgresStores(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func postgresStores(db *sqlx.DB) *stores {
	return &stores{
		faculty:     repository.NewFacultyRepository(db),
		batches:     repository.NewBatchRepository(db),
		courses:     repository.NewCourseRepository(db),
		assignments: repository.NewCourseAssignmentRepository(db),
		timetable:   repository.NewTimetableRepository(db),
		substitutes: repository.NewSubstituteRequestRepository(db),
		checks:      map[string]handler.Pinger{"database": db.PingContext},
		close:       db.Close,
	}
}
