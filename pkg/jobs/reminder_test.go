package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/learnhub-app/learnhub-server-go/internal/features/enrollment"
	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type recordingMailer struct {
	sent []sentMail
}

func (r *recordingMailer) SendNotification(to, subject, body string) error {
	r.sent = append(r.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &enrollment.Enrollment{}))
	return db
}

func seedMentor(t *testing.T, db *gorm.DB, email string, active bool) *user.User {
	t.Helper()
	mentor := &user.User{
		FullName: "Mentor",
		Email:    email,
		Password: "irrelevant",
		Role:     types.UserRoleMentor,
		Active:   active,
	}
	require.NoError(t, db.Create(mentor).Error)
	return mentor
}

func seedPending(t *testing.T, db *gorm.DB, mentorID uuid.UUID, age time.Duration) {
	t.Helper()
	enr, err := enrollment.Create(db, enrollment.CreateInput{
		StudentID:    uuid.New(),
		CourseID:     uuid.New(),
		CourseName:   "Course",
		PriceDisplay: "$10",
		MentorID:     mentorID,
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&enrollment.Enrollment{}).
		Where("id = ?", enr.ID).
		Update("enrolled_at", time.Now().Add(-age)).Error)
}

func TestPendingReminder_DigestPerMentor(t *testing.T) {
	db := newTestDB(t)
	mailer := &recordingMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stale := seedMentor(t, db, "stale@example.com", true)
	seedPending(t, db, stale.ID, 48*time.Hour)
	seedPending(t, db, stale.ID, 72*time.Hour)

	fresh := seedMentor(t, db, "fresh@example.com", true)
	seedPending(t, db, fresh.ID, time.Hour)

	inactive := seedMentor(t, db, "inactive@example.com", false)
	seedPending(t, db, inactive.ID, 48*time.Hour)

	job := NewPendingEnrollmentReminderJob(db, mailer, logger, 24*time.Hour)
	require.NoError(t, job.Execute(context.Background()))

	require.Len(t, mailer.sent, 1, "one digest per mentor with stale pendings")
	assert.Equal(t, "stale@example.com", mailer.sent[0].to)
	assert.Equal(t, "Enrollments Awaiting Your Review", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "2 enrollment request(s)")
}

func TestPendingReminder_NoStaleNoMail(t *testing.T) {
	db := newTestDB(t)
	mailer := &recordingMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mentor := seedMentor(t, db, "mentor@example.com", true)
	seedPending(t, db, mentor.ID, time.Hour)

	job := NewPendingEnrollmentReminderJob(db, mailer, logger, 24*time.Hour)
	require.NoError(t, job.Execute(context.Background()))

	assert.Empty(t, mailer.sent)
}

func TestScheduler_RunOnce(t *testing.T) {
	db := newTestDB(t)
	mailer := &recordingMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scheduler := NewScheduler(logger)
	scheduler.AddJob(NewPendingEnrollmentReminderJob(db, mailer, logger, 24*time.Hour), time.Hour)

	require.NoError(t, scheduler.RunOnce("pending_enrollment_reminder"))
	assert.Error(t, scheduler.RunOnce("no_such_job"))
}
