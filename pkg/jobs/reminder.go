package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// EmailClient interface for sending emails
type EmailClient interface {
	SendNotification(to, subject, body string) error
}

// PendingEnrollmentReminderJob nudges mentors about payment proofs that
// have been sitting unreviewed longer than the threshold.
type PendingEnrollmentReminderJob struct {
	db          *gorm.DB
	emailClient EmailClient
	logger      *slog.Logger
	threshold   time.Duration
}

// NewPendingEnrollmentReminderJob creates a new pending enrollment reminder job.
func NewPendingEnrollmentReminderJob(db *gorm.DB, emailClient EmailClient, logger *slog.Logger, threshold time.Duration) *PendingEnrollmentReminderJob {
	if threshold <= 0 {
		threshold = 24 * time.Hour
	}
	return &PendingEnrollmentReminderJob{
		db:          db,
		emailClient: emailClient,
		logger:      logger,
		threshold:   threshold,
	}
}

// Name returns the job name.
func (j *PendingEnrollmentReminderJob) Name() string {
	return "pending_enrollment_reminder"
}

// Execute finds stale pending enrollments and emails each mentor a digest.
func (j *PendingEnrollmentReminderJob) Execute(ctx context.Context) error {
	j.logger.Debug("checking stale pending enrollments")

	cutoff := time.Now().Add(-j.threshold)

	rows, err := j.db.WithContext(ctx).
		Raw(`SELECT e.mentor_id, u.email, u.full_name, COUNT(*) AS pending_count, MIN(e.enrolled_at) AS oldest
			 FROM enrollments e
			 JOIN users u ON u.id = e.mentor_id
			 WHERE e.status = 'pending'
			 AND e.enrolled_at <= ?
			 AND u.is_active = true
			 GROUP BY e.mentor_id, u.email, u.full_name
			 LIMIT 100`, cutoff).
		Rows()

	if err != nil {
		return fmt.Errorf("failed to query stale pending enrollments: %w", err)
	}
	defer rows.Close()

	notificationCount := 0
	errorCount := 0

	for rows.Next() {
		var mentorID, mentorEmail, mentorName, oldest string
		var pendingCount int

		// MIN() strips the column's declared type, so oldest arrives as a
		// string on every driver.
		if err := rows.Scan(&mentorID, &mentorEmail, &mentorName, &pendingCount, &oldest); err != nil {
			j.logger.Error("failed to scan reminder row", "error", err)
			continue
		}
		if len(oldest) > 10 {
			oldest = oldest[:10]
		}

		subject := "Enrollments Awaiting Your Review"
		body := fmt.Sprintf(`
Hello %s,

You have %d enrollment request(s) waiting for review, the oldest since %s.

Students cannot access their course until you approve or reject their payment proof.

Best regards,
LearnHub Team
		`, mentorName, pendingCount, oldest)

		if j.emailClient != nil {
			if err := j.emailClient.SendNotification(mentorEmail, subject, body); err != nil {
				j.logger.Error("failed to send pending enrollment reminder",
					"mentorId", mentorID,
					"email", mentorEmail,
					"error", err)
				errorCount++
			} else {
				j.logger.Debug("sent pending enrollment reminder",
					"mentorId", mentorID,
					"pendingCount", pendingCount)
				notificationCount++
			}
		}
	}

	if notificationCount > 0 || errorCount > 0 {
		j.logger.Info("pending enrollment reminder completed",
			"reminders", notificationCount,
			"errors", errorCount)
	}

	return nil
}
