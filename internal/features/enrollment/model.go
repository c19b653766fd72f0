package enrollment

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/course"
	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

// EnrollmentID builds the composite primary key for a (student, course) pair.
// One enrollment per pair, ever.
func EnrollmentID(studentID, courseID uuid.UUID) string {
	return fmt.Sprintf("%s_%s", studentID, courseID)
}

// Enrollment records a student's paid access request to a course and the
// progress made after approval. The primary key is the composite
// <studentID>_<courseID> string rather than a generated UUID.
type Enrollment struct {
	ID string `gorm:"type:varchar(80);primaryKey" json:"id"`

	StudentID   uuid.UUID   `gorm:"type:uuid;not null;index;column:student_id" json:"studentId"`
	StudentName string      `gorm:"type:varchar(200);column:student_name" json:"studentName"`
	CourseID    uuid.UUID   `gorm:"type:uuid;not null;index;column:course_id" json:"courseId"`
	CourseName  string      `gorm:"type:varchar(200);column:course_name" json:"courseName"`
	CoursePrice types.Money `gorm:"type:numeric(12,2);not null;default:0;column:course_price" json:"coursePrice"`
	MentorID    uuid.UUID   `gorm:"type:uuid;not null;index:idx_mentor_status;column:mentor_id" json:"mentorId"`

	PaymentProofKey string `gorm:"type:varchar(255);column:payment_proof_key" json:"paymentProofKey"`

	Status          types.EnrollmentStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_mentor_status" json:"status"`
	RejectionReason *string                `gorm:"type:text;column:rejection_reason" json:"rejectionReason,omitempty"`
	ApprovedAt      *time.Time             `gorm:"column:approved_at" json:"approvedAt,omitempty"`
	RejectedAt      *time.Time             `gorm:"column:rejected_at" json:"rejectedAt,omitempty"`

	Progress  int  `gorm:"type:int;not null;default:0" json:"progress"`
	Completed bool `gorm:"type:boolean;not null;default:false" json:"completed"`

	CompletedVideos       types.StringList `gorm:"type:jsonb;column:completed_videos" json:"completedVideos"`
	AssignmentSubmissions types.StringMap  `gorm:"type:jsonb;column:assignment_submissions" json:"assignmentSubmissions"`
	QuizScores            types.IntMap     `gorm:"type:jsonb;column:quiz_scores" json:"quizScores"`

	EnrolledAt time.Time `gorm:"column:enrolled_at;autoCreateTime" json:"enrolledAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Enrollment) TableName() string { return "enrollments" }

// CreateInput carries data for opening a new enrollment.
type CreateInput struct {
	StudentID       uuid.UUID
	StudentName     string
	CourseID        uuid.UUID
	CourseName      string
	PriceDisplay    string
	MentorID        uuid.UUID
	PaymentProofKey string
}

// Create inserts a new pending enrollment. A second request for the same
// (student, course) pair fails with ErrEnrollmentExists and leaves the
// original record untouched.
func Create(db *gorm.DB, input CreateInput) (Enrollment, error) {
	id := EnrollmentID(input.StudentID, input.CourseID)

	var existing Enrollment
	err := db.First(&existing, "id = ?", id).Error
	if err == nil {
		return Enrollment{}, ErrEnrollmentExists
	}
	if err != gorm.ErrRecordNotFound {
		return Enrollment{}, err
	}

	enr := Enrollment{
		ID:                    id,
		StudentID:             input.StudentID,
		StudentName:           input.StudentName,
		CourseID:              input.CourseID,
		CourseName:            input.CourseName,
		CoursePrice:           types.ParseMoney(input.PriceDisplay),
		MentorID:              input.MentorID,
		PaymentProofKey:       input.PaymentProofKey,
		Status:                types.EnrollmentStatusPending,
		Progress:              0,
		Completed:             false,
		CompletedVideos:       types.StringList{},
		AssignmentSubmissions: types.StringMap{},
		QuizScores:            types.IntMap{},
	}

	if err := db.Create(&enr).Error; err != nil {
		return Enrollment{}, err
	}

	return enr, nil
}

// Get retrieves an enrollment by its composite ID.
func Get(db *gorm.DB, id string) (Enrollment, error) {
	var enr Enrollment
	if err := db.First(&enr, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return enr, ErrEnrollmentNotFound
		}
		return enr, err
	}
	return enr, nil
}

// GetForStudent retrieves the enrollment for a (student, course) pair.
func GetForStudent(db *gorm.DB, studentID, courseID uuid.UUID) (Enrollment, error) {
	return Get(db, EnrollmentID(studentID, courseID))
}

// ListForMentor retrieves a mentor's enrollments in a given status,
// newest first.
func ListForMentor(db *gorm.DB, mentorID uuid.UUID, status types.EnrollmentStatus, params pagination.Params) ([]Enrollment, int64, error) {
	query := db.Model(&Enrollment{}).
		Where("mentor_id = ? AND status = ?", mentorID, status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var enrollments []Enrollment
	err := query.
		Order("enrolled_at DESC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&enrollments).Error

	return enrollments, total, err
}

// ListForStudent retrieves all of a student's enrollments, newest first.
func ListForStudent(db *gorm.DB, studentID uuid.UUID) ([]Enrollment, error) {
	var enrollments []Enrollment
	err := db.Where("student_id = ?", studentID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

// ProgressInput carries incremental progress to merge into the record.
type ProgressInput struct {
	CompletedVideos       []string
	AssignmentSubmissions map[string]string
	QuizScores            map[string]int
}

// UpdateProgress merges completed items into the enrollment and recomputes
// the progress percentage against the course item totals. The percentage is
// round(100 * completed / total), clamped to [0, 100]; completed items never
// un-complete, and the completed flag holds exactly when progress is 100.
func UpdateProgress(db *gorm.DB, studentID, courseID uuid.UUID, input ProgressInput, totals course.ItemTotals) (Enrollment, error) {
	enr, err := GetForStudent(db, studentID, courseID)
	if err != nil {
		return enr, err
	}

	for _, videoID := range input.CompletedVideos {
		if !enr.CompletedVideos.Contains(videoID) {
			enr.CompletedVideos = append(enr.CompletedVideos, videoID)
		}
	}
	if enr.AssignmentSubmissions == nil {
		enr.AssignmentSubmissions = types.StringMap{}
	}
	for assignmentID, ref := range input.AssignmentSubmissions {
		enr.AssignmentSubmissions[assignmentID] = ref
	}
	if enr.QuizScores == nil {
		enr.QuizScores = types.IntMap{}
	}
	for quizID, score := range input.QuizScores {
		enr.QuizScores[quizID] = score
	}

	enr.Progress = computeProgress(
		len(enr.CompletedVideos)+len(enr.AssignmentSubmissions)+len(enr.QuizScores),
		totals.Total(),
	)
	enr.Completed = enr.Progress == 100

	if err := db.Save(&enr).Error; err != nil {
		return enr, err
	}

	return enr, nil
}

// computeProgress turns a completed/total ratio into a clamped percentage.
func computeProgress(completedCount, totalItems int) int {
	if totalItems <= 0 {
		return 0
	}
	progress := int(math.Round(100 * float64(completedCount) / float64(totalItems)))
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// Approve moves a pending enrollment to approved. Records already decided
// either way stay as they are and the call fails with ErrAlreadyDecided.
func Approve(db *gorm.DB, id string) (Enrollment, error) {
	enr, err := Get(db, id)
	if err != nil {
		return enr, err
	}
	if enr.Status.Terminal() {
		return enr, ErrAlreadyDecided
	}

	now := time.Now().UTC()
	enr.Status = types.EnrollmentStatusApproved
	enr.ApprovedAt = &now

	if err := db.Save(&enr).Error; err != nil {
		return enr, err
	}

	return enr, nil
}

// Reject moves a pending enrollment to rejected, keeping the mentor's
// reason verbatim for the student-facing notification.
func Reject(db *gorm.DB, id string, reason string) (Enrollment, error) {
	enr, err := Get(db, id)
	if err != nil {
		return enr, err
	}
	if enr.Status.Terminal() {
		return enr, ErrAlreadyDecided
	}

	now := time.Now().UTC()
	enr.Status = types.EnrollmentStatusRejected
	enr.RejectedAt = &now
	enr.RejectionReason = &reason

	if err := db.Save(&enr).Error; err != nil {
		return enr, err
	}

	return enr, nil
}
