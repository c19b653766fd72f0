package course

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

// Video is a single playable item inside a course section. Key is the
// opaque media-vault storage key, never a raw URL.
type Video struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration string `json:"duration,omitempty"`
	Key      string `json:"key"`
}

// Section groups videos under a named heading.
type Section struct {
	Title  string  `json:"section"`
	Videos []Video `json:"videos"`
}

// SectionList is stored as a JSON column.
type SectionList []Section

// Value implements driver.Valuer.
func (s SectionList) Value() (driver.Value, error) {
	if s == nil {
		s = SectionList{}
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *SectionList) Scan(value interface{}) error {
	return types.ScanJSON(value, s)
}

// VideoCount returns the number of videos across all sections.
func (s SectionList) VideoCount() int {
	count := 0
	for _, section := range s {
		count += len(section.Videos)
	}
	return count
}

// Course is a mentor-owned catalog entry.
type Course struct {
	types.BaseModel

	MentorID     uuid.UUID   `gorm:"type:uuid;not null;index;column:mentor_id" json:"mentorId"`
	Title        string      `gorm:"type:varchar(200);not null" json:"title"`
	Category     string      `gorm:"type:varchar(100);index" json:"category"`
	Description  string      `gorm:"type:text" json:"description"`
	PriceDisplay string      `gorm:"type:varchar(50);column:price_display" json:"price"`
	Price        types.Money `gorm:"type:numeric(12,2);not null;default:0" json:"priceAmount"`
	ImageKey     string      `gorm:"type:varchar(255);column:image_key" json:"imageKey"`
	Sections     SectionList `gorm:"type:jsonb" json:"sections"`
	Active       bool        `gorm:"type:boolean;not null;column:is_active" json:"isActive"`
}

func (Course) TableName() string { return "courses" }

// Assignment is a per-course deliverable students submit against.
type Assignment struct {
	types.BaseModel

	CourseID    uuid.UUID  `gorm:"type:uuid;not null;index;column:course_id" json:"courseId"`
	Title       string     `gorm:"type:varchar(200);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `gorm:"column:due_date" json:"dueDate,omitempty"`
}

func (Assignment) TableName() string { return "assignments" }

// Quiz holds a set of multiple-choice questions for a course.
type Quiz struct {
	types.BaseModel

	CourseID  uuid.UUID             `gorm:"type:uuid;not null;index;column:course_id" json:"courseId"`
	Title     string                `gorm:"type:varchar(200);not null" json:"title"`
	Questions types.MCQQuestionList `gorm:"type:jsonb" json:"questions"`
}

func (Quiz) TableName() string { return "quizzes" }

// ItemTotals is the denominator of the enrollment progress percentage:
// one unit per video, assignment, and quiz.
type ItemTotals struct {
	Videos      int `json:"videos"`
	Assignments int `json:"assignments"`
	Quizzes     int `json:"quizzes"`
}

// Total sums all countable course items.
func (t ItemTotals) Total() int { return t.Videos + t.Assignments + t.Quizzes }

// ListFilters defines catalog query filters.
type ListFilters struct {
	MentorID   uuid.UUID
	Category   string
	Keyword    string
	ActiveOnly bool
}

// CreateInput carries data for creating a new course.
type CreateInput struct {
	MentorID     uuid.UUID
	Title        string
	Category     string
	Description  string
	PriceDisplay string
	ImageKey     string
	Sections     SectionList
	Active       *bool
}

// UpdateInput captures mutable course fields.
type UpdateInput struct {
	Title        *string
	Category     *string
	Description  *string
	PriceDisplay *string
	ImageKey     *string
	Sections     *SectionList
	Active       *bool
}

// List retrieves paginated catalog entries with filters.
func List(db *gorm.DB, filters ListFilters, params pagination.Params) ([]Course, int64, error) {
	query := db.Model(&Course{})

	if filters.MentorID != uuid.Nil {
		query = query.Where("mentor_id = ?", filters.MentorID)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.Keyword != "" {
		keyword := "%" + strings.ToLower(filters.Keyword) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", keyword, keyword)
	}
	if filters.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []Course
	err := query.
		Order("title ASC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&courses).Error

	return courses, total, err
}

// Get retrieves a course by ID.
func Get(db *gorm.DB, id uuid.UUID) (Course, error) {
	var crs Course
	if err := db.First(&crs, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return crs, ErrCourseNotFound
		}
		return crs, err
	}
	return crs, nil
}

// Create inserts a new course. The display price string is authoritative;
// the numeric amount is parsed from it.
func Create(db *gorm.DB, input CreateInput) (Course, error) {
	if strings.TrimSpace(input.Title) == "" {
		return Course{}, ErrTitleRequired
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	sections := input.Sections
	if sections == nil {
		sections = SectionList{}
	}

	crs := Course{
		MentorID:     input.MentorID,
		Title:        input.Title,
		Category:     input.Category,
		Description:  input.Description,
		PriceDisplay: input.PriceDisplay,
		Price:        types.ParseMoney(input.PriceDisplay),
		ImageKey:     input.ImageKey,
		Sections:     sections,
		Active:       active,
	}

	if err := db.Create(&crs).Error; err != nil {
		return Course{}, err
	}

	return crs, nil
}

// Update modifies an existing course.
func Update(db *gorm.DB, id uuid.UUID, input UpdateInput) (Course, error) {
	crs, err := Get(db, id)
	if err != nil {
		return crs, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return crs, ErrTitleRequired
		}
		crs.Title = *input.Title
	}
	if input.Category != nil {
		crs.Category = *input.Category
	}
	if input.Description != nil {
		crs.Description = *input.Description
	}
	if input.PriceDisplay != nil {
		crs.PriceDisplay = *input.PriceDisplay
		crs.Price = types.ParseMoney(*input.PriceDisplay)
	}
	if input.ImageKey != nil {
		crs.ImageKey = *input.ImageKey
	}
	if input.Sections != nil {
		crs.Sections = *input.Sections
	}
	if input.Active != nil {
		crs.Active = *input.Active
	}

	if err := db.Save(&crs).Error; err != nil {
		return crs, err
	}

	return crs, nil
}

// Delete removes a course.
func Delete(db *gorm.DB, id uuid.UUID) error {
	result := db.Delete(&Course{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCourseNotFound
	}
	return nil
}

// ListAssignments returns a course's assignments, oldest first.
func ListAssignments(db *gorm.DB, courseID uuid.UUID) ([]Assignment, error) {
	var assignments []Assignment
	err := db.Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&assignments).Error
	return assignments, err
}

// CreateAssignment inserts a new assignment for a course.
func CreateAssignment(db *gorm.DB, assignment Assignment) (Assignment, error) {
	if strings.TrimSpace(assignment.Title) == "" {
		return Assignment{}, ErrTitleRequired
	}
	if err := db.Create(&assignment).Error; err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

// ListQuizzes returns a course's quizzes, oldest first.
func ListQuizzes(db *gorm.DB, courseID uuid.UUID) ([]Quiz, error) {
	var quizzes []Quiz
	err := db.Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&quizzes).Error
	return quizzes, err
}

// CreateQuiz inserts a new quiz after validating its questions.
func CreateQuiz(db *gorm.DB, quiz Quiz) (Quiz, error) {
	if strings.TrimSpace(quiz.Title) == "" {
		return Quiz{}, ErrTitleRequired
	}
	for _, question := range quiz.Questions {
		if err := question.Validate(); err != nil {
			return Quiz{}, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
		}
	}
	if quiz.Questions == nil {
		quiz.Questions = types.MCQQuestionList{}
	}
	if err := db.Create(&quiz).Error; err != nil {
		return Quiz{}, err
	}
	return quiz, nil
}

// ItemCounts computes the countable items of a course: videos from the
// sections payload plus assignment and quiz rows.
func ItemCounts(db *gorm.DB, courseID uuid.UUID) (ItemTotals, error) {
	crs, err := Get(db, courseID)
	if err != nil {
		return ItemTotals{}, err
	}

	var assignments int64
	if err := db.Model(&Assignment{}).Where("course_id = ?", courseID).Count(&assignments).Error; err != nil {
		return ItemTotals{}, err
	}

	var quizzes int64
	if err := db.Model(&Quiz{}).Where("course_id = ?", courseID).Count(&quizzes).Error; err != nil {
		return ItemTotals{}, err
	}

	return ItemTotals{
		Videos:      crs.Sections.VideoCount(),
		Assignments: int(assignments),
		Quizzes:     int(quizzes),
	}, nil
}
