package user

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

// User represents a system user.
type User struct {
	types.BaseModel

	FullName     string         `gorm:"type:varchar(100);not null;column:full_name" json:"fullName"`
	Email        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Password     string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         types.UserRole `gorm:"type:varchar(20);not null;default:'student';index" json:"role"`
	RefreshToken *string        `gorm:"type:text;column:refresh_token" json:"-"`
	Active       bool           `gorm:"type:boolean;not null;column:is_active;index" json:"isActive"`

	// Mentor verification. New mentor accounts start pending and an admin
	// approves or rejects them; the fields stay empty for other roles.
	MentorStatus       types.VerificationStatus `gorm:"type:varchar(20);column:mentor_status;index" json:"mentorStatus,omitempty"`
	MentorStatusReason string                   `gorm:"type:text;column:mentor_status_reason" json:"mentorStatusReason,omitempty"`
	MentorDecidedAt    *time.Time               `gorm:"column:mentor_decided_at" json:"mentorDecidedAt,omitempty"`

	// EnrolledCourses is a denormalized read-optimization: a stub per course
	// the student has entered the enrollment flow for. The authoritative
	// record lives in the enrollments table.
	EnrolledCourses CourseStubList `gorm:"type:jsonb;column:enrolled_courses" json:"enrolledCourses"`
}

// TableName overrides the default table name.
func (User) TableName() string { return "users" }

// CourseStub is the lightweight enrollment summary kept on the user record.
type CourseStub struct {
	CourseID   uuid.UUID `json:"courseId"`
	Progress   int       `json:"progress"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// CourseStubList stores course stubs as a JSON column.
type CourseStubList []CourseStub

// Value implements driver.Valuer.
func (l CourseStubList) Value() (driver.Value, error) {
	if l == nil {
		l = CourseStubList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *CourseStubList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, l)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}

// ListFilters defines user query filters.
type ListFilters struct {
	Keyword   string
	Roles     []types.UserRole
	ExcludeID *uuid.UUID
}

// CreateInput carries data for creating a new user.
type CreateInput struct {
	FullName string
	Email    string
	Password string
	Role     types.UserRole
}

// List queries users with filters and pagination.
func List(db *gorm.DB, filters ListFilters, params pagination.Params) ([]User, int64, error) {
	query := db.Model(&User{})

	if filters.Keyword != "" {
		keyword := "%" + strings.ToLower(filters.Keyword) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", keyword, keyword)
	}

	if len(filters.Roles) > 0 {
		query = query.Where("role IN ?", filters.Roles)
	}

	if filters.ExcludeID != nil {
		query = query.Where("id != ?", *filters.ExcludeID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []User
	err := query.
		Order("created_at DESC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&users).Error

	return users, total, err
}

// Get retrieves a user by ID.
func Get(db *gorm.DB, id uuid.UUID) (User, error) {
	var usr User
	if err := db.First(&usr, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return usr, ErrUserNotFound
		}
		return usr, err
	}
	return usr, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func GetByEmail(db *gorm.DB, email string) (User, error) {
	var usr User
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := db.First(&usr, "LOWER(email) = ?", normalized).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return usr, ErrUserNotFound
		}
		return usr, err
	}
	return usr, nil
}

// Create inserts a new user with a hashed password.
func Create(db *gorm.DB, input CreateInput) (User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	role := input.Role
	if role == "" {
		role = types.UserRoleStudent
	}

	usr := User{
		FullName:        strings.TrimSpace(input.FullName),
		Email:           strings.ToLower(strings.TrimSpace(input.Email)),
		Password:        string(hashed),
		Role:            role,
		Active:          true,
		EnrolledCourses: CourseStubList{},
	}
	if role == types.UserRoleMentor {
		usr.MentorStatus = types.VerificationStatusPending
	}

	if err := db.Create(&usr).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "UNIQUE") {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}

	return usr, nil
}

// CheckPassword compares a candidate password against the stored hash.
func (u *User) CheckPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate)) == nil
}

// SetRefreshToken persists the user's current refresh token.
func SetRefreshToken(db *gorm.DB, id uuid.UUID, token *string) error {
	return db.Model(&User{}).Where("id = ?", id).Update("refresh_token", token).Error
}

// AppendCourseStub appends an enrollment stub onto the user's denormalized
// course list. Idempotent per course: an existing stub for the same course is
// left untouched.
func AppendCourseStub(db *gorm.DB, id uuid.UUID, stub CourseStub) error {
	usr, err := Get(db, id)
	if err != nil {
		return err
	}

	for _, existing := range usr.EnrolledCourses {
		if existing.CourseID == stub.CourseID {
			return nil
		}
	}

	usr.EnrolledCourses = append(usr.EnrolledCourses, stub)
	return db.Model(&User{}).Where("id = ?", id).
		Update("enrolled_courses", usr.EnrolledCourses).Error
}

// UpdateCourseStubProgress mirrors an enrollment progress change onto the stub.
// Missing stubs are ignored; the enrollment record stays authoritative.
func UpdateCourseStubProgress(db *gorm.DB, id, courseID uuid.UUID, progress int) error {
	usr, err := Get(db, id)
	if err != nil {
		return err
	}

	changed := false
	for i := range usr.EnrolledCourses {
		if usr.EnrolledCourses[i].CourseID == courseID {
			usr.EnrolledCourses[i].Progress = progress
			changed = true
		}
	}
	if !changed {
		return nil
	}

	return db.Model(&User{}).Where("id = ?", id).
		Update("enrolled_courses", usr.EnrolledCourses).Error
}

// ListPendingMentors returns mentor accounts awaiting verification, oldest
// first so the queue drains in arrival order.
func ListPendingMentors(db *gorm.DB, params pagination.Params) ([]User, int64, error) {
	query := db.Model(&User{}).
		Where("role = ?", types.UserRoleMentor).
		Where("mentor_status = ?", types.VerificationStatusPending)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count pending mentors: %w", err)
	}

	mentors := make([]User, 0)
	err := query.
		Order("created_at ASC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&mentors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list pending mentors: %w", err)
	}
	return mentors, total, nil
}

// ApproveMentor marks a pending mentor account as verified.
func ApproveMentor(db *gorm.DB, id uuid.UUID) (User, error) {
	return decideMentor(db, id, types.VerificationStatusApproved, "")
}

// RejectMentor declines a pending mentor account with a reason.
func RejectMentor(db *gorm.DB, id uuid.UUID, reason string) (User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return User{}, ErrReasonRequired
	}
	return decideMentor(db, id, types.VerificationStatusRejected, reason)
}

func decideMentor(db *gorm.DB, id uuid.UUID, status types.VerificationStatus, reason string) (User, error) {
	usr, err := Get(db, id)
	if err != nil {
		return User{}, err
	}
	if usr.Role != types.UserRoleMentor {
		return User{}, ErrNotMentor
	}
	if usr.MentorStatus.Decided() {
		return User{}, ErrMentorDecided
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"mentor_status":        status,
		"mentor_status_reason": reason,
		"mentor_decided_at":    now,
	}
	if err := db.Model(&User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return User{}, fmt.Errorf("decide mentor: %w", err)
	}

	usr.MentorStatus = status
	usr.MentorStatusReason = reason
	usr.MentorDecidedAt = &now
	return usr, nil
}
