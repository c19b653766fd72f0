package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserRole represents user role levels
type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleMentor  UserRole = "mentor"
	UserRoleAdmin   UserRole = "admin"
)

// EnrollmentStatus represents the lifecycle state of an enrollment.
// Transitions only move forward: pending -> approved or pending -> rejected.
type EnrollmentStatus string

const (
	EnrollmentStatusPending  EnrollmentStatus = "pending"
	EnrollmentStatusApproved EnrollmentStatus = "approved"
	EnrollmentStatusRejected EnrollmentStatus = "rejected"
)

// Terminal reports whether no further status transitions are allowed.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusApproved || s == EnrollmentStatusRejected
}

// VerificationStatus tracks an admin review of a mentor account. Student and
// admin accounts never carry one.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusApproved VerificationStatus = "approved"
	VerificationStatusRejected VerificationStatus = "rejected"
)

// Decided reports whether the review reached a final state.
func (s VerificationStatus) Decided() bool {
	return s == VerificationStatusApproved || s == VerificationStatusRejected
}

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// BeforeCreate fills the ID so inserts work the same on every dialect.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TimestampModel contains only timestamp fields (for models with custom IDs)
type TimestampModel struct {
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// MCQQuestion represents a multiple choice quiz question.
type MCQQuestion struct {
	Question      string   `json:"question"`
	Answers       []string `json:"answers"`       // Max 4
	CorrectAnswer string   `json:"correctAnswer"` // A, B, C, or D
}

// MCQQuestionList is a JSON-encoded list of questions stored in a single column.
type MCQQuestionList []MCQQuestion

// Value implements driver.Valuer.
func (l MCQQuestionList) Value() (driver.Value, error) {
	if l == nil {
		l = MCQQuestionList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *MCQQuestionList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Validate validates MCQ structure
func (q *MCQQuestion) Validate() error {
	if len(q.Question) < 3 || len(q.Question) > 500 {
		return errors.New("question must be 3-500 characters")
	}
	if len(q.Answers) < 2 || len(q.Answers) > 4 {
		return errors.New("must have 2-4 answers")
	}
	for _, answer := range q.Answers {
		if len(answer) == 0 || len(answer) > 100 {
			return errors.New("each answer must be 1-100 characters")
		}
	}
	if q.CorrectAnswer != "A" && q.CorrectAnswer != "B" &&
		q.CorrectAnswer != "C" && q.CorrectAnswer != "D" {
		return errors.New("correctAnswer must be A, B, C, or D")
	}
	return nil
}

// Money wraps decimal.Decimal for money values
type Money decimal.Decimal

// NewMoney creates Money from float64
func NewMoney(value float64) Money {
	return Money(decimal.NewFromFloat(value))
}

// NewMoneyFromString creates Money from string
func NewMoneyFromString(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, err
	}
	return Money(d), nil
}

// ParseMoney parses a display price such as "$19.99" or "1,299" into Money.
// Unparseable input yields zero, matching how the storefront treated free or
// malformed price strings.
func ParseMoney(display string) Money {
	cleaned := strings.TrimSpace(display)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return Money{}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Money{}
	}
	return Money(d)
}

// Float64 returns the float64 representation
func (m Money) Float64() float64 {
	return decimal.Decimal(m).InexactFloat64()
}

// String returns string representation
func (m Money) String() string {
	return decimal.Decimal(m).String()
}

// IsZero returns true if value is zero
func (m Money) IsZero() bool {
	return decimal.Decimal(m).IsZero()
}

// Equal reports whether two Money values are numerically equal.
func (m Money) Equal(other Money) bool {
	return decimal.Decimal(m).Equal(decimal.Decimal(other))
}

// Value implements driver.Valuer for database serialization
func (m Money) Value() (driver.Value, error) {
	return decimal.Decimal(m).Value()
}

// Scan implements sql.Scanner for database deserialization
func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return decimal.Decimal(m).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

// StringList is a JSON-encoded list of identifiers stored in a single column.
type StringList []string

// Contains reports whether v is present in the list.
func (l StringList) Contains(v string) bool {
	for _, item := range l {
		if item == v {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// StringMap is a JSON-encoded string-to-string map stored in a single column.
type StringMap map[string]string

// Value implements driver.Valuer.
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		m = StringMap{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *StringMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// IntMap is a JSON-encoded string-to-int map stored in a single column.
type IntMap map[string]int

// Value implements driver.Valuer.
func (m IntMap) Value() (driver.Value, error) {
	if m == nil {
		m = IntMap{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *IntMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// ScanJSON decodes a JSON column value into dest. Feature packages use it
// to implement sql.Scanner on their own column types.
func ScanJSON(value interface{}, dest interface{}) error {
	return scanJSON(value, dest)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}
