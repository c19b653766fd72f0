package course

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/learnhub-app/learnhub-server-go/pkg/pagination"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Course{}, &Assignment{}, &Quiz{}))
	return db
}

func testPage() pagination.Params {
	return pagination.Params{Page: 1, Limit: 20}
}

func createCourse(t *testing.T, db *gorm.DB, input CreateInput) Course {
	t.Helper()
	if input.Title == "" {
		input.Title = "Untitled"
	}
	if input.MentorID == uuid.Nil {
		input.MentorID = uuid.New()
	}
	crs, err := Create(db, input)
	require.NoError(t, err)
	return crs
}

func TestCreate_ParsesPriceDisplay(t *testing.T) {
	db := newTestDB(t)

	crs := createCourse(t, db, CreateInput{Title: "Go Fundamentals", PriceDisplay: "$1,299.50"})

	assert.Equal(t, "$1,299.50", crs.PriceDisplay)
	assert.True(t, crs.Price.Equal(types.NewMoney(1299.50)))
	assert.True(t, crs.Active)
}

func TestCreate_InactiveCoursePersists(t *testing.T) {
	db := newTestDB(t)
	inactive := false

	crs := createCourse(t, db, CreateInput{Title: "Draft Course", Active: &inactive})
	assert.False(t, crs.Active)

	var loaded Course
	require.NoError(t, db.First(&loaded, "id = ?", crs.ID).Error)
	assert.False(t, loaded.Active, "the inactive flag must round-trip through the insert")
}

func TestCreate_EmptyTitleRejected(t *testing.T) {
	db := newTestDB(t)

	_, err := Create(db, CreateInput{MentorID: uuid.New(), Title: "   "})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestList_Filters(t *testing.T) {
	db := newTestDB(t)
	mentorA := uuid.New()
	mentorB := uuid.New()
	inactive := false

	createCourse(t, db, CreateInput{MentorID: mentorA, Title: "Algorithms", Category: "cs"})
	createCourse(t, db, CreateInput{MentorID: mentorA, Title: "Watercolor Basics", Category: "art"})
	createCourse(t, db, CreateInput{MentorID: mentorB, Title: "Advanced Algorithms", Category: "cs"})
	createCourse(t, db, CreateInput{MentorID: mentorB, Title: "Retired Course", Category: "cs", Active: &inactive})

	courses, total, err := List(db, ListFilters{ActiveOnly: true}, testPage())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, courses, 3)
	// Ordered by title.
	assert.Equal(t, "Advanced Algorithms", courses[0].Title)

	_, total, err = List(db, ListFilters{MentorID: mentorA, ActiveOnly: true}, testPage())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = List(db, ListFilters{Category: "cs", ActiveOnly: true}, testPage())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = List(db, ListFilters{Keyword: "algorithms", ActiveOnly: true}, testPage())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = List(db, ListFilters{ActiveOnly: false}, testPage())
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestGet_MissingReturnsNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := Get(db, uuid.New())
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestUpdate_PartialFields(t *testing.T) {
	db := newTestDB(t)
	crs := createCourse(t, db, CreateInput{Title: "Old Title", PriceDisplay: "$10", Category: "cs"})

	newTitle := "New Title"
	newPrice := "$25.00"
	updated, err := Update(db, crs.ID, UpdateInput{Title: &newTitle, PriceDisplay: &newPrice})
	require.NoError(t, err)

	assert.Equal(t, "New Title", updated.Title)
	assert.True(t, updated.Price.Equal(types.NewMoney(25)))
	assert.Equal(t, "cs", updated.Category, "untouched fields keep their values")
}

func TestSectionList_VideoCount(t *testing.T) {
	sections := SectionList{
		{Title: "One", Videos: []Video{{ID: "a"}, {ID: "b"}}},
		{Title: "Two", Videos: []Video{{ID: "c"}}},
		{Title: "Empty"},
	}
	assert.Equal(t, 3, sections.VideoCount())
	assert.Equal(t, 0, SectionList(nil).VideoCount())
}

func TestItemCounts_SumsCurriculum(t *testing.T) {
	db := newTestDB(t)
	crs := createCourse(t, db, CreateInput{
		Title: "Full Course",
		Sections: SectionList{
			{Title: "Part 1", Videos: []Video{{ID: "v1"}, {ID: "v2"}}},
			{Title: "Part 2", Videos: []Video{{ID: "v3"}}},
		},
	})

	due := time.Now().Add(72 * time.Hour).UTC()
	_, err := CreateAssignment(db, Assignment{CourseID: crs.ID, Title: "Essay", DueDate: &due})
	require.NoError(t, err)
	_, err = CreateQuiz(db, Quiz{CourseID: crs.ID, Title: "Checkpoint", Questions: types.MCQQuestionList{
		{Question: "2+2?", Answers: []string{"3", "4"}, CorrectAnswer: "B"},
	}})
	require.NoError(t, err)

	totals, err := ItemCounts(db, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Videos)
	assert.Equal(t, 1, totals.Assignments)
	assert.Equal(t, 1, totals.Quizzes)
	assert.Equal(t, 5, totals.Total())
}

func TestItemCounts_MissingCourse(t *testing.T) {
	db := newTestDB(t)

	_, err := ItemCounts(db, uuid.New())
	assert.ErrorIs(t, err, ErrCourseNotFound)
}
