package services_test

import (
	"testing"
	"time"

	"tasktrack/backend/internal/apperrors"
	"tasktrack/backend/internal/models"
	"tasktrack/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type TaskServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service services.TaskService

	owner    uuid.UUID
	assignee uuid.UUID
	stranger uuid.UUID
}

func (suite *TaskServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(&models.Profile{}, &models.Category{}, &models.Task{}))

	suite.db = db
	suite.service = services.NewTaskService()
	suite.owner = uuid.Must(uuid.NewV4())
	suite.assignee = uuid.Must(uuid.NewV4())
	suite.stranger = uuid.Must(uuid.NewV4())
}

func (suite *TaskServiceTestSuite) createTask(input services.TaskCreateInput) *models.Task {
	task, err := suite.service.CreateTask(suite.db, suite.owner, input)
	suite.Require().NoError(err)
	return task
}

func (suite *TaskServiceTestSuite) TestCreateTaskDefaults() {
	task := suite.createTask(services.TaskCreateInput{Title: "  Write report  "})

	suite.Equal("Write report", task.Title)
	suite.Equal(models.StatusTodo, task.Status)
	suite.Equal(models.PriorityMedium, task.Priority)
	suite.Nil(task.CompletedAt)
	suite.Equal(suite.owner, task.CreatedBy)
}

func (suite *TaskServiceTestSuite) TestCreateTaskTitleValidation() {
	_, err := suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{Title: "   "})
	suite.Error(err)
	_, ok := apperrors.AsValidation(err)
	suite.True(ok)

	long := make([]byte, services.MaxTitleLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{Title: string(long)})
	suite.Error(err)
}

func (suite *TaskServiceTestSuite) TestCreateTaskInvalidEnums() {
	_, err := suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{Title: "T", Status: "done"})
	_, ok := apperrors.AsValidation(err)
	suite.True(ok)

	_, err = suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{Title: "T", Priority: "urgent"})
	_, ok = apperrors.AsValidation(err)
	suite.True(ok)
}

func (suite *TaskServiceTestSuite) TestCreateTaskCompletedOnCreate() {
	task := suite.createTask(services.TaskCreateInput{Title: "T", Status: models.StatusCompleted})

	suite.Equal(models.StatusCompleted, task.Status)
	suite.Require().NotNil(task.CompletedAt)
}

func (suite *TaskServiceTestSuite) TestCreateTaskForeignCategoryRejected() {
	categoryService := services.NewCategoryService()
	foreign, err := categoryService.CreateCategory(suite.db, suite.stranger, services.CategoryCreateInput{Name: "Work"})
	suite.Require().NoError(err)

	_, err = suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{
		Title:      "T",
		CategoryID: &foreign.ID,
	})
	suite.ErrorIs(err, apperrors.ErrInvalidCategory)
}

func (suite *TaskServiceTestSuite) TestStatusTimestampInvariant() {
	task := suite.createTask(services.TaskCreateInput{Title: "T"})
	suite.Nil(task.CompletedAt)

	task, err := suite.service.SetStatus(suite.db, suite.owner, task.ID, models.StatusCompleted)
	suite.Require().NoError(err)
	suite.Equal(models.StatusCompleted, task.Status)
	suite.Require().NotNil(task.CompletedAt)

	task, err = suite.service.SetStatus(suite.db, suite.owner, task.ID, models.StatusTodo)
	suite.Require().NoError(err)
	suite.Equal(models.StatusTodo, task.Status)
	suite.Nil(task.CompletedAt)
}

func (suite *TaskServiceTestSuite) TestStatusInvariantThroughGeneralUpdate() {
	task := suite.createTask(services.TaskCreateInput{Title: "T"})

	completed := models.StatusCompleted
	task, err := suite.service.UpdateTask(suite.db, suite.owner, task.ID, services.TaskUpdateInput{Status: &completed})
	suite.Require().NoError(err)
	suite.Require().NotNil(task.CompletedAt)

	todo := models.StatusTodo
	task, err = suite.service.UpdateTask(suite.db, suite.owner, task.ID, services.TaskUpdateInput{Status: &todo})
	suite.Require().NoError(err)
	suite.Nil(task.CompletedAt)
}

func (suite *TaskServiceTestSuite) TestSetStatusInvalidValue() {
	task := suite.createTask(services.TaskCreateInput{Title: "T"})

	_, err := suite.service.SetStatus(suite.db, suite.owner, task.ID, "finished")
	_, ok := apperrors.AsValidation(err)
	suite.True(ok)
}

func (suite *TaskServiceTestSuite) TestAssigneeCanReadAndChangeStatus() {
	task := suite.createTask(services.TaskCreateInput{Title: "T", AssignedTo: &suite.assignee})

	got, err := suite.service.GetTask(suite.db, suite.assignee, task.ID)
	suite.Require().NoError(err)
	suite.Equal(task.ID, got.ID)

	updated, err := suite.service.SetStatus(suite.db, suite.assignee, task.ID, models.StatusInProgress)
	suite.Require().NoError(err)
	suite.Equal(models.StatusInProgress, updated.Status)
}

func (suite *TaskServiceTestSuite) TestAssigneeCannotMutateBeyondStatus() {
	task := suite.createTask(services.TaskCreateInput{Title: "T", AssignedTo: &suite.assignee})

	title := "Hijacked"
	_, err := suite.service.UpdateTask(suite.db, suite.assignee, task.ID, services.TaskUpdateInput{Title: &title})
	suite.ErrorIs(err, apperrors.ErrNotFound)

	err = suite.service.DeleteTask(suite.db, suite.assignee, task.ID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.service.AssignTask(suite.db, suite.assignee, task.ID, suite.stranger)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *TaskServiceTestSuite) TestStrangerSeesNothing() {
	task := suite.createTask(services.TaskCreateInput{Title: "T"})

	_, err := suite.service.GetTask(suite.db, suite.stranger, task.ID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.service.SetStatus(suite.db, suite.stranger, task.ID, models.StatusCompleted)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	tasks, total, err := suite.service.ListTasks(suite.db, suite.stranger, services.TaskListQuery{})
	suite.Require().NoError(err)
	suite.Empty(tasks)
	suite.Zero(total)
}

func (suite *TaskServiceTestSuite) TestDeleteTask() {
	task := suite.createTask(services.TaskCreateInput{Title: "T"})

	suite.NoError(suite.service.DeleteTask(suite.db, suite.owner, task.ID))

	_, err := suite.service.GetTask(suite.db, suite.owner, task.ID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	err = suite.service.DeleteTask(suite.db, suite.owner, uuid.Must(uuid.NewV4()))
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *TaskServiceTestSuite) TestListFiltersAndWindow() {
	for i := 0; i < 3; i++ {
		suite.createTask(services.TaskCreateInput{Title: "todo", Priority: models.PriorityLow})
	}
	suite.createTask(services.TaskCreateInput{Title: "done", Status: models.StatusCompleted, Priority: models.PriorityHigh})

	tasks, total, err := suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{Status: models.StatusTodo})
	suite.Require().NoError(err)
	suite.EqualValues(3, total)
	suite.Len(tasks, 3)

	tasks, total, err = suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{Priority: models.PriorityHigh})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)
	suite.Len(tasks, 1)

	// Window is applied after the count: page 2 of limit 3 holds the
	// remaining task, total still reports all four.
	tasks, total, err = suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{Page: 2, Limit: 3})
	suite.Require().NoError(err)
	suite.EqualValues(4, total)
	suite.Len(tasks, 1)

	tasks, _, err = suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{Page: 5, Limit: 10})
	suite.Require().NoError(err)
	suite.Empty(tasks)
}

func (suite *TaskServiceTestSuite) TestListDueDateFilters() {
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	suite.createTask(services.TaskCreateInput{Title: "early", DueDate: &due})
	late := due.AddDate(0, 0, 10)
	suite.createTask(services.TaskCreateInput{Title: "late", DueDate: &late})

	tasks, _, err := suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{DueBefore: "2026-03-15"})
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 1)
	suite.Equal("early", tasks[0].Title)

	tasks, _, err = suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{DueAfter: "2026-03-15T00:00:00Z"})
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 1)
	suite.Equal("late", tasks[0].Title)
}

func (suite *TaskServiceTestSuite) TestListSorting() {
	suite.createTask(services.TaskCreateInput{Title: "banana"})
	suite.createTask(services.TaskCreateInput{Title: "apple"})

	tasks, _, err := suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{SortBy: "title", SortOrder: "asc"})
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 2)
	suite.Equal("apple", tasks[0].Title)
	suite.Equal("banana", tasks[1].Title)
}

func (suite *TaskServiceTestSuite) TestListSortTiesKeepInsertionOrder() {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	titles := []string{"first", "second", "third", "fourth", "fifth"}
	for i, title := range titles {
		task := suite.createTask(services.TaskCreateInput{Title: title, Priority: models.PriorityMedium})
		suite.Require().NoError(suite.db.Model(&models.Task{}).Where("id = ?", task.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	// Every row ties on the sort key; the windows must still walk the rows
	// in creation order without repeats or gaps.
	var seen []string
	for page := 1; page <= 3; page++ {
		tasks, total, err := suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{
			SortBy:    "priority",
			SortOrder: "asc",
			Page:      page,
			Limit:     2,
		})
		suite.Require().NoError(err)
		suite.EqualValues(5, total)
		for _, task := range tasks {
			seen = append(seen, task.Title)
		}
	}
	suite.Equal(titles, seen)
}

func (suite *TaskServiceTestSuite) TestListQueryValidation() {
	cases := []services.TaskListQuery{
		{Status: "done"},
		{Priority: "urgent"},
		{CategoryID: "not-a-uuid"},
		{AssignedTo: "not-a-uuid"},
		{DueBefore: "tomorrow"},
		{Page: -1},
		{Limit: 101},
		{SortBy: "secret_column"},
		{SortOrder: "sideways"},
	}

	for _, query := range cases {
		_, _, err := suite.service.ListTasks(suite.db, suite.owner, query)
		suite.Error(err)
		_, ok := apperrors.AsValidation(err)
		suite.True(ok, "query %+v should fail validation", query)
	}
}

func (suite *TaskServiceTestSuite) TestAssignTask() {
	task := suite.createTask(services.TaskCreateInput{Title: "T"})

	updated, err := suite.service.AssignTask(suite.db, suite.owner, task.ID, suite.assignee)
	suite.Require().NoError(err)
	suite.Require().NotNil(updated.AssignedTo)
	suite.Equal(suite.assignee, *updated.AssignedTo)

	// Reassignment overwrites.
	updated, err = suite.service.AssignTask(suite.db, suite.owner, task.ID, suite.stranger)
	suite.Require().NoError(err)
	suite.Equal(suite.stranger, *updated.AssignedTo)
}

func (suite *TaskServiceTestSuite) TestPartialUpdateLeavesOtherFields() {
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	task := suite.createTask(services.TaskCreateInput{
		Title:       "Original",
		Description: "Keep me",
		Priority:    models.PriorityHigh,
		DueDate:     &due,
	})

	title := "Renamed"
	updated, err := suite.service.UpdateTask(suite.db, suite.owner, task.ID, services.TaskUpdateInput{Title: &title})
	suite.Require().NoError(err)
	suite.Equal("Renamed", updated.Title)
	suite.Equal("Keep me", updated.Description)
	suite.Equal(models.PriorityHigh, updated.Priority)
	suite.Require().NotNil(updated.DueDate)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

func TestPages(t *testing.T) {
	cases := []struct {
		total    int64
		limit    int
		expected int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{5, 0, 0},
	}

	for _, tc := range cases {
		if got := services.Pages(tc.total, tc.limit); got != tc.expected {
			t.Errorf("Pages(%d, %d) = %d, expected %d", tc.total, tc.limit, got, tc.expected)
		}
	}
}
