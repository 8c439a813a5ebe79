package services_test

import (
	"testing"
	"time"

	"tasktrack/backend/internal/cache"
	"tasktrack/backend/internal/models"
	"tasktrack/backend/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type CachedTaskServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	cache   *cache.RedisCache
	service *services.CachedTaskService

	owner uuid.UUID
}

func (suite *CachedTaskServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(&models.Profile{}, &models.Category{}, &models.Task{}))

	mr := miniredis.RunT(suite.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	suite.cache = cache.NewRedisCacheFromClient(client)

	suite.db = db
	suite.service = services.NewCachedTaskService(services.NewTaskService(), suite.cache)
	suite.owner = uuid.Must(uuid.NewV4())
}

func (suite *CachedTaskServiceTestSuite) TearDownTest() {
	suite.cache.Close()
}

func (suite *CachedTaskServiceTestSuite) TestListIsCached() {
	_, err := suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{Title: "T"})
	suite.Require().NoError(err)

	tasks, total, err := suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{})
	suite.Require().NoError(err)
	suite.Len(tasks, 1)
	suite.EqualValues(1, total)

	// Second identical request is a cache hit.
	before := suite.cache.Metrics().Hits
	_, _, err = suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{})
	suite.Require().NoError(err)
	suite.Greater(suite.cache.Metrics().Hits, before)
}

func (suite *CachedTaskServiceTestSuite) TestMutationInvalidatesList() {
	_, err := suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{Title: "first"})
	suite.Require().NoError(err)

	_, total, err := suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)

	// A create between two identical lists must not serve the stale page.
	_, err = suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{Title: "second"})
	suite.Require().NoError(err)

	_, total, err = suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{})
	suite.Require().NoError(err)
	suite.EqualValues(2, total)
}

func (suite *CachedTaskServiceTestSuite) TestStatusChangeInvalidatesAssigneeViews() {
	assignee := uuid.Must(uuid.NewV4())
	task, err := suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{
		Title:      "shared",
		AssignedTo: &assignee,
	})
	suite.Require().NoError(err)

	// Prime the assignee's cached list.
	_, total, err := suite.service.ListTasks(suite.db, assignee, services.TaskListQuery{})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)

	_, err = suite.service.SetStatus(suite.db, suite.owner, task.ID, models.StatusCompleted)
	suite.Require().NoError(err)

	tasks, _, err := suite.service.ListTasks(suite.db, assignee, services.TaskListQuery{Status: models.StatusCompleted})
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 1)
	suite.Equal(models.StatusCompleted, tasks[0].Status)
}

func (suite *CachedTaskServiceTestSuite) TestDeleteInvalidatesAssigneeViews() {
	assignee := uuid.Must(uuid.NewV4())
	task, err := suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{
		Title:      "doomed",
		AssignedTo: &assignee,
	})
	suite.Require().NoError(err)

	// Prime the assignee's cached list.
	_, total, err := suite.service.ListTasks(suite.db, assignee, services.TaskListQuery{})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)

	suite.Require().NoError(suite.service.DeleteTask(suite.db, suite.owner, task.ID))

	// The deleted task must not survive in the assignee's cached page.
	tasks, total, err := suite.service.ListTasks(suite.db, assignee, services.TaskListQuery{})
	suite.Require().NoError(err)
	suite.Empty(tasks)
	suite.EqualValues(0, total)
}

func (suite *CachedTaskServiceTestSuite) TestDistinctQueriesCachedSeparately() {
	_, err := suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{Title: "todo one"})
	suite.Require().NoError(err)
	_, err = suite.service.CreateTask(suite.db, suite.owner, services.TaskCreateInput{Title: "done one", Status: models.StatusCompleted})
	suite.Require().NoError(err)

	_, totalAll, err := suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{})
	suite.Require().NoError(err)
	suite.EqualValues(2, totalAll)

	_, totalDone, err := suite.service.ListTasks(suite.db, suite.owner, services.TaskListQuery{Status: models.StatusCompleted})
	suite.Require().NoError(err)
	suite.EqualValues(1, totalDone)
}

func TestCachedTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CachedTaskServiceTestSuite))
}

type CachedAnalyticsTestSuite struct {
	suite.Suite
	db      *gorm.DB
	cache   *cache.RedisCache
	service *services.CachedAnalyticsService

	owner uuid.UUID
	now   time.Time
}

func (suite *CachedAnalyticsTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(&models.Profile{}, &models.Category{}, &models.Task{}))

	mr := miniredis.RunT(suite.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	suite.cache = cache.NewRedisCacheFromClient(client)

	suite.db = db
	suite.service = services.NewCachedAnalyticsService(services.NewAnalyticsService(), suite.cache)
	suite.owner = uuid.Must(uuid.NewV4())
	suite.now = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
}

func (suite *CachedAnalyticsTestSuite) TearDownTest() {
	suite.cache.Close()
}

func (suite *CachedAnalyticsTestSuite) TestOverviewCached() {
	stats, err := suite.service.Overview(suite.db, suite.owner, suite.now)
	suite.Require().NoError(err)
	suite.Zero(stats.TotalTasks)

	exists, err := suite.cache.Exists(cache.AnalyticsKey(suite.owner, "overview", 0))
	suite.Require().NoError(err)
	suite.True(exists)
}

func (suite *CachedAnalyticsTestSuite) TestWarmPopulatesDefaultViews() {
	suite.Require().NoError(suite.service.WarmUserAnalytics(suite.db, suite.owner, suite.now))

	keys := []string{
		cache.AnalyticsKey(suite.owner, "overview", 0),
		cache.AnalyticsKey(suite.owner, "completion-rates", services.DefaultSeriesPeriodDays),
		cache.AnalyticsKey(suite.owner, "productivity", services.DefaultProductivityPeriodDays),
	}
	for _, key := range keys {
		exists, err := suite.cache.Exists(key)
		suite.Require().NoError(err)
		suite.True(exists, "expected %s to be warmed", key)
	}
}

func TestCachedAnalyticsTestSuite(t *testing.T) {
	suite.Run(t, new(CachedAnalyticsTestSuite))
}
