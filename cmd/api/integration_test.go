package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tasktrack/backend/internal/cache"
	"tasktrack/backend/internal/handlers"
	"tasktrack/backend/internal/identity"
	"tasktrack/backend/internal/models"
	"tasktrack/backend/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const integrationSecret = "integration-secret"

func setupStack(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Profile{}, &models.Category{}, &models.Task{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisCache := cache.NewRedisCacheFromClient(client)
	t.Cleanup(func() { redisCache.Close() })

	return handlers.NewRouter(handlers.RouterDeps{
		DB:              db,
		Cache:           redisCache,
		Provider:        nil,
		Verifier:        identity.NewJWTVerifier(integrationSecret),
		TaskService:     services.NewCachedTaskService(services.NewTaskService(), redisCache),
		CategoryService: services.NewCachedCategoryService(services.NewCategoryService(), redisCache),
		ProfileService:  services.NewProfileService(),
		Analytics:       services.NewCachedAnalyticsService(services.NewAnalyticsService(), redisCache),
	})
}

func tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(integrationSecret))
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func TestTaskLifecycleFlow(t *testing.T) {
	router := setupStack(t)
	token := tokenFor(t, uuid.Must(uuid.NewV4()))

	// Create in todo.
	w, envelope := doJSON(t, router, "POST", "/tasks", token, map[string]string{"title": "T", "status": "todo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := envelope["data"].(map[string]interface{})
	assert.Equal(t, "todo", task["status"])
	assert.Nil(t, task["completed_at"])
	taskID := task["id"].(string)

	// Complete it.
	w, envelope = doJSON(t, router, "PATCH", "/tasks/"+taskID+"/status", token, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	task = envelope["data"].(map[string]interface{})
	assert.Equal(t, "completed", task["status"])
	assert.NotNil(t, task["completed_at"])

	// Reopen: the completion timestamp must clear.
	w, envelope = doJSON(t, router, "PATCH", "/tasks/"+taskID+"/status", token, map[string]string{"status": "todo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	task = envelope["data"].(map[string]interface{})
	assert.Equal(t, "todo", task["status"])
	assert.Nil(t, task["completed_at"])
}

func TestAccessControlFlow(t *testing.T) {
	router := setupStack(t)

	ownerID := uuid.Must(uuid.NewV4())
	assigneeID := uuid.Must(uuid.NewV4())
	strangerID := uuid.Must(uuid.NewV4())
	owner := tokenFor(t, ownerID)
	assignee := tokenFor(t, assigneeID)
	stranger := tokenFor(t, strangerID)

	w, envelope := doJSON(t, router, "POST", "/tasks", owner, map[string]interface{}{
		"title":       "shared",
		"assigned_to": assigneeID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	taskID := envelope["data"].(map[string]interface{})["id"].(string)

	// Assignee can read and flip status.
	w, _ = doJSON(t, router, "GET", "/tasks/"+taskID, assignee, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, "PATCH", "/tasks/"+taskID+"/status", assignee, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Assignee cannot update, delete, or reassign; failures look like 404.
	w, _ = doJSON(t, router, "PUT", "/tasks/"+taskID, assignee, map[string]string{"title": "mine now"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, router, "DELETE", "/tasks/"+taskID, assignee, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, router, "PATCH", "/tasks/"+taskID+"/assign", assignee, map[string]string{"assigned_to": strangerID.String()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A stranger sees nothing at all.
	w, _ = doJSON(t, router, "GET", "/tasks/"+taskID, stranger, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// No token at all is a 401, not a 404.
	w, _ = doJSON(t, router, "GET", "/tasks/"+taskID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCategoryAndAnalyticsFlow(t *testing.T) {
	router := setupStack(t)
	token := tokenFor(t, uuid.Must(uuid.NewV4()))

	w, envelope := doJSON(t, router, "POST", "/categories", token, map[string]string{"name": "Work"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	categoryID := envelope["data"].(map[string]interface{})["id"].(string)

	// Duplicate name is rejected.
	w, _ = doJSON(t, router, "POST", "/categories", token, map[string]string{"name": "Work"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, router, "POST", "/tasks", token, map[string]interface{}{
		"title":       "categorized",
		"category_id": categoryID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, envelope = doJSON(t, router, "GET", "/categories/"+categoryID+"/tasks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, envelope["data"], 1)

	w, envelope = doJSON(t, router, "GET", "/analytics/overview", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	overview := envelope["data"].(map[string]interface{})
	assert.Equal(t, float64(1), overview["total_tasks"])

	w, envelope = doJSON(t, router, "GET", "/analytics/categories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rollup := envelope["data"].([]interface{})
	require.Len(t, rollup, 1)
	assert.Equal(t, "Work", rollup[0].(map[string]interface{})["name"])
}

func TestListPaginationFlow(t *testing.T) {
	router := setupStack(t)
	token := tokenFor(t, uuid.Must(uuid.NewV4()))

	for i := 0; i < 12; i++ {
		w, _ := doJSON(t, router, "POST", "/tasks", token, map[string]string{"title": "task"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, envelope := doJSON(t, router, "GET", "/tasks?page=2&limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Len(t, envelope["data"], 5)
	pagination := envelope["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["page"])
	assert.Equal(t, float64(12), pagination["total"])
	assert.Equal(t, float64(3), pagination["pages"])
}

func TestHealthEndpoint(t *testing.T) {
	router := setupStack(t)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// No checks registered in this stack; an empty set is healthy.
	assert.Equal(t, http.StatusOK, w.Code)
}
