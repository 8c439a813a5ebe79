package handlers

import (
	"net/http"

	"tasktrack/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var query services.TaskListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	tasks, total, err := h.taskService.ListTasks(h.db, userID, query)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	page := query.Page
	if page == 0 {
		page = services.DefaultPage
	}
	limit := query.Limit
	if limit == 0 {
		limit = services.DefaultLimit
	}

	respondPaginated(c, tasks, page, limit, total)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(h.db, userID, taskID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var input services.TaskCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.CreateTask(h.db, userID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input services.TaskUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(h.db, userID, taskID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(h.db, userID, taskID); err != nil {
		respondServiceError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "Task deleted successfully")
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *TaskHandler) SetStatus(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.SetStatus(h.db, userID, taskID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, task)
}

type AssignRequest struct {
	AssignedTo uuid.UUID `json:"assigned_to" binding:"required"`
}

func (h *TaskHandler) AssignTask(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.AssignTask(h.db, userID, taskID, req.AssignedTo)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, task)
}
