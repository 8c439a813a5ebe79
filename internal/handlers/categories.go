package handlers

import (
	"net/http"

	"tasktrack/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CategoryHandler struct {
	db              *gorm.DB
	categoryService services.CategoryService
}

func NewCategoryHandler(db *gorm.DB, categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{db: db, categoryService: categoryService}
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	categories, err := h.categoryService.ListCategories(h.db, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, categories)
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	categoryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.GetCategory(h.db, userID, categoryID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, category)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var input services.CategoryCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.categoryService.CreateCategory(h.db, userID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	categoryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input services.CategoryUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.categoryService.UpdateCategory(h.db, userID, categoryID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	categoryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.categoryService.DeleteCategory(h.db, userID, categoryID); err != nil {
		respondServiceError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "Category deleted successfully")
}

func (h *CategoryHandler) ListCategoryTasks(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	categoryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	tasks, err := h.categoryService.ListCategoryTasks(h.db, userID, categoryID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, tasks)
}
