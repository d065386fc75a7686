package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/statline/statline-engine/internal/adapters/handler/http/middleware"
	"github.com/statline/statline-engine/internal/core/domain"
	"github.com/statline/statline-engine/internal/core/services"
)

type CategoryHandler struct {
	svc *services.CategoryService
}

func NewCategoryHandler(svc *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		svc: svc,
	}
}

type createCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// statRequest uses pointers where an absent field and an explicit empty
// string mean different things: omitting value leaves it alone, sending
// "" clears it.
type statRequest struct {
	NewName string  `json:"new_name"`
	Value   *string `json:"value"`
}

type createGoalRequest struct {
	Name        string `json:"name" binding:"required"`
	Qualitative bool   `json:"qualitative"`
	Stat        string `json:"stat"`
	Target      string `json:"target"`
}

type updateGoalRequest struct {
	NewName string  `json:"new_name"`
	Target  *string `json:"target"`
	Stat    *string `json:"stat"`
}

// goalView is the wire shape of a goal: the stored fields plus the derived
// progress percentage, which needs the category for dangling-reference
// detection and so cannot be computed by the goal alone.
type goalView struct {
	*domain.Goal
	Progress int `json:"progress"`
}

type categoryView struct {
	*domain.Category
	Goals []goalView `json:"goals"`
}

func newCategoryView(cat *domain.Category, hideCompleted bool) categoryView {
	goals := cat.VisibleGoals(hideCompleted)
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		p, err := cat.GoalProgress(g.Name)
		if err != nil {
			p = 0
		}
		views = append(views, goalView{Goal: g, Progress: p})
	}
	return categoryView{Category: cat, Goals: views}
}

func (h *CategoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	categories := router.Group("/categories")
	{
		categories.POST("", h.Create)
		categories.GET("", h.List)
		categories.GET("/sync", h.Sync)
		categories.GET("/:id", h.Get)
		categories.DELETE("/:id", h.Delete)

		categories.PUT("/:id/stats/:name", h.PutStat)
		categories.DELETE("/:id/stats/:name", h.DeleteStat)

		categories.POST("/:id/goals", h.CreateGoal)
		categories.PUT("/:id/goals/:name", h.UpdateGoal)
		categories.POST("/:id/goals/:name/toggle", h.ToggleGoal)
		categories.DELETE("/:id/goals/:name", h.DeleteGoal)
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrCategoryNameEmpty) ||
		errors.Is(err, domain.ErrCategoryNameTooLong) ||
		errors.Is(err, domain.ErrStatNameEmpty) ||
		errors.Is(err, domain.ErrStatAlreadyExists) ||
		errors.Is(err, domain.ErrGoalNameEmpty) ||
		errors.Is(err, domain.ErrGoalNameTooLong) ||
		errors.Is(err, domain.ErrGoalStatRequired) ||
		errors.Is(err, domain.ErrGoalTargetRequired) ||
		errors.Is(err, domain.ErrGoalAlreadyExists) ||
		errors.Is(err, domain.ErrGoalNotQualitative)
}

func respondCategoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrCategoryConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "version conflict",
			"message": "Data has been modified elsewhere. Please sync.",
		})
	case errors.Is(err, domain.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
	case errors.Is(err, domain.ErrStatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "stat not found"})
	case errors.Is(err, domain.ErrGoalNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "goal not found"})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func hideCompleted(c *gin.Context) bool {
	return c.Query("hide_completed") == "true"
}

func (h *CategoryHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cat, err := h.svc.Create(c.Request.Context(), userID, req.Name)
	if err != nil {
		respondCategoryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newCategoryView(cat, false))
}

func (h *CategoryHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	list, err := h.svc.Search(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	hide := hideCompleted(c)
	views := make([]categoryView, 0, len(list))
	for _, cat := range list {
		views = append(views, newCategoryView(cat, hide))
	}

	c.JSON(http.StatusOK, views)
}

func (h *CategoryHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	cat, err := h.svc.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondCategoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCategoryView(cat, hideCompleted(c)))
}

func (h *CategoryHandler) Sync(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	lastSyncStr := c.Query("last_sync")
	var lastSync time.Time
	var err error

	if lastSyncStr != "" {
		lastSync, err = time.Parse(time.RFC3339, lastSyncStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid last_sync format, use RFC3339"})
			return
		}
	}

	deltas, err := h.svc.GetDelta(c.Request.Context(), userID, lastSync)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes":   deltas,
		"timestamp": time.Now().UTC(),
	})
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondCategoryError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PutStat is the single write endpoint for a stat. A new_name differing from
// the path name makes it a rename (any value in the same request is applied
// after the rename); otherwise it sets the value, creating the stat if
// needed.
func (h *CategoryHandler) PutStat(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	id := c.Param("id")
	name := c.Param("name")

	var req statRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var cat *domain.Category
	var err error

	switch {
	case req.NewName != "" && req.NewName != name:
		cat, err = h.svc.RenameStat(c.Request.Context(), id, userID, name, req.NewName, req.Value)
	case req.Value != nil:
		cat, err = h.svc.SetStat(c.Request.Context(), id, userID, name, *req.Value)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "value or new_name required"})
		return
	}
	if err != nil {
		respondCategoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCategoryView(cat, false))
}

func (h *CategoryHandler) DeleteStat(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	cat, err := h.svc.RemoveStat(c.Request.Context(), c.Param("id"), userID, c.Param("name"))
	if err != nil {
		respondCategoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCategoryView(cat, false))
}

func (h *CategoryHandler) CreateGoal(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	goal, err := h.svc.AddGoal(c.Request.Context(), services.AddGoalInput{
		CategoryID:  c.Param("id"),
		OwnerID:     userID,
		Name:        req.Name,
		Qualitative: req.Qualitative,
		Stat:        req.Stat,
		Target:      req.Target,
	})
	if err != nil {
		respondCategoryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, goal)
}

func (h *CategoryHandler) UpdateGoal(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req updateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	goal, err := h.svc.UpdateGoal(c.Request.Context(), services.UpdateGoalInput{
		CategoryID: c.Param("id"),
		OwnerID:    userID,
		Name:       c.Param("name"),
		NewName:    req.NewName,
		Target:     req.Target,
		Stat:       req.Stat,
	})
	if err != nil {
		respondCategoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, goal)
}

func (h *CategoryHandler) ToggleGoal(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	goal, err := h.svc.ToggleGoal(c.Request.Context(), c.Param("id"), userID, c.Param("name"))
	if err != nil {
		respondCategoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, goal)
}

func (h *CategoryHandler) DeleteGoal(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	cat, err := h.svc.RemoveGoal(c.Request.Context(), c.Param("id"), userID, c.Param("name"))
	if err != nil {
		respondCategoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCategoryView(cat, false))
}
