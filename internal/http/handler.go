package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"config-service/internal/http/middleware"
	"config-service/internal/model"
	"config-service/internal/service"
)

type Handler struct {
	locks       *service.LockService
	permissions *service.PermissionService
	activity    *service.ActivityService
	log         zerolog.Logger
}

func NewHandler(locks *service.LockService, permissions *service.PermissionService, activity *service.ActivityService, log zerolog.Logger) *Handler {
	return &Handler{locks: locks, permissions: permissions, activity: activity, log: log}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := r.Group("/config")
	protected.Use(authMiddleware)

	checks := protected.Group("/checks")
	checks.GET("/field", h.checkField)
	checks.POST("/batch", h.checkBatch)
	checks.GET("/operation", h.checkOperation)
	checks.GET("/editability", h.checkEditability)

	admin := protected.Group("")
	admin.Use(middleware.RequireAdmin())

	admin.GET("/locks", h.listLocks)
	admin.GET("/locks/:id", h.getLock)
	admin.POST("/locks", h.createLock)
	admin.POST("/locks/bulk", h.bulkLocks)
	admin.PUT("/locks/:id", h.updateLock)
	admin.DELETE("/locks/:id", h.deleteLock)

	admin.GET("/permissions", h.listPermissions)
	admin.GET("/permissions/user/:id", h.listUserPermissions)
	admin.POST("/permissions", h.upsertPermission)
	admin.POST("/permissions/bulk", h.bulkPermissions)
	admin.DELETE("/permissions/:id", h.deletePermission)

	admin.GET("/activity", h.listActivity)
}

func (h *Handler) checkField(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	field, ok := model.ParseFieldType(strings.TrimSpace(c.Query("field_type")))
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("field_type must be target, monthly_target, monthly_actual, or all_fields"))
		return
	}
	objectiveID, err := strconv.ParseInt(strings.TrimSpace(c.Query("objective_id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid objective_id"))
		return
	}

	decision, err := h.locks.Check(c.Request.Context(), principal.UserID, objectiveID, field)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(decision))
}

func (h *Handler) checkBatch(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var body struct {
		Checks []service.BatchCheckItem `json:"checks"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Checks == nil {
		c.JSON(http.StatusBadRequest, errorResponse("checks must be an array"))
		return
	}

	results := h.locks.CheckBatch(c.Request.Context(), principal.UserID, body.Checks)
	c.JSON(http.StatusOK, successResponse(gin.H{"results": results}))
}

func (h *Handler) checkOperation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var op model.ObjectiveOperation
	switch strings.TrimSpace(c.Query("operation")) {
	case "add":
		op = model.OperationAdd
	case "delete":
		op = model.OperationDelete
	default:
		c.JSON(http.StatusBadRequest, errorResponse("operation must be add or delete"))
		return
	}
	kpi := strings.TrimSpace(c.Query("kpi"))

	decision, err := h.locks.CheckOperation(c.Request.Context(), principal.UserID, kpi, op)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(decision))
}

func (h *Handler) checkEditability(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	field, ok := model.ParseFieldType(strings.TrimSpace(c.Query("field_type")))
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("field_type must be target, monthly_target, monthly_actual, or all_fields"))
		return
	}
	objectiveID, err := strconv.ParseInt(strings.TrimSpace(c.Query("objective_id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid objective_id"))
		return
	}

	editability, err := h.permissions.Editability(c.Request.Context(), principal.UserID, objectiveID, field)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(editability))
}

func (h *Handler) listLocks(c *gin.Context) {
	views, err := h.locks.ListRules(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(views))
}

func (h *Handler) getLock(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid lock id"))
		return
	}

	view, err := h.locks.GetRule(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) createLock(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var input service.LockRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	view, err := h.locks.CreateRule(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(view))
}

func (h *Handler) bulkLocks(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var body struct {
		Operation string                  `json:"operation"`
		Locks     []service.LockRuleInput `json:"locks"`
		IDs       []int64                 `json:"ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	switch body.Operation {
	case "create":
		views, err := h.locks.BulkCreate(c.Request.Context(), principal, body.Locks)
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, successResponse(views))
	case "delete":
		count, err := h.locks.BulkDeactivate(c.Request.Context(), principal, body.IDs)
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, successResponse(gin.H{"deactivated": count}))
	default:
		c.JSON(http.StatusBadRequest, errorResponse("operation must be create or delete"))
	}
}

func (h *Handler) updateLock(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid lock id"))
		return
	}

	var update service.LockRuleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	view, err := h.locks.UpdateRule(c.Request.Context(), principal, id, update)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) deleteLock(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid lock id"))
		return
	}

	if err := h.locks.DeactivateRule(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"message": "lock deactivated"}))
}

func (h *Handler) listPermissions(c *gin.Context) {
	perms, err := h.permissions.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(perms))
}

func (h *Handler) listUserPermissions(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid user id"))
		return
	}

	perms, err := h.permissions.ListByUser(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(perms))
}

func (h *Handler) upsertPermission(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var input service.PermissionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	perm, created, err := h.permissions.Upsert(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, successResponse(perm))
}

func (h *Handler) bulkPermissions(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var body struct {
		Permissions []service.PermissionInput `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Permissions == nil {
		c.JSON(http.StatusBadRequest, errorResponse("permissions must be an array"))
		return
	}

	perms, err := h.permissions.BulkUpsert(c.Request.Context(), principal, body.Permissions)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(perms))
}

func (h *Handler) deletePermission(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid permission id"))
		return
	}

	if err := h.permissions.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"message": "permission deleted"}))
}

func (h *Handler) listActivity(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, total, err := h.activity.List(c.Request.Context(), page, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"logs": logs, "total": total}))
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrObjectiveNotFound), errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrStoreUnavailable):
		h.log.Error().Err(err).Msg("store unavailable")
		c.JSON(http.StatusServiceUnavailable, errorResponse("store unavailable"))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{"data": data}
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}
