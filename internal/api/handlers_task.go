package api

import (
	"net/http"

	"taskhub/internal/api/httperr"
	"taskhub/internal/service"

	"github.com/gin-gonic/gin"
)

// createTaskRequest 创建任务的请求参数。
type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"` // DD-MM-YYYY HH:mm 或 ISO 格式
	Priority    string  `json:"priority"`
	CategoryID  *flexID `json:"categoryId"`
}

// updateTaskRequest 只更新出现的字段；dueDate / categoryId 为 null 表示清除。
type updateTaskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	DueDate     optional[string] `json:"dueDate"`
	Priority    *string          `json:"priority"`
	CategoryID  optional[flexID] `json:"categoryId"`
}

// handleCreateTask 创建任务。
//
// POST /tasks
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	input := service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}
	if req.DueDate != nil {
		input.DueDate = *req.DueDate
	}
	if req.CategoryID != nil && *req.CategoryID != 0 {
		id := uint(*req.CategoryID)
		input.CategoryID = &id
	}

	task, err := s.tasks.Create(c.Request.Context(), getUserID(c), input)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newTaskResponse(task))
}

// handleListTasks 返回当前用户的全部任务。
//
// GET /tasks
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context(), getUserID(c))
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, newTaskListResponse(tasks))
}

// handleGetTask GET /tasks/:id
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	task, err := s.tasks.Get(c.Request.Context(), getUserID(c), id)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

// handleUpdateTask 更新任务。
//
// PUT /tasks/:id
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	patch := service.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}
	if req.DueDate.Set {
		empty := ""
		patch.DueDate = &empty
		if req.DueDate.Value != nil {
			patch.DueDate = req.DueDate.Value
		}
	}
	if req.CategoryID.Set {
		if req.CategoryID.Value == nil || *req.CategoryID.Value == 0 {
			patch.ClearCategory = true
		} else {
			categoryID := uint(*req.CategoryID.Value)
			patch.CategoryID = &categoryID
		}
	}

	task, err := s.tasks.Update(c.Request.Context(), getUserID(c), id, patch)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

// handleDeleteTask 删除任务，附件与共享随之删除。
//
// DELETE /tasks/:id
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	task, err := s.tasks.Delete(c.Request.Context(), getUserID(c), id)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted successfully", "deletedTask": newTaskResponse(task)})
}
