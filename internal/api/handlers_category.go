package api

import (
	"net/http"

	"taskhub/internal/api/httperr"

	"github.com/gin-gonic/gin"
)

type categoryRequest struct {
	Name string `json:"name"`
}

// handleCreateCategory POST /categories
func (s *Server) handleCreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	category, err := s.categories.Create(c.Request.Context(), getUserID(c), req.Name)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newCategoryResponse(category, false))
}

// handleListCategories 返回当前用户的分类（按名称），每个分类附带其任务。
//
// GET /categories
func (s *Server) handleListCategories(c *gin.Context) {
	categories, err := s.categories.List(c.Request.Context(), getUserID(c))
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	resp := make([]categoryResponse, 0, len(categories))
	for i := range categories {
		resp = append(resp, newCategoryResponse(&categories[i], true))
	}
	c.JSON(http.StatusOK, resp)
}

// handleUpdateCategory PUT /categories/:id
func (s *Server) handleUpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	category, err := s.categories.Update(c.Request.Context(), getUserID(c), id, req.Name)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, newCategoryResponse(category, false))
}

// handleDeleteCategory 删除分类，相关任务保留但不再属于任何分类。
//
// DELETE /categories/:id
func (s *Server) handleDeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
		return
	}
	category, err := s.categories.Delete(c.Request.Context(), getUserID(c), id)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted successfully", "deletedCategory": newCategoryResponse(category, false)})
}
