package api

import (
	"fmt"
	"net/http"

	"taskhub/internal/api/auth"
	"taskhub/internal/api/httperr"

	"github.com/gin-gonic/gin"
)

type createShareRequest struct {
	TaskID          flexID `json:"taskId"`
	TargetUserEmail string `json:"targetUserEmail"`
}

type deleteShareRequest struct {
	TaskID       flexID `json:"taskId"`
	TargetUserID flexID `json:"targetUserId"`
}

// handleCreateShare 把任务共享给另一个用户。
//
// POST /sharing
func (s *Server) handleCreateShare(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TaskID == 0 || req.TargetUserEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId and targetUserEmail are required"})
		return
	}

	res, err := s.sharing.Create(c.Request.Context(), getUserID(c), uint(req.TaskID), req.TargetUserEmail)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}

	grant := newShareGrantResponse(res.Share)
	target := auth.NewUserResponse(res.Target)
	grant.User = &target
	c.JSON(http.StatusCreated, gin.H{
		"message":    fmt.Sprintf("task '%s' shared with %s", res.Task.Title, res.Target.DisplayName()),
		"sharedTask": grant,
	})
}

// handleListReceived 返回共享给当前用户的任务，附带 sharedBy。
//
// GET /sharing/received
func (s *Server) handleListReceived(c *gin.Context) {
	shares, err := s.sharing.ListReceived(c.Request.Context(), getUserID(c))
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	resp := make([]receivedTaskResponse, 0, len(shares))
	for i := range shares {
		if shares[i].Task == nil {
			continue
		}
		resp = append(resp, newReceivedTaskResponse(&shares[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// handleDeleteShare 撤销共享。
//
// DELETE /sharing  {taskId, targetUserId}
func (s *Server) handleDeleteShare(c *gin.Context) {
	var req deleteShareRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TaskID == 0 || req.TargetUserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId and targetUserId are required"})
		return
	}

	share, err := s.sharing.Delete(c.Request.Context(), getUserID(c), uint(req.TaskID), uint(req.TargetUserID))
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("share of task %d with user %d removed", req.TaskID, req.TargetUserID),
		"deletedShare": newShareGrantResponse(share),
	})
}
