package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"taskhub/internal/api/httperr"
	"taskhub/internal/apperr"

	"github.com/gin-gonic/gin"
)

// multipartOverhead 为表单边界与其他字段预留的字节数。
const multipartOverhead = 1 << 20

// handleUploadAttachment 上传附件（multipart：file + taskId）。
//
// 文件先落盘再校验 taskId 与归属，任何失败都会删除刚保存的文件。
//
// POST /attachments
func (s *Server) handleUploadAttachment(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.files.MaxBytes()+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httperr.Write(c, s.logger, apperr.PayloadTooLarge("file too large"))
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file and taskId are required"})
		return
	}

	stored, err := s.files.Save(fh)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}

	taskID, err := strconv.ParseUint(strings.TrimSpace(c.PostForm("taskId")), 10, 64)
	if err != nil || taskID == 0 {
		s.attachments.Discard(stored)
		c.JSON(http.StatusBadRequest, gin.H{"error": "file and taskId are required"})
		return
	}

	attachment, err := s.attachments.Create(c.Request.Context(), getUserID(c), uint(taskID), stored)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newAttachmentResponse(attachment))
}

// handleListAttachments GET /attachments/:taskId
func (s *Server) handleListAttachments(c *gin.Context) {
	taskID, ok := parseID(c, "taskId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	attachments, err := s.attachments.List(c.Request.Context(), getUserID(c), taskID)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	resp := make([]attachmentResponse, 0, len(attachments))
	for i := range attachments {
		resp = append(resp, newAttachmentResponse(&attachments[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// handleDeleteAttachment DELETE /attachments/:id
func (s *Server) handleDeleteAttachment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attachment id"})
		return
	}
	attachment, err := s.attachments.Delete(c.Request.Context(), getUserID(c), id)
	if err != nil {
		httperr.Write(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "attachment deleted successfully", "deletedAttachment": newAttachmentResponse(attachment)})
}
