// Package httperr 把业务错误写成统一的 JSON 错误响应。
package httperr

import (
	"log/slog"

	"taskhub/internal/apperr"

	"github.com/gin-gonic/gin"
)

// Write 按错误类别写出 {"error": "..."}。Internal 错误记录完整原因，只对外返回通用消息。
func Write(c *gin.Context, logger *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if apperr.KindOf(err) == apperr.KindInternal && logger != nil {
		logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.MessageOf(err)})
}
