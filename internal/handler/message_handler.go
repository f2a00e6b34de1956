package handler

import (
	"mailsync-go/internal/service"
	"mailsync-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MessageHandler 负责处理邮件修改请求。
type MessageHandler struct {
	messageService service.MessageService
}

// NewMessageHandler 创建一个新的 MessageHandler 实例。
func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// UpdateMessage 处理 PUT /n/:ns/messages/:id。
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "请求体必须是 JSON 对象"})
		return
	}

	dto, err := h.messageService.UpdateMessage(c.Request.Context(), c.Param("ns"), c.Param("id"), req)
	if err != nil {
		log.Warnf("UpdateMessage: 更新邮件 %s 失败: %v", c.Param("id"), err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}
