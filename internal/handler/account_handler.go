package handler

import (
	"mailsync-go/internal/service"
	"mailsync-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AccountHandler 负责账号创建与 token 签发。
type AccountHandler struct {
	accountService service.AccountService
}

// NewAccountHandler 创建一个新的 AccountHandler 实例。
func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateAccountRequest 定义了创建账号 API 的请求体结构。
type CreateAccountRequest struct {
	EmailAddress string `json:"email_address" binding:"required"`
	Provider     string `json:"provider" binding:"required"`
}

// CreateAccount 处理 POST /accounts。secret 只在创建时返回一次。
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：email_address 和 provider 不能为空",
		})
		return
	}

	account, secret, tok, err := h.accountService.CreateAccount(c.Request.Context(), req.EmailAddress, req.Provider)
	if err != nil {
		log.Warnf("CreateAccount: 创建账号 '%s' 失败: %v", req.EmailAddress, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "success",
		"data": gin.H{
			"namespace_id":  account.NamespacePublicID(),
			"email_address": account.Email,
			"provider":      account.Provider,
			"secret":        secret,
			"token":         tok,
		},
	})
}

// TokenRequest 定义了签发 token API 的请求体结构。
type TokenRequest struct {
	EmailAddress string `json:"email_address" binding:"required"`
	Secret       string `json:"secret" binding:"required"`
}

// IssueToken 处理 POST /accounts/token。
func (h *AccountHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：email_address 和 secret 不能为空",
		})
		return
	}

	tok, err := h.accountService.IssueToken(c.Request.Context(), req.EmailAddress, req.Secret)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"token": tok}})
}
