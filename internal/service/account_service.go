package service

import (
	"context"
	"errors"
	"fmt"
	"mailsync-go/internal/model"
	"mailsync-go/internal/repository"
	"mailsync-go/internal/sharding"
	"mailsync-go/pkg/hash"
	"mailsync-go/pkg/log"
	"mailsync-go/pkg/token"
	"strings"

	"gorm.io/gorm"
)

// AccountService 接口定义了账号的创建与 API token 签发。
type AccountService interface {
	// CreateAccount 在随机的开放分片上创建账号，返回账号、一次性展示的 API secret 与 token。
	CreateAccount(ctx context.Context, email, provider string) (*model.Account, string, string, error)
	// IssueToken 校验 secret 并签发新的 token。
	IssueToken(ctx context.Context, email, secret string) (string, error)
	GetAccount(ctx context.Context, namespacePublicID string) (*model.Account, error)
}

type accountService struct {
	accountRepo repository.AccountRepository
	registry    sharding.Registry
	jwtManager  *token.JWTManager
}

// NewAccountService 创建一个新的 AccountService 实例。
func NewAccountService(accountRepo repository.AccountRepository, registry sharding.Registry, jwtManager *token.JWTManager) AccountService {
	return &accountService{
		accountRepo: accountRepo,
		registry:    registry,
		jwtManager:  jwtManager,
	}
}

func (s *accountService) CreateAccount(ctx context.Context, email, provider string) (*model.Account, string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", "", fmt.Errorf("%w: \"email_address\" must be a valid address", ErrInputError)
	}
	switch provider {
	case model.ProviderGmail, model.ProviderIMAP, model.ProviderEAS:
	default:
		return nil, "", "", fmt.Errorf("%w: unknown provider %q", ErrInputError, provider)
	}

	// 1. 检查邮箱是否已存在
	_, err := s.accountRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, "", "", ErrAccountExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}

	// 2. 选择开放分片
	key, err := sharding.RandomOpenKey(s.registry)
	if err != nil {
		return nil, "", "", err
	}

	// 3. 生成并哈希 API secret
	secret := token.GenerateRandomString(24)
	hashed, err := hash.HashPassword(secret)
	if err != nil {
		return nil, "", "", fmt.Errorf("哈希 API secret 失败: %w", err)
	}

	account := &model.Account{
		Email:      email,
		Provider:   provider,
		SecretHash: hashed,
	}
	if err := s.accountRepo.Create(ctx, key, account); err != nil {
		return nil, "", "", fmt.Errorf("创建账号失败: %w", err)
	}
	log.Infof("[AccountService] 账号 %s 创建于分片 %d, namespace: %s",
		email, sharding.ShardIDFromKey(account.ID), account.NamespacePublicID())

	tok, err := s.jwtManager.GenerateToken(account.ID, account.NamespacePublicID())
	if err != nil {
		return nil, "", "", err
	}
	return account, secret, tok, nil
}

func (s *accountService) IssueToken(ctx context.Context, email, secret string) (string, error) {
	account, err := s.accountRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnauthorized
		}
		return "", err
	}
	if !hash.CheckPasswordHash(secret, account.SecretHash) {
		return "", ErrUnauthorized
	}
	return s.jwtManager.GenerateToken(account.ID, account.NamespacePublicID())
}

func (s *accountService) GetAccount(ctx context.Context, namespacePublicID string) (*model.Account, error) {
	id, err := model.DecodePublicID(namespacePublicID)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.accountRepo.FindByID(ctx, id)
}
