// Package user 用户用例
// 注册/登录/登出的编排:领域服务管账号,JWT发令牌,Redis存会话
package user

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/gomall/internal/domain/user"
	"github.com/xiebiao/gomall/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/gomall/pkg/jwt"
)

// 会话有效期与Refresh Token对齐
const sessionTTL = 7 * 24 * time.Hour

// Service 用户服务
type Service struct {
	userService  user.Service
	jwtManager   *jwt.Manager
	sessionStore *redis.SessionStore
	log          *zap.Logger
}

// NewService 创建用户服务
// sessionStore可以为nil(未接Redis时登出只能等令牌自然过期)
func NewService(
	userService user.Service,
	jwtManager *jwt.Manager,
	sessionStore *redis.SessionStore,
	log *zap.Logger,
) *Service {
	return &Service{
		userService:  userService,
		jwtManager:   jwtManager,
		sessionStore: sessionStore,
		log:          log,
	}
}

// Info 对外暴露的用户信息(不含密码)
type Info struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// LoginResult 登录结果
type LoginResult struct {
	User         Info   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // Access Token有效期(秒)
}

// Register 注册
func (s *Service) Register(ctx context.Context, email, password, nickname string) (*Info, error) {
	u, err := s.userService.Register(ctx, email, password, nickname)
	if err != nil {
		return nil, err
	}
	s.log.Info("用户注册成功", zap.Uint("user_id", u.ID))
	return &Info{ID: u.ID, Email: u.Email, Nickname: u.Nickname}, nil
}

// Login 登录
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.userService.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	pair, err := s.jwtManager.GenerateToken(u.ID, u.Email, u.Nickname)
	if err != nil {
		return nil, err
	}

	if s.sessionStore != nil {
		session := map[string]interface{}{
			"user_id":  u.ID,
			"email":    u.Email,
			"login_at": time.Now().Unix(),
		}
		if err := s.sessionStore.SaveSession(ctx, u.ID, session, sessionTTL); err != nil {
			// 会话只是辅助数据,保存失败不挡登录
			s.log.Warn("会话保存失败", zap.Uint("user_id", u.ID), zap.Error(err))
		}
	}

	return &LoginResult{
		User:         Info{ID: u.ID, Email: u.Email, Nickname: u.Nickname},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Logout 登出
// 删除会话并把令牌拉黑到其自然过期
func (s *Service) Logout(ctx context.Context, userID uint, accessToken string) error {
	if s.sessionStore == nil {
		return nil
	}
	if err := s.sessionStore.DeleteSession(ctx, userID); err != nil {
		return err
	}
	return s.sessionStore.AddToBlacklist(ctx, accessToken, 2*time.Hour)
}
