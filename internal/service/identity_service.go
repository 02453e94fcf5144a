package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/psds-microservice/cityfix/internal/auth"
	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/psds-microservice/cityfix/internal/model"
	"gorm.io/gorm"
)

type IdentityService struct {
	db    *gorm.DB
	jwt   *auth.JWTManager
	clock *Clock
}

func NewIdentityService(db *gorm.DB, jwt *auth.JWTManager, clock *Clock) *IdentityService {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &IdentityService{db: db, jwt: jwt, clock: clock}
}

// Register создаёт пользователя; email уникален.
func (s *IdentityService) Register(ctx context.Context, u *model.User, password string) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = model.UserRoleCitizen
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errs.ErrEmailTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.ID = uuid.NewString()
	u.PasswordHash = hash
	u.CreatedAt = s.clock.Now()
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.ErrEmailTaken
		}
		return err
	}
	return nil
}

// Login проверяет пароль и выдаёт токен доступа.
func (s *IdentityService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errs.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", nil, errs.ErrInvalidCredentials
	}
	token, err := s.jwt.GenerateToken(&u)
	if err != nil {
		return "", nil, err
	}
	return token, &u, nil
}

// Me возвращает пользователя по Bearer-токену. Это единственная операция с проверкой личности.
func (s *IdentityService) Me(ctx context.Context, authorization string) (*model.User, error) {
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || token == "" {
		return nil, errs.ErrInvalidToken
	}
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, errs.ErrInvalidToken
	}
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", claims.Subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
