package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/psds-microservice/cityfix/internal/model"
	"gorm.io/gorm"
)

type NotificationService struct {
	db    *gorm.DB
	clock *Clock
}

func NewNotificationService(db *gorm.DB, clock *Clock) *NotificationService {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &NotificationService{db: db, clock: clock}
}

// Send создаёт уведомление. Проверки прав отправителя нет.
func (s *NotificationService) Send(ctx context.Context, n *model.Notification) error {
	if n.Type == "" {
		n.Type = model.NotificationInfo
	}
	if !n.Type.Valid() {
		return errs.ErrInvalidType
	}
	n.ID = uuid.NewString()
	n.Read = false
	n.CreatedAt = s.clock.Now()
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *NotificationService) ListByUser(ctx context.Context, userID model.ClaimedID, unreadOnly bool) ([]model.Notification, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("read = ?", false)
	}
	items := []model.Notification{}
	if err := tx.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkRead — односторонний переход: обратного «непрочитано» нет.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*model.Notification, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errs.ErrNotificationNotFound
	}
	var n model.Notification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}
