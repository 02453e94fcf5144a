package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/psds-microservice/cityfix/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketServicer — интерфейс хранилища тикетов для хендлеров (Dependency Inversion).
type TicketServicer interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]model.Ticket, error)
	Update(ctx context.Context, id string, upd TicketUpdate) (*model.Ticket, error)
	AddComment(ctx context.Context, id string, userID model.ClaimedID, message string) (*model.Ticket, error)
	SetFeedback(ctx context.Context, id string, rating int, comment *string) (*model.Ticket, error)
}

// TicketFilter — фильтры списка; пустое поле означает «любое значение».
type TicketFilter struct {
	TenantID model.ClaimedID
	UserID   model.ClaimedID
	Status   string
	Limit    int
	Offset   int
}

// TicketUpdate — merge-patch: меняются только заданные (не nil) поля.
// AssignedTo с Set и пустым Value снимает назначение (NULL).
type TicketUpdate struct {
	Title       *string
	Description *string
	Status      *string
	Category    *string
	AssignedTo  model.NullableString
}

func (u TicketUpdate) changes() map[string]any {
	changes := make(map[string]any)
	if u.Title != nil {
		changes["title"] = *u.Title
	}
	if u.Description != nil {
		changes["description"] = *u.Description
	}
	if u.Status != nil {
		changes["status"] = *u.Status
	}
	if u.Category != nil {
		changes["category"] = *u.Category
	}
	if u.AssignedTo.Set {
		if u.AssignedTo.Value == nil {
			changes["assigned_to"] = nil
		} else {
			changes["assigned_to"] = *u.AssignedTo.Value
		}
	}
	return changes
}

type TicketService struct {
	db    *gorm.DB
	clock *Clock
}

func NewTicketService(db *gorm.DB, clock *Clock) *TicketService {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &TicketService{db: db, clock: clock}
}

// parseID отличает неверный формат идентификатора от отсутствующей записи.
func parseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", errs.ErrInvalidID
	}
	return u.String(), nil
}

// normalize гарантирует пустые массивы вместо null в ответе.
func normalize(t *model.Ticket) {
	if t.Comments == nil {
		t.Comments = []model.Comment{}
	}
	if t.Images == nil {
		t.Images = model.StringList{}
	}
}

func (s *TicketService) withDetails(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Feedback")
}

// Create всегда создаёт тикет в статусе pending, без комментариев и отзыва.
func (s *TicketService) Create(ctx context.Context, t *model.Ticket) error {
	now := s.clock.Now()
	t.ID = uuid.NewString()
	t.Status = model.TicketStatusPending
	t.Comments = []model.Comment{}
	t.Feedback = nil
	if t.Images == nil {
		t.Images = model.StringList{}
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error
}

func (s *TicketService) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var t model.Ticket
	if err := s.withDetails(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	normalize(&t)
	return &t, nil
}

// List возвращает тикеты, удовлетворяющие всем заданным фильтрам, новые первыми.
func (s *TicketService) List(ctx context.Context, filter TicketFilter) ([]model.Ticket, error) {
	tx := s.withDetails(ctx).Model(&model.Ticket{})
	if filter.TenantID != "" {
		tx = tx.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.UserID != "" {
		tx = tx.Where("reported_by = ?", filter.UserID)
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		tx = tx.Offset(filter.Offset)
	}
	items := []model.Ticket{}
	if err := tx.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		normalize(&items[i])
	}
	return items, nil
}

// Update применяет merge-patch одним UPDATE. Переходы статуса не ограничиваются.
func (s *TicketService) Update(ctx context.Context, id string, upd TicketUpdate) (*model.Ticket, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	changes := upd.changes()
	if len(changes) == 0 {
		return nil, errs.ErrNoChanges
	}
	changes["updated_at"] = nextUpdatedAt(s.db, s.clock.Now())
	res := s.db.WithContext(ctx).Model(&model.Ticket{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errs.ErrTicketNotFound
	}
	return s.GetByID(ctx, id)
}

// AddComment добавляет строку комментария и сдвигает updated_at в одной транзакции;
// параллельные комментарии не теряются, так как список не перезаписывается целиком.
func (s *TicketService) AddComment(ctx context.Context, id string, userID model.ClaimedID, message string) (*model.Ticket, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		if err := touch(tx, id, now); err != nil {
			return err
		}
		return tx.Create(&model.Comment{
			TicketID:  id,
			UserID:    userID,
			Message:   message,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// SetFeedback заменяет единственный отзыв тикета (upsert по ticket_id).
func (s *TicketService) SetFeedback(ctx context.Context, id string, rating int, comment *string) (*model.Ticket, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, errs.ErrInvalidRating
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		if err := touch(tx, id, now); err != nil {
			return err
		}
		fb := &model.Feedback{TicketID: id, Rating: rating, Comment: comment, CreatedAt: now}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticket_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "created_at"}),
		}).Create(fb).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func touch(tx *gorm.DB, id string, now time.Time) error {
	res := tx.Model(&model.Ticket{}).Where("id = ?", id).Update("updated_at", nextUpdatedAt(tx, now))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrTicketNotFound
	}
	return nil
}

// nextUpdatedAt не даёт updated_at уйти назад при расхождении часов реплик:
// в Postgres берётся максимум из локального времени и прежнего значения плюс 1 мкс.
func nextUpdatedAt(db *gorm.DB, now time.Time) any {
	if db.Dialector.Name() == "postgres" {
		return gorm.Expr("GREATEST(?::timestamptz, updated_at + interval '1 microsecond')", now)
	}
	return now
}
