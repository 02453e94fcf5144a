package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/psds-microservice/cityfix/internal/model"
	"gorm.io/gorm"
)

type AdminService struct {
	db      *gorm.DB
	tickets TicketServicer
	clock   *Clock
}

func NewAdminService(db *gorm.DB, tickets TicketServicer, clock *Clock) *AdminService {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &AdminService{db: db, tickets: tickets, clock: clock}
}

func (s *AdminService) ListMunicipalities(ctx context.Context) ([]model.Municipality, error) {
	items := []model.Municipality{}
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CreateMunicipality отклоняет дубликат имени. Уникальный индекс закрывает гонку между
// проверкой и вставкой.
func (s *AdminService) CreateMunicipality(ctx context.Context, m *model.Municipality) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Municipality{}).Where("name = ?", m.Name).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errs.ErrMunicipalityExists
	}
	m.ID = uuid.NewString()
	m.CreatedAt = s.clock.Now()
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.ErrMunicipalityExists
		}
		return err
	}
	return nil
}

// AllTickets — тикеты всех муниципалитетов, новые первыми.
func (s *AdminService) AllTickets(ctx context.Context) ([]model.Ticket, error) {
	return s.tickets.List(ctx, TicketFilter{})
}

type groupCount struct {
	Name  string
	Total int64
}

func (s *AdminService) countBy(ctx context.Context, column string) (map[string]int64, error) {
	var rows []groupCount
	err := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Select(column + " AS name, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Total
	}
	return out, nil
}

// Stats собирает сводку несколькими независимыми запросами без транзакции.
func (s *AdminService) Stats(ctx context.Context) (*model.Stats, error) {
	byStatus, err := s.countBy(ctx, "status")
	if err != nil {
		return nil, err
	}
	byCategory, err := s.countBy(ctx, "category")
	if err != nil {
		return nil, err
	}
	byTenant, err := s.countBy(ctx, "tenant_id")
	if err != nil {
		return nil, err
	}

	st := &model.Stats{
		TicketsByStatus:       byStatus,
		TicketsByCategory:     byCategory,
		TicketsByMunicipality: byTenant,
	}
	for _, n := range byStatus {
		st.TotalTickets += n
	}
	st.PendingTickets = byStatus[string(model.TicketStatusPending)]
	st.InProgressTickets = byStatus[string(model.TicketStatusInProgress)]
	st.CompletedTickets = byStatus[string(model.TicketStatusCompleted)]
	st.OtherTickets = st.TotalTickets - st.PendingTickets - st.InProgressTickets - st.CompletedTickets

	if err := s.db.WithContext(ctx).Model(&model.Municipality{}).Count(&st.TotalMunicipalities).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&model.User{}).Count(&st.TotalUsers).Error; err != nil {
		return nil, err
	}
	return st, nil
}
