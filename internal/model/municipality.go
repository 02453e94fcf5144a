package model

import (
	"time"

	"gorm.io/datatypes"
)

type Municipality struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Location  Location       `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	AdminID   ClaimedID      `gorm:"type:varchar(64);not null" json:"admin_id"`
	Bounds    datatypes.JSON `json:"bounds,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Stats — сводка администратора. Поля *_tickets совместимы с прежним API, OtherTickets и
// TicketsByStatus покрывают статусы вне известных корзин.
type Stats struct {
	TotalTickets          int64            `json:"total_tickets"`
	PendingTickets        int64            `json:"pending_tickets"`
	InProgressTickets     int64            `json:"in_progress_tickets"`
	CompletedTickets      int64            `json:"completed_tickets"`
	OtherTickets          int64            `json:"other_tickets"`
	TotalMunicipalities   int64            `json:"total_municipalities"`
	TotalUsers            int64            `json:"total_users"`
	TicketsByStatus       map[string]int64 `json:"tickets_by_status"`
	TicketsByCategory     map[string]int64 `json:"tickets_by_category"`
	TicketsByMunicipality map[string]int64 `json:"tickets_by_municipality"`
}
