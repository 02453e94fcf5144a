package model

import "time"

// TicketStatus: открытое множество значений. Известные статусы используются только в статистике,
// PATCH принимает любую строку.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
)

// KnownTicketStatuses: корзины статистики администратора.
var KnownTicketStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusInProgress,
	TicketStatusCompleted,
}

type Ticket struct {
	ID          string       `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string       `gorm:"type:varchar(255);not null" json:"title"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Location    Location     `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Status      TicketStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	Category    string       `gorm:"type:varchar(64);index;not null" json:"category"`
	ReportedBy  ClaimedID    `gorm:"type:varchar(64);index;not null" json:"reported_by"`
	AssignedTo  *string      `gorm:"type:varchar(64)" json:"assigned_to"`
	Images      StringList   `json:"images"`
	TenantID    ClaimedID    `gorm:"type:varchar(64);index;not null" json:"tenant_id"`
	Comments    []Comment    `gorm:"foreignKey:TicketID" json:"comments"`
	Feedback    *Feedback    `gorm:"foreignKey:TicketID" json:"feedback"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment: строка append-only списка комментариев. Порядок задаёт автоинкрементный ID.
type Comment struct {
	ID        uint64    `gorm:"primaryKey" json:"-"`
	TicketID  string    `gorm:"type:uuid;index;not null" json:"-"`
	UserID    ClaimedID `gorm:"type:varchar(64);not null" json:"user_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string { return "ticket_comments" }

// Feedback: не более одной записи на тикет, повторная отправка перезаписывает.
type Feedback struct {
	TicketID  string    `gorm:"primaryKey;type:uuid" json:"-"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   *string   `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (Feedback) TableName() string { return "ticket_feedback" }
