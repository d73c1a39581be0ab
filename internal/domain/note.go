package domain

import (
	"context"
	"time"

	"gorm.io/gorm"

	"technotes-api/pkg/utils"
)

const (
	TicketCounter = "ticketNums"
	TicketStart   = 500
)

type Note struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	Ticket int64  `gorm:"uniqueIndex;not null" json:"ticket"`
	UserID string `gorm:"size:36;not null;index" json:"user"`
	// 有外键约束的库上，删除仍被引用的用户会直接失败
	Owner     *User     `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Title     string    `gorm:"size:191;not null" json:"title"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Completed bool      `gorm:"not null;default:false" json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Note) TableName() string { return "notes" }

func (n *Note) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = utils.NewID()
	}
	return nil
}

// Counter 命名自增序列（ticket 编号）
type Counter struct {
	ID  string `gorm:"primaryKey;size:64"`
	Seq int64  `gorm:"not null"`
}

func (Counter) TableName() string { return "counters" }

// NoteRepository 查不到时返回 (nil, nil)；List 预加载 Owner
type NoteRepository interface {
	List(ctx context.Context) ([]Note, error)
	FindByID(ctx context.Context, id string) (*Note, error)
	FindByTitle(ctx context.Context, title string) (*Note, error)
	FindOneByUser(ctx context.Context, userID string) (*Note, error)
	Create(ctx context.Context, n *Note) error
	Update(ctx context.Context, n *Note) error
	Delete(ctx context.Context, n *Note) error
}
