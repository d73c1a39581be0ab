package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"technotes-api/internal/domain"
)

type NoteRepo struct{ db *gorm.DB }

func NewNoteRepo(db *gorm.DB) *NoteRepo { return &NoteRepo{db: db} }

var _ domain.NoteRepository = (*NoteRepo)(nil)

func (r *NoteRepo) List(ctx context.Context) ([]domain.Note, error) {
	var notes []domain.Note
	err := r.db.WithContext(ctx).Preload("Owner").Order("ticket asc").Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (r *NoteRepo) FindByID(ctx context.Context, id string) (*domain.Note, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *NoteRepo) FindByTitle(ctx context.Context, title string) (*domain.Note, error) {
	return r.first(ctx, "title = ?", title)
}

func (r *NoteRepo) FindOneByUser(ctx context.Context, userID string) (*domain.Note, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *NoteRepo) first(ctx context.Context, query string, arg any) (*domain.Note, error) {
	var n domain.Note
	err := r.db.WithContext(ctx).Where(query, arg).Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find note: %w", err)
	}
	return &n, nil
}

// Create 在同一事务里取号 + 插入，失败时序号一并回滚
func (r *NoteRepo) Create(ctx context.Context, n *domain.Note) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSeq(tx, domain.TicketCounter, domain.TicketStart)
		if err != nil {
			return err
		}
		n.Ticket = seq
		return tx.Omit("Owner").Create(n).Error
	})
	return translate("create note", err)
}

func (r *NoteRepo) Update(ctx context.Context, n *domain.Note) error {
	res := r.db.WithContext(ctx).Model(n).
		Select("user_id", "title", "text", "completed", "updated_at").
		Updates(n)
	if res.Error != nil {
		return translate("update note", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update note %s: %w", n.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *NoteRepo) Delete(ctx context.Context, n *domain.Note) error {
	res := r.db.WithContext(ctx).Delete(&domain.Note{}, "id = ?", n.ID)
	if res.Error != nil {
		return translate("delete note", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete note %s: %w", n.ID, domain.ErrNotFound)
	}
	return nil
}

// nextSeq 首次使用时以 start-1 建计数器，之后原子 +1
func nextSeq(tx *gorm.DB, name string, start int64) (int64, error) {
	seed := domain.Counter{ID: name, Seq: start - 1}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, fmt.Errorf("seed counter %s: %w", name, err)
	}
	res := tx.Model(&domain.Counter{}).Where("id = ?", name).
		UpdateColumn("seq", gorm.Expr("seq + ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("advance counter %s: %w", name, res.Error)
	}
	var c domain.Counter
	if err := tx.Where("id = ?", name).Take(&c).Error; err != nil {
		return 0, fmt.Errorf("read counter %s: %w", name, err)
	}
	return c.Seq, nil
}
