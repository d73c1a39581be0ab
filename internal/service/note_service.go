package service

import (
	"context"
	"errors"
	"fmt"

	"technotes-api/internal/apperr"
	"technotes-api/internal/domain"
)

const (
	msgNoNotes            = "No notes found"
	msgNoteNotFound       = "Note not found"
	msgNoteIDRequired     = "Note ID required"
	msgDuplicateNoteTitle = "Duplicate note title"
)

type NoteService struct {
	notes domain.NoteRepository
	users domain.UserRepository
}

func NewNoteService(notes domain.NoteRepository, users domain.UserRepository) *NoteService {
	return &NoteService{notes: notes, users: users}
}

// NoteView 列表项附带所属用户名
type NoteView struct {
	domain.Note
	Username string `json:"username"`
}

func (s *NoteService) List(ctx context.Context) ([]NoteView, error) {
	notes, err := s.notes.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, apperr.NoData(msgNoNotes)
	}
	out := make([]NoteView, 0, len(notes))
	for _, n := range notes {
		v := NoteView{Note: n}
		if n.Owner != nil {
			v.Username = n.Owner.Username
		}
		out = append(out, v)
	}
	return out, nil
}

type CreateNoteInput struct {
	User  string `json:"user"  form:"user" validate:"required"`
	Title string `json:"title" form:"title" validate:"required"`
	Text  string `json:"text"  form:"text" validate:"required"`
}

func (s *NoteService) Create(ctx context.Context, in CreateNoteInput) (*domain.Note, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, msgAllFieldsRequired, err)
	}
	if err := s.requireUser(ctx, in.User); err != nil {
		return nil, err
	}

	dup, err := s.notes.FindByTitle(ctx, in.Title)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return nil, apperr.Conflict(msgDuplicateNoteTitle)
	}

	n := &domain.Note{UserID: in.User, Title: in.Title, Text: in.Text}
	if err := s.notes.Create(ctx, n); err != nil {
		if errors.Is(err, domain.ErrForeignKey) {
			return nil, apperr.Wrap(apperr.KindNotFound, msgUserNotFound, err)
		}
		return nil, err
	}
	return n, nil
}

type UpdateNoteInput struct {
	ID        string `json:"id"        form:"id" validate:"required"`
	User      string `json:"user"      form:"user" validate:"required"`
	Title     string `json:"title"     form:"title" validate:"required"`
	Text      string `json:"text"      form:"text" validate:"required"`
	Completed *bool  `json:"completed" form:"completed" validate:"required"`
}

func (s *NoteService) Update(ctx context.Context, in UpdateNoteInput) (*domain.Note, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, msgAllFieldsRequired, err)
	}

	n, err := s.notes.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.NotFound(msgNoteNotFound)
	}
	if err := s.requireUser(ctx, in.User); err != nil {
		return nil, err
	}

	dup, err := s.notes.FindByTitle(ctx, in.Title)
	if err != nil {
		return nil, err
	}
	if dup != nil && dup.ID != in.ID {
		return nil, apperr.Conflict(msgDuplicateNoteTitle)
	}

	n.UserID = in.User
	n.Title = in.Title
	n.Text = in.Text
	n.Completed = *in.Completed

	if err := s.notes.Update(ctx, n); err != nil {
		switch {
		case errors.Is(err, domain.ErrForeignKey):
			return nil, apperr.Wrap(apperr.KindNotFound, msgUserNotFound, err)
		case errors.Is(err, domain.ErrNotFound):
			return nil, apperr.Wrap(apperr.KindNotFound, msgNoteNotFound, err)
		}
		return nil, err
	}
	return n, nil
}

type DeleteNoteInput struct {
	ID string `json:"id" form:"id" validate:"required"`
}

type DeleteNoteResult struct {
	Title string
	ID    string
}

func (r DeleteNoteResult) String() string {
	return fmt.Sprintf("Note '%s' with ID %s deleted", r.Title, r.ID)
}

func (s *NoteService) Delete(ctx context.Context, in DeleteNoteInput) (DeleteNoteResult, error) {
	if err := validate.Struct(in); err != nil {
		return DeleteNoteResult{}, apperr.Wrap(apperr.KindInvalidInput, msgNoteIDRequired, err)
	}

	n, err := s.notes.FindByID(ctx, in.ID)
	if err != nil {
		return DeleteNoteResult{}, err
	}
	if n == nil {
		return DeleteNoteResult{}, apperr.NotFound(msgNoteNotFound)
	}
	if err := s.notes.Delete(ctx, n); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return DeleteNoteResult{}, apperr.Wrap(apperr.KindNotFound, msgNoteNotFound, err)
		}
		return DeleteNoteResult{}, err
	}
	return DeleteNoteResult{Title: n.Title, ID: n.ID}, nil
}

func (s *NoteService) requireUser(ctx context.Context, id string) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.NotFound(msgUserNotFound)
	}
	return nil
}
