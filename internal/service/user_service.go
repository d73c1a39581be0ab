package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"technotes-api/internal/apperr"
	"technotes-api/internal/core/cache"
	"technotes-api/internal/domain"
	"technotes-api/pkg/utils"
)

const usersCacheKey = "users:all"

const (
	msgAllFieldsRequired = "All fields are required"
	msgUserIDRequired    = "User ID required"
	msgNoUsers           = "No users found"
	msgUserNotFound      = "User not found"
	msgDuplicateUsername = "Duplicate username"
	msgUserHasNotes      = "User has assigned notes"
)

var validate = validator.New()

type UserService struct {
	users    domain.UserRepository
	notes    domain.NoteRepository
	cache    cache.Store
	cacheTTL time.Duration
}

type Option func(*UserService)

// WithListCache 开启 List 读穿缓存，写操作成功后换代
func WithListCache(c cache.Store, ttl time.Duration) Option {
	return func(s *UserService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func NewUserService(users domain.UserRepository, notes domain.NoteRepository, opts ...Option) *UserService {
	s := &UserService{users: users, notes: notes}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List 空集合视为错误（NoData），不返回空数组
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	if s.cache == nil {
		return s.list(ctx)
	}
	gen, err := s.cache.Version(ctx, usersCacheKey)
	if err != nil {
		// 缓存不可用直接查库
		return s.list(ctx)
	}
	key := fmt.Sprintf("%s:%d", usersCacheKey, gen)
	out, err := cache.GetOrLoadJSON(s.cache, ctx, key, s.cacheTTL, func(ctx context.Context) (*[]domain.User, error) {
		users, err := s.list(ctx)
		if err != nil {
			return nil, err
		}
		return &users, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil || len(*out) == 0 {
		return nil, apperr.NoData(msgNoUsers)
	}
	return *out, nil
}

func (s *UserService) list(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperr.NoData(msgNoUsers)
	}
	return users, nil
}

type CreateUserInput struct {
	Username string   `json:"username" form:"username" validate:"required"`
	Password string   `json:"password" form:"password" validate:"required"`
	Roles    []string `json:"roles"    form:"roles" validate:"required,min=1"`
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, msgAllFieldsRequired, err)
	}

	dup, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return nil, apperr.Conflict(msgDuplicateUsername)
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		Username: in.Username,
		Password: hashed,
		Roles:    in.Roles,
		Active:   true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, apperr.Wrap(apperr.KindConflict, msgDuplicateUsername, err)
		}
		return nil, err
	}
	s.invalidate(ctx)
	return u, nil
}

// UpdateUserInput Password 为空表示不修改
type UpdateUserInput struct {
	ID       string   `json:"id"       form:"id" validate:"required"`
	Username string   `json:"username" form:"username" validate:"required"`
	Roles    []string `json:"roles"    form:"roles" validate:"required,min=1"`
	Active   *bool    `json:"active"   form:"active" validate:"required"`
	Password string   `json:"password" form:"password"`
}

func (s *UserService) Update(ctx context.Context, in UpdateUserInput) (*domain.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, msgAllFieldsRequired, err)
	}

	u, err := s.users.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound(msgUserNotFound)
	}

	// 允许保持自己的用户名
	dup, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if dup != nil && dup.ID != in.ID {
		return nil, apperr.Conflict(msgDuplicateUsername)
	}

	u.Username = in.Username
	u.Roles = in.Roles
	u.Active = *in.Active
	if in.Password != "" {
		hashed, err := utils.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.Password = hashed
	}

	if err := s.users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateKey):
			return nil, apperr.Wrap(apperr.KindConflict, msgDuplicateUsername, err)
		case errors.Is(err, domain.ErrNotFound):
			return nil, apperr.Wrap(apperr.KindNotFound, msgUserNotFound, err)
		}
		return nil, err
	}
	s.invalidate(ctx)
	return u, nil
}

type DeleteUserInput struct {
	ID string `json:"id" form:"id" validate:"required"`
}

// DeleteResult 删除前捕获的用户信息
type DeleteResult struct {
	Username string
	ID       string
}

func (r DeleteResult) String() string {
	return fmt.Sprintf("Username %s with ID %s deleted", r.Username, r.ID)
}

// Delete 先查 notes 再删：检查与删除之间不是原子的，外键约束兜底
func (s *UserService) Delete(ctx context.Context, in DeleteUserInput) (DeleteResult, error) {
	if err := validate.Struct(in); err != nil {
		return DeleteResult{}, apperr.Wrap(apperr.KindInvalidInput, msgUserIDRequired, err)
	}

	note, err := s.notes.FindOneByUser(ctx, in.ID)
	if err != nil {
		return DeleteResult{}, err
	}
	if note != nil {
		return DeleteResult{}, apperr.HasDependents(msgUserHasNotes)
	}

	u, err := s.users.FindByID(ctx, in.ID)
	if err != nil {
		return DeleteResult{}, err
	}
	if u == nil {
		return DeleteResult{}, apperr.NotFound(msgUserNotFound)
	}

	if err := s.users.Delete(ctx, u); err != nil {
		switch {
		case errors.Is(err, domain.ErrForeignKey):
			return DeleteResult{}, apperr.Wrap(apperr.KindHasDependents, msgUserHasNotes, err)
		case errors.Is(err, domain.ErrNotFound):
			return DeleteResult{}, apperr.Wrap(apperr.KindNotFound, msgUserNotFound, err)
		}
		return DeleteResult{}, err
	}
	s.invalidate(ctx)
	return DeleteResult{Username: u.Username, ID: u.ID}, nil
}

func (s *UserService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	// 失败只会让列表在 TTL 内偏旧
	_ = s.cache.Bump(ctx, usersCacheKey)
}
