package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"technotes-api/internal/domain"
	"technotes-api/internal/service"
	"technotes-api/internal/transport/http/ez"
	"technotes-api/internal/transport/http/response"
)

const msgAllFieldsRequired = "All fields are required"

type UserHandler struct{ svc *service.UserService }

func NewUserHandler(svc *service.UserService) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Priority() int { return 10 }

// MountAPI /users：GET 列表 / POST 新建 / PATCH 更新 / DELETE 删除（id 在 body）
func (h *UserHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g.Group("/users"))

	ez.Register(e, ez.Action[struct{}, []domain.User]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.User, error) {
			return h.svc.List(c.Request.Context())
		},
	})

	ez.Register(e, ez.Action[service.CreateUserInput, response.Msg]{
		Method:     http.MethodPost,
		Path:       "",
		Binder:     ez.BindBody,
		Status:     http.StatusCreated,
		InvalidMsg: msgAllFieldsRequired,
		Handler: func(c *gin.Context, in *service.CreateUserInput) (response.Msg, error) {
			u, err := h.svc.Create(c.Request.Context(), *in)
			if err != nil {
				return response.Msg{}, err
			}
			return response.Message("New user " + u.Username + " created."), nil
		},
	})

	ez.Register(e, ez.Action[service.UpdateUserInput, response.Msg]{
		Method:     http.MethodPatch,
		Path:       "",
		Binder:     ez.BindBody,
		InvalidMsg: msgAllFieldsRequired,
		Handler: func(c *gin.Context, in *service.UpdateUserInput) (response.Msg, error) {
			u, err := h.svc.Update(c.Request.Context(), *in)
			if err != nil {
				return response.Msg{}, err
			}
			return response.Message(u.Username + " updated"), nil
		},
	})

	ez.Register(e, ez.Action[service.DeleteUserInput, string]{
		Method:     http.MethodDelete,
		Path:       "",
		Binder:     ez.BindBody,
		InvalidMsg: "User ID required",
		Handler: func(c *gin.Context, in *service.DeleteUserInput) (string, error) {
			res, err := h.svc.Delete(c.Request.Context(), *in)
			if err != nil {
				return "", err
			}
			return res.String(), nil
		},
	})
}
