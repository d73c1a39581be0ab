package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"technotes-api/internal/service"
	"technotes-api/internal/transport/http/ez"
	"technotes-api/internal/transport/http/response"
)

type NoteHandler struct{ svc *service.NoteService }

func NewNoteHandler(svc *service.NoteService) *NoteHandler { return &NoteHandler{svc: svc} }

func (h *NoteHandler) Priority() int { return 20 }

func (h *NoteHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g.Group("/notes"))

	ez.Register(e, ez.Action[struct{}, []service.NoteView]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]service.NoteView, error) {
			return h.svc.List(c.Request.Context())
		},
	})

	ez.Register(e, ez.Action[service.CreateNoteInput, response.Msg]{
		Method:     http.MethodPost,
		Path:       "",
		Binder:     ez.BindBody,
		Status:     http.StatusCreated,
		InvalidMsg: msgAllFieldsRequired,
		Handler: func(c *gin.Context, in *service.CreateNoteInput) (response.Msg, error) {
			if _, err := h.svc.Create(c.Request.Context(), *in); err != nil {
				return response.Msg{}, err
			}
			return response.Message("New note created"), nil
		},
	})

	ez.Register(e, ez.Action[service.UpdateNoteInput, response.Msg]{
		Method:     http.MethodPatch,
		Path:       "",
		Binder:     ez.BindBody,
		InvalidMsg: msgAllFieldsRequired,
		Handler: func(c *gin.Context, in *service.UpdateNoteInput) (response.Msg, error) {
			n, err := h.svc.Update(c.Request.Context(), *in)
			if err != nil {
				return response.Msg{}, err
			}
			return response.Message("'" + n.Title + "' updated"), nil
		},
	})

	ez.Register(e, ez.Action[service.DeleteNoteInput, string]{
		Method:     http.MethodDelete,
		Path:       "",
		Binder:     ez.BindBody,
		InvalidMsg: "Note ID required",
		Handler: func(c *gin.Context, in *service.DeleteNoteInput) (string, error) {
			res, err := h.svc.Delete(c.Request.Context(), *in)
			if err != nil {
				return "", err
			}
			return res.String(), nil
		},
	})
}
