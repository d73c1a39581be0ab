package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"technotes-api/internal/core/config"
	"technotes-api/internal/core/logger"
	"technotes-api/internal/repo"
	"technotes-api/internal/service"
	"technotes-api/internal/testutil"
	"technotes-api/internal/transport/http/handler"
)

const allowedOrigin = "http://localhost:3000"

func init() { gin.SetMode(gin.TestMode) }

// failingModule 挂几个必然出错的路由，用来观察兜底处理
type failingModule struct{}

func (failingModule) MountAPI(g *gin.RouterGroup) {
	g.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("boom")) })
	g.GET("/teapot", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
		_ = c.Error(errors.New("short and stout"))
	})
	g.GET("/panic", func(*gin.Context) { panic("kaboom") })
}

type apiEnv struct {
	r      *gin.Engine
	ev     *logger.EventLog
	logDir string
	logs   *observer.ObservedLogs
}

func newAPIEnv(t *testing.T, mutate ...func(*config.Config)) apiEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	users := repo.NewUserRepo(db)
	notes := repo.NewNoteRepo(db)

	cfg := &config.Config{
		CORS:   config.CORS{AllowedOrigins: []string{allowedOrigin}},
		Limits: config.Limits{MaxConcurrent: 10, MaxBodyBytes: 1 << 20, TimeoutSec: 5},
	}
	for _, m := range mutate {
		m(cfg)
	}

	dir := filepath.Join(t.TempDir(), "logs")
	ev := logger.NewEventLog(dir, logger.FileRotate{MaxSizeMB: 1})
	core, logs := observer.New(zapcore.InfoLevel)

	reg := NewRegistry(
		handler.NewNoteHandler(service.NewNoteService(notes, users)),
		handler.NewUserHandler(service.NewUserService(users, notes)),
		failingModule{},
	)
	return apiEnv{
		r:      NewAPIEngine(zap.New(core), ev, cfg, reg),
		ev:     ev,
		logDir: dir,
		logs:   logs,
	}
}

func (e apiEnv) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e apiEnv) readLog(t *testing.T, name string) string {
	t.Helper()
	e.ev.Sync()
	b, err := os.ReadFile(filepath.Join(e.logDir, name))
	require.NoError(t, err)
	return string(b)
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var m struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m.Message
}

func TestUsers_CreateAndDuplicate(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/users", `{"username":"alice","password":"secret","roles":["Employee"]}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "New user alice created.", message(t, w))

	w = env.do(http.MethodPost, "/users", `{"username":"alice","password":"other","roles":["Manager"]}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Duplicate username", message(t, w))
}

func TestUsers_CreateValidation(t *testing.T) {
	env := newAPIEnv(t)

	for _, body := range []string{
		`{"username":"bob","password":"pw","roles":[]}`,
		`{"username":"bob","roles":["Employee"]}`,
		``,
		`{"username":"bob","password":"pw","roles":"Employee"}`,
	} {
		w := env.do(http.MethodPost, "/users", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "All fields are required", message(t, w), body)
	}

	w := env.do(http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No users found", message(t, w))
}

func TestUsers_ListHidesPassword(t *testing.T) {
	env := newAPIEnv(t)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/users",
		`{"username":"alice","password":"secret","roles":["Employee"]}`, nil).Code)

	w := env.do(http.MethodGet, "/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0]["username"])
	assert.Equal(t, true, rows[0]["active"])
	assert.NotContains(t, rows[0], "password")
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestUsers_UpdateRules(t *testing.T) {
	env := newAPIEnv(t)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/users",
		`{"username":"alice","password":"pw","roles":["Employee"]}`, nil).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/users",
		`{"username":"bob","password":"pw","roles":["Employee"]}`, nil).Code)

	var rows []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(env.do(http.MethodGet, "/users", "", nil).Body.Bytes(), &rows))
	ids := map[string]string{}
	for _, r := range rows {
		ids[r.Username] = r.ID
	}

	w := env.do(http.MethodPatch, "/users", `{"id":"`+ids["alice"]+`","username":"bob","roles":["Employee"],"active":true}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPatch, "/users", `{"id":"`+ids["alice"]+`","username":"alice","roles":["Employee"],"active":"yes"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "All fields are required", message(t, w))

	w = env.do(http.MethodPatch, "/users", `{"id":"missing","username":"carol","roles":["Employee"],"active":true}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User not found", message(t, w))

	w = env.do(http.MethodPatch, "/users", `{"id":"`+ids["alice"]+`","username":"alice","roles":["Manager"],"active":false}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "alice updated", message(t, w))
}

func TestUsers_DeleteBlockedByNotes(t *testing.T) {
	env := newAPIEnv(t)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/users",
		`{"username":"alice","password":"pw","roles":["Employee"]}`, nil).Code)

	var rows []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.do(http.MethodGet, "/users", "", nil).Body.Bytes(), &rows))
	uid := rows[0].ID

	w := env.do(http.MethodPost, "/notes", `{"user":"`+uid+`","title":"Printer","text":"paper jam"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "New note created", message(t, w))

	w = env.do(http.MethodDelete, "/users", `{"id":"`+uid+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User has assigned notes", message(t, w))

	w = env.do(http.MethodGet, "/notes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notes []struct {
		ID       string `json:"id"`
		Ticket   int64  `json:"ticket"`
		User     string `json:"user"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.EqualValues(t, 500, notes[0].Ticket)
	assert.Equal(t, uid, notes[0].User)
	assert.Equal(t, "alice", notes[0].Username)

	w = env.do(http.MethodDelete, "/notes", `{"id":"`+notes[0].ID+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reply string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "Note 'Printer' with ID "+notes[0].ID+" deleted", reply)

	w = env.do(http.MethodDelete, "/users", `{"id":"`+uid+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "Username alice with ID "+uid+" deleted", reply)

	w = env.do(http.MethodDelete, "/users", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User ID required", message(t, w))
}

func TestNotes_UpdateAndUnknownUser(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/notes", `{"user":"ghost","title":"T","text":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User not found", message(t, w))

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/users",
		`{"username":"alice","password":"pw","roles":["Employee"]}`, nil).Code)
	var rows []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.do(http.MethodGet, "/users", "", nil).Body.Bytes(), &rows))
	uid := rows[0].ID

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/notes", `{"user":"`+uid+`","title":"A","text":"x"}`, nil).Code)
	w = env.do(http.MethodPost, "/notes", `{"user":"`+uid+`","title":"A","text":"y"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var notes []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.do(http.MethodGet, "/notes", "", nil).Body.Bytes(), &notes))
	w = env.do(http.MethodPatch, "/notes", `{"id":"`+notes[0].ID+`","user":"`+uid+`","title":"A","text":"fixed","completed":true}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "'A' updated", message(t, w))
}

func TestCORS(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/health", "", map[string]string{"Origin": allowedOrigin})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, allowedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	// 没有 Origin 一律放行
	w = env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = env.do(http.MethodOptions, "/users", "", map[string]string{
		"Origin":                        allowedOrigin,
		"Access-Control-Request-Method": http.MethodPatch,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)

	w = env.do(http.MethodGet, "/users", "", map[string]string{"Origin": "http://evil.test"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, env.readLog(t, logger.ErrLog), "Error: Not allowed by CORS\tGET\t/users\thttp://evil.test")

	// 与 Host 同源也必须在白名单里
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "api.internal:3500"
	req.Header.Set("Origin", "http://api.internal:3500")
	w = httptest.NewRecorder()
	env.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), `"ok"`)
	assert.Contains(t, env.readLog(t, logger.ErrLog), "Error: Not allowed by CORS\tGET\t/health\thttp://api.internal:3500")
}

func TestNotFoundNegotiation(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/nope", "", map[string]string{"Accept": "text/html"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "404 Not Found")

	w = env.do(http.MethodGet, "/nope", "", map[string]string{"Accept": "application/json"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "404 Not Found", message(t, w))

	w = env.do(http.MethodGet, "/nope", "", map[string]string{"Accept": "text/plain"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "404 Not Found", w.Body.String())
}

func TestIndexAndStatic(t *testing.T) {
	env := newAPIEnv(t)

	for _, p := range []string{"/", "/index", "/index.html"} {
		w := env.do(http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, p)
		assert.Contains(t, w.Body.String(), "techNotes API", p)
	}

	w := env.do(http.MethodGet, "/css/style.css", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/css")

	w = env.do(http.MethodGet, "/health", "", nil)
	assert.JSONEq(t, `{"ok":1}`, w.Body.String())

	w = env.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestUnhandledErrors(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "boom", message(t, w))

	w = env.do(http.MethodGet, "/teapot", "", nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", message(t, w))

	w = env.do(http.MethodGet, "/panic", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "kaboom", message(t, w))

	errLog := env.readLog(t, logger.ErrLog)
	assert.Contains(t, errLog, "Error: boom\tGET\t/boom\t")
	assert.Contains(t, errLog, "Error: short and stout\tGET\t/teapot\t")
	assert.Contains(t, errLog, "PanicError: kaboom\tGET\t/panic\t")
	assert.Equal(t, 2, env.logs.FilterMessage("unhandled error").Len())

	// 业务错误不进 errLog
	env.do(http.MethodGet, "/users", "", nil)
	assert.NotContains(t, env.readLog(t, logger.ErrLog), "No users found")
}

func TestRequestLog(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/health?x=1", "", map[string]string{
		"X-Request-ID": "rid-42",
		"Origin":       allowedOrigin,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rid-42", w.Header().Get("X-Request-ID"))

	reqLog := env.readLog(t, logger.ReqLog)
	assert.Regexp(t, `(?m)^\d{8}\t\d{2}:\d{2}:\d{2}\t[0-9a-f-]{36}\tGET\t/health\?x=1\t`+regexp.QuoteMeta(allowedOrigin)+`$`, reqLog)
	assert.NotContains(t, reqLog, "rid-42")

	entries := env.logs.FilterMessage("HTTP").All()
	require.NotEmpty(t, entries)
	fields := entries[len(entries)-1].ContextMap()
	assert.Equal(t, "rid-42", fields["rid"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestBodyTooLarge(t *testing.T) {
	env := newAPIEnv(t, func(c *config.Config) { c.Limits.MaxBodyBytes = 16 })

	w := env.do(http.MethodPost, "/users", `{"username":"alice","password":"secret","roles":["Employee"]}`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, env.readLog(t, logger.ErrLog), "PayloadTooLargeError: ")
}

func TestRateLimit(t *testing.T) {
	env := newAPIEnv(t, func(c *config.Config) {
		c.Limits.RPS = 0.001
		c.Limits.Burst = 1
	})

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "", nil).Code)
	w := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", message(t, w))
}

func TestUsers_FormEncodedBody(t *testing.T) {
	env := newAPIEnv(t)
	const formType = "application/x-www-form-urlencoded"

	w := env.do(http.MethodPost, "/users", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/users",
		strings.NewReader("username=alice&password=secret123&roles=Employee&roles=Admin"))
	req.Header.Set("Content-Type", formType)
	w = httptest.NewRecorder()
	env.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "New user alice created.", message(t, w))

	var rows []struct {
		ID    string   `json:"id"`
		Roles []string `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(env.do(http.MethodGet, "/users", "", nil).Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Employee", "Admin"}, rows[0].Roles)

	req = httptest.NewRequest(http.MethodPatch, "/users",
		strings.NewReader("id="+rows[0].ID+"&username=alice&roles=Employee&active=yes"))
	req.Header.Set("Content-Type", formType)
	w = httptest.NewRecorder()
	env.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "All fields are required", message(t, w))

	req = httptest.NewRequest(http.MethodPatch, "/users",
		strings.NewReader("id="+rows[0].ID+"&username=alice&roles=Manager&active=false"))
	req.Header.Set("Content-Type", formType)
	w = httptest.NewRecorder()
	env.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "alice updated", message(t, w))
}
