package logger

import (
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 事件日志文件名
const (
	ReqLog   = "reqLog.log"
	ErrLog   = "errLog.log"
	DBErrLog = "dbErrLog.log"
)

// EventTimeLayout ddMMyyyy<TAB>HH:mm:ss
const EventTimeLayout = "02012006\t15:04:05"

// EventLog 按文件名分流的纯文本事件日志，每行：时间 \t 事件 uuid \t 消息
type EventLog struct {
	dir    string
	rotate FileRotate

	mu    sync.Mutex
	sinks map[string]*zap.Logger
}

func NewEventLog(dir string, rotate FileRotate) *EventLog {
	return &EventLog{dir: dir, rotate: rotate, sinks: map[string]*zap.Logger{}}
}

// Write 每条事件现生成 id，不用客户端能控制的值；写失败不向调用方报告
func (e *EventLog) Write(file, msg string) {
	if e == nil {
		return
	}
	e.sink(file).Info(uuid.NewString() + "\t" + msg)
}

func (e *EventLog) sink(file string) *zap.Logger {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.sinks[file]; ok {
		return l
	}
	r := e.rotate
	r.Filename = filepath.Join(e.dir, file)

	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		EncodeTime:       zapcore.TimeEncoderOfLayout(EventTimeLayout),
		ConsoleSeparator: "\t",
		LineEnding:       zapcore.DefaultLineEnding,
	})
	l := zap.New(zapcore.NewCore(enc, zapcore.AddSync(newRotator(r)), zapcore.DebugLevel))
	e.sinks[file] = l
	return l
}

func (e *EventLog) Sync() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range e.sinks {
		_ = l.Sync()
	}
}
