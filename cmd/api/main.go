package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"technotes-api/internal/core/cache"
	"technotes-api/internal/core/config"
	"technotes-api/internal/core/database"
	"technotes-api/internal/core/logger"
	"technotes-api/internal/core/server"
	"technotes-api/internal/repo"
	"technotes-api/internal/service"
	"technotes-api/internal/transport/http/handler"
	"technotes-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	rotate := logger.FileRotate{
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}
	// log.dir 为空时运维日志只打 stdout
	var (
		log     *zap.Logger
		cleanup func()
	)
	if cfg.Log.Dir == "" {
		log, cleanup = logger.New(cfg.Log.Level, cfg.Log.JSON)
	} else {
		appRotate := rotate
		appRotate.Filename = filepath.Join(cfg.Log.Dir, "app.log")
		log, cleanup = logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, appRotate)
	}
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)

	events := logger.NewEventLog(cfg.Log.Dir, rotate)
	defer events.Sync()

	// 数据库（失败写 dbErrLog 后 Fatal）
	db := mustOpenDB(cfg, log, events)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	users := repo.NewUserRepo(db)
	notes := repo.NewNoteRepo(db)

	var opts []service.Option
	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()
		if err != nil {
			// 缓存可选，连不上就直接查库
			log.Warn("redis unavailable, user list cache disabled", zap.Error(err))
			_ = c.Close()
		} else {
			defer c.Close()
			opts = append(opts, service.WithListCache(c, time.Duration(cfg.Redis.TTLSec)*time.Second))
			log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	reg := router.NewRegistry(
		handler.NewUserHandler(service.NewUserService(users, notes, opts...)),
		handler.NewNoteHandler(service.NewNoteService(notes, users)),
	)
	r := router.NewAPIEngine(log, events, cfg, reg)

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
		log,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("technotes api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.Strings("origins", cfg.CORS.AllowedOrigins),
	)

	// 优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("technotes api stopped with error", zap.Error(err))
		return
	}
	log.Info("technotes api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger, events *logger.EventLog) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Log:                l,
	})
	if err == nil {
		err = ping(db)
	}
	if err != nil {
		events.Write(logger.DBErrLog, cfg.DB.Driver+": "+err.Error())
		events.Sync()
		l.Fatal("db open", zap.Error(err))
	}
	return db
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
