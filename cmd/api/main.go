package main

import (
	"context"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/LJTian/NewsNow/internal/api"
	"github.com/LJTian/NewsNow/internal/collector"
	"github.com/LJTian/NewsNow/internal/column"
	"github.com/LJTian/NewsNow/internal/config"
	"github.com/LJTian/NewsNow/internal/preference"
	"github.com/LJTian/NewsNow/internal/processor"
	"github.com/LJTian/NewsNow/internal/registry"
	"github.com/LJTian/NewsNow/internal/scheduler"
	"github.com/LJTian/NewsNow/internal/storage"
	"github.com/LJTian/NewsNow/internal/waf"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel)

	reg := registry.Default()

	var (
		repo     storage.Repository
		kv       preference.KV
		wafCache waf.TokenCache = waf.NewMemoryCache()
	)
	if cfg.MemoryMode() {
		log.Println("POSTGRES_DSN not set, running in memory mode")
		repo = storage.NewMemoryStore()
		kv = preference.NewMemoryKV()
		if cfg.RedisAddr != "" {
			wafCache = &waf.RedisCache{Client: storage.NewRedis(cfg.RedisAddr)}
		}
	} else {
		store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("init store failed: %v", err)
		}
		// 确保注册表中的数据源都存在
		if err := store.EnsureSources(context.Background(), reg); err != nil {
			log.Fatalf("ensure sources failed: %v", err)
		}
		repo = store
		kv = store.Preferences()
		if store.Redis != nil {
			wafCache = &waf.RedisCache{Client: store.Redis}
		}
	}

	coll := collector.New(nil, nil)
	solver := waf.NewSolver(coll.Client, "https://www.36kr.com", wafCache)
	solver.TTL = cfg.WAFTTL
	coll.WAF = solver

	s, err := scheduler.New(reg, coll.Fetchers(), processor.NewSimpleProcessor(), repo, scheduler.Options{
		Concurrency:  cfg.FetchConcurrency,
		Timeout:      cfg.FetchTimeout,
		StartupDelay: 15 * time.Second,
	})
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	if cfg.EnableCron {
		s.Start()
	}

	reconciler := preference.NewReconciler(reg, column.Compose(reg))
	apiServer := api.NewServer(reg, repo, s, preference.NewStore(kv, reconciler), reconciler)

	r := gin.Default()
	apiServer.RegisterRoutes(r)

	// 若配置了前端目录，则托管 SPA 静态文件并做 fallback
	if cfg.WebRoot != "" {
		indexFile := filepath.Join(cfg.WebRoot, "index.html")
		r.Static("/assets", filepath.Join(cfg.WebRoot, "assets"))
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet {
				c.Status(http.StatusNotFound)
				return
			}
			c.File(indexFile)
		})
	}

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("starting api server at %s ...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server exit: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down ...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("server shutdown: %v", err)
	}
	// 与 HTTP 共用同一个超时，等待正在写入的采集任务结束
	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Warnf("scheduler shutdown: %v", err)
	}
}
