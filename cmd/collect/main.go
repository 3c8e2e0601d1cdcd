package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"

	"github.com/LJTian/NewsNow/internal/collector"
	"github.com/LJTian/NewsNow/internal/config"
	"github.com/LJTian/NewsNow/internal/processor"
	"github.com/LJTian/NewsNow/internal/registry"
	"github.com/LJTian/NewsNow/internal/scheduler"
	"github.com/LJTian/NewsNow/internal/storage"
	"github.com/LJTian/NewsNow/internal/waf"
)

type CLI struct {
	Sources     []string      `arg:"" optional:"" help:"要抓取的数据源 ID，留空表示全部"`
	Save        bool          `help:"把结果写入 POSTGRES_DSN 指定的数据库"`
	List        bool          `help:"只列出已注册的数据源"`
	Timeout     time.Duration `default:"15s" help:"单个数据源的抓取超时"`
	Concurrency int           `default:"8" help:"同时抓取的数据源数量"`
	Pretty      bool          `default:"true" negatable:"" help:"缩进输出 JSON"`
}

type result struct {
	Items []collector.Item `json:"items,omitempty"`
	Error string           `json:"error,omitempty"`
}

// 一个仅执行一次采集任务的命令行入口：适合手动触发采集或排查单个数据源
func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("collect"),
		kong.Description("抓取一次热榜数据源并以 JSON 输出"),
		kong.UsageOnError(),
	)

	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel)
	reg := registry.Default()

	if cli.List {
		for _, d := range reg.Canonical() {
			fmt.Printf("%-24s %s\n", d.ID, d.DisplayName())
		}
		return
	}

	var repo storage.Repository = storage.NewMemoryStore()
	if cli.Save {
		if cfg.MemoryMode() {
			kctx.Fatalf("--save requires POSTGRES_DSN")
		}
		store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("init store failed: %v", err)
		}
		if err := store.EnsureSources(context.Background(), reg); err != nil {
			log.Fatalf("ensure sources failed: %v", err)
		}
		repo = store
	}

	coll := collector.New(nil, nil)
	coll.WAF = waf.NewSolver(coll.Client, "https://www.36kr.com", nil)

	s, err := scheduler.New(reg, coll.Fetchers(), processor.NewSimpleProcessor(), repo, scheduler.Options{
		Concurrency: cli.Concurrency,
		Timeout:     cli.Timeout,
	})
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	ctx := context.Background()
	var report scheduler.Report
	if len(cli.Sources) == 0 {
		report = s.RunOnce(ctx)
	} else {
		report = s.RunSources(ctx, cli.Sources)
	}

	out := make(map[string]result, len(report.OK)+len(report.Failed))
	for _, id := range report.OK {
		snap, _, err := repo.LatestSnapshot(ctx, id)
		if err != nil {
			out[id] = result{Error: err.Error()}
			continue
		}
		out[id] = result{Items: snap.Items}
	}
	for id, ferr := range report.Failed {
		out[id] = result{Error: ferr.Error()}
	}

	enc := json.NewEncoder(os.Stdout)
	if cli.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode output failed: %v", err)
	}
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}
