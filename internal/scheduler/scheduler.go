package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/LJTian/NewsNow/internal/collector"
	"github.com/LJTian/NewsNow/internal/processor"
	"github.com/LJTian/NewsNow/internal/registry"
	"github.com/LJTian/NewsNow/internal/storage"
)

// ErrNoFetcher 表示该 ID 没有对应的采集器
var ErrNoFetcher = errors.New("scheduler: no fetcher for source")

type Options struct {
	// 同时抓取的数据源上限
	Concurrency int
	// 单个数据源一次抓取的超时
	Timeout time.Duration
	// Start 之后首轮采集的延迟
	StartupDelay time.Duration
}

type Scheduler struct {
	cron      *cron.Cron
	reg       *registry.Registry
	fetchers  map[string]collector.Fetcher
	processor *processor.SimpleProcessor
	repo      storage.Repository
	opts      Options
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
	startup  *time.Timer
	// 首轮采集结束或被取消后关闭
	startupDone chan struct{}
}

// Report 汇总一轮采集的结果
type Report struct {
	OK     []string
	Failed map[string]error
	// 另一轮采集仍在抓取而本轮跳过的数据源
	Skipped []string
}

// New 按注册表里的轮询周期为每组数据源注册一个 @every 任务；没有采集器的数据源跳过
func New(reg *registry.Registry, fetchers map[string]collector.Fetcher, p *processor.SimpleProcessor, repo storage.Repository, opts Options) (*Scheduler, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.StartupDelay < 0 {
		opts.StartupDelay = 0
	}

	logger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))

	s := &Scheduler{
		cron:      c,
		reg:       reg,
		fetchers:  fetchers,
		processor: p,
		repo:      repo,
		opts:      opts,
		now:       time.Now,
		inflight:  make(map[string]bool),
	}

	for _, g := range s.groups() {
		ids := g.ids
		spec := "@every " + g.interval.String()
		if _, err := c.AddFunc(spec, func() { s.run(context.Background(), ids) }); err != nil {
			return nil, fmt.Errorf("scheduler: add %s: %w", spec, err)
		}
		log.Debugf("scheduled %d sources %s", len(ids), spec)
	}
	return s, nil
}

type group struct {
	interval time.Duration
	ids      []string
}

func (s *Scheduler) groups() []group {
	byInterval := make(map[time.Duration][]string)
	for _, id := range s.Sources() {
		d, _ := s.reg.Get(id)
		byInterval[d.Interval] = append(byInterval[d.Interval], id)
	}
	out := make([]group, 0, len(byInterval))
	for iv, ids := range byInterval {
		out = append(out, group{interval: iv, ids: ids})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].interval < out[j].interval })
	return out
}

// Sources 返回参与调度的规范 ID，按注册顺序
func (s *Scheduler) Sources() []string {
	var out []string
	for _, d := range s.reg.Canonical() {
		if _, ok := s.fetchers[d.ID]; ok {
			out = append(out, d.ID)
		}
	}
	return out
}

func (s *Scheduler) Cron() *cron.Cron {
	return s.cron
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮采集，避免与用户首次打开页面的请求争抢资源
	done := make(chan struct{})
	s.mu.Lock()
	s.startupDone = done
	s.startup = time.AfterFunc(s.opts.StartupDelay, func() {
		defer close(done)
		s.RunOnce(context.Background())
	})
	s.mu.Unlock()
}

// Stop 停止调度，返回的 context 在正在执行的任务结束后完成
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	// 定时器尚未触发时回调不会再执行，由这里关闭 done
	if s.startup != nil && s.startup.Stop() {
		close(s.startupDone)
	}
	s.mu.Unlock()
	return s.cron.Stop()
}

// Shutdown 停止调度并等待定时任务和首轮采集结束，ctx 到期时提前返回
func (s *Scheduler) Shutdown(ctx context.Context) error {
	cronDone := s.Stop().Done()
	s.mu.Lock()
	startupDone := s.startupDone
	s.mu.Unlock()

	select {
	case <-cronDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	if startupDone == nil {
		return nil
	}
	select {
	case <-startupDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 对全部数据源执行一轮采集，方便手动触发
func (s *Scheduler) RunOnce(ctx context.Context) Report {
	return s.run(ctx, s.Sources())
}

// RunSources 只采集给定的 ID，别名先解析到规范 ID
func (s *Scheduler) RunSources(ctx context.Context, ids []string) Report {
	seen := make(map[string]bool, len(ids))
	canonical := make([]string, 0, len(ids))
	for _, id := range ids {
		id = s.reg.Resolve(id)
		if !seen[id] {
			seen[id] = true
			canonical = append(canonical, id)
		}
	}
	return s.run(ctx, canonical)
}

func (s *Scheduler) run(ctx context.Context, ids []string) Report {
	log.Printf("start collect job (%d sources)...", len(ids))

	var (
		mu     sync.Mutex
		report = Report{Failed: make(map[string]error)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, id := range ids {
		// 首轮采集和各组定时任务可能同时命中同一个数据源
		if !s.acquire(id) {
			log.WithField("source", id).Debug("still collecting, skip")
			report.Skipped = append(report.Skipped, id)
			continue
		}
		g.Go(func() error {
			defer s.release(id)
			_, err := s.Collect(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[id] = err
			} else {
				report.OK = append(report.OK, id)
			}
			// 单个数据源失败不影响其他数据源
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.OK)
	log.Printf("collect job done, ok=%d failed=%d skipped=%d", len(report.OK), len(report.Failed), len(report.Skipped))
	return report
}

func (s *Scheduler) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] {
		return false
	}
	s.inflight[id] = true
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

// Collect 抓取单个数据源，处理后写入快照；失败时记录错误并保留旧快照
func (s *Scheduler) Collect(ctx context.Context, id string) ([]collector.Item, error) {
	f, ok := s.fetchers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFetcher, id)
	}
	logger := log.WithField("source", id)

	fctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	items, err := f.Fetch(fctx)
	var records []processor.Record
	if err == nil {
		records = s.processor.Process(id, items)
		if len(records) == 0 {
			err = collector.ErrEmptyResult
		}
	}
	if err != nil {
		logger.Warnf("fetch error: %v", err)
		if rerr := s.repo.RecordFailure(ctx, id, err); rerr != nil {
			logger.Warnf("record failure error: %v", rerr)
		}
		return nil, err
	}

	// 存储失败时仍返回本次结果
	if err := s.repo.SaveSnapshot(ctx, id, records, s.now()); err != nil {
		logger.Warnf("save snapshot error: %v", err)
	} else {
		logger.Infof("done, fetched=%d saved=%d", len(items), len(records))
	}
	return processor.Items(records), nil
}
