package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"content-factory/internal/cache"
	"content-factory/internal/config"
	"content-factory/internal/discovery"
	"content-factory/internal/llm"
	"content-factory/internal/logging"
	"content-factory/internal/normalize"
	"content-factory/internal/output"
	"content-factory/internal/render"
)

type Options struct {
	Inputs     []string
	ConfigPath string
	OutputDir  string
	// Platforms overrides the configured default platform; several may be given.
	Platforms []string
	Budget    int
	Tags      []string
	Seeds     []string
	Images    []string
	Rewrite   bool
	// AllowIncomplete writes posts that fail the completeness check, marked incomplete.
	AllowIncomplete bool
	Concurrency     int
	// MaxRetries < 0 keeps the configured value.
	MaxRetries int
	LogFile    string
	Verbose    bool
	CWD        string
	Stdout     io.Writer
	Stderr     io.Writer
	// Rewriter replaces the configured chat client.
	Rewriter llm.Rewriter
}

type Result struct {
	Succeeded  int
	Failed     int
	Incomplete int
	Skipped    int
	Outputs    []string
	Balance    string
}

func (r *Result) merge(o Result) {
	r.Succeeded += o.Succeeded
	r.Failed += o.Failed
	r.Incomplete += o.Incomplete
	r.Skipped += o.Skipped
	r.Outputs = append(r.Outputs, o.Outputs...)
}

type target struct {
	name     string
	cfg      config.PlatformConfig
	pipeline *normalize.Pipeline
}

type session struct {
	opts     Options
	cfg      *config.Config
	paths    *config.Paths
	cwd      string
	logger   *logging.Logger
	closers  []io.Closer
	targets  []target
	renderer *render.WeChatRenderer
	rewriter llm.Rewriter
	provider config.ProviderConfig
	apiKey   string
	cache    *cache.Store
	namer    *output.Namer
	outDir   string
}

func Run(ctx context.Context, opts Options) (Result, error) {
	s, err := newSession(opts)
	if err != nil {
		return Result{}, err
	}
	defer s.close()

	found, err := discovery.Discover(s.absInputs())
	if err != nil {
		return Result{}, err
	}
	for _, w := range found.Warnings {
		s.logger.Emit(logging.Event{Level: "warn", Event: "scan_warning", Error: w})
	}

	res, err := s.runBatch(ctx, found.Files)
	if s.rewriter != nil && opts.Rewriter == nil && s.cfg.Provider == "deepseek" {
		client := &http.Client{Timeout: 15 * time.Second}
		raw, balErr := fetchDeepSeekBalance(ctx, client, s.provider.BaseURL, s.apiKey, 0)
		if balErr != nil {
			raw = ""
		}
		res.Balance = FormatBalanceForSummary(raw)
	}
	s.logger.Emit(logging.Event{Event: "finished", Error: summaryLine(res)})
	return res, err
}

func summaryLine(res Result) string {
	line := fmt.Sprintf("成功 %d，失败 %d，未通过完整性检查 %d", res.Succeeded, res.Failed, res.Incomplete)
	if res.Skipped > 0 {
		line += fmt.Sprintf("，跳过 %d", res.Skipped)
	}
	if res.Balance != "" {
		line += "，余额 " + res.Balance
	}
	return line
}

func newSession(opts Options) (*session, error) {
	cwd := strings.TrimSpace(opts.CWD)
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("读取当前目录失败：%w", err)
		}
		cwd = wd
	}

	cfg, paths, err := config.Load(opts.ConfigPath, cwd)
	if err != nil {
		return nil, err
	}
	overrideConfig(cfg, opts)

	targets, err := resolveTargets(cfg, opts.Platforms)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(opts.Stdout, opts.LogFile, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败：%w", err)
	}
	s := &session{
		opts:     opts,
		cfg:      cfg,
		paths:    paths,
		cwd:      cwd,
		logger:   logger.WithRunID(strings.ToLower(ulid.Make().String())),
		targets:  targets,
		renderer: render.NewWeChatRenderer(),
		namer:    output.NewNamer(nil),
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}

	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.name)
	}
	s.logger.Emit(logging.Event{Event: "startup", Provider: cfg.Provider, Platform: strings.Join(names, ",")})
	s.logger.Emit(logging.Event{Event: "config_loaded", Input: paths.ConfigSource})

	if opts.Rewrite || cfg.Rewrite.Enabled {
		if err := s.setupRewrite(); err != nil {
			s.close()
			return nil, err
		}
	}

	s.outDir = absPath(cwd, cfg.Output.Dir)
	if err := output.EnsureDir(s.outDir); err != nil {
		s.close()
		return nil, fmt.Errorf("创建输出目录失败：%w", err)
	}
	return s, nil
}

func (s *session) setupRewrite() error {
	provider, ok := s.cfg.Providers[s.cfg.Provider]
	if !ok {
		return fmt.Errorf("配置中不存在 provider：%s", s.cfg.Provider)
	}
	s.provider = provider

	if s.opts.Rewriter != nil {
		s.rewriter = s.opts.Rewriter
	} else {
		key, err := config.ResolveAPIKey(s.paths.EnvPath, s.cfg.APIKeyEnv)
		if err != nil {
			return err
		}
		s.apiKey = key
		s.rewriter = &llm.ChatRewriter{
			Client:   llm.NewClient(s.requestTimeout()),
			Provider: s.cfg.Provider,
			BaseURL:  provider.BaseURL,
			Model:    provider.Model,
			APIKey:   key,
		}
	}

	if s.cfg.Cache.Enabled && s.paths.CachePath != "" {
		store, err := cache.Open(s.paths.CachePath)
		if err != nil {
			s.logger.Emit(logging.Event{Level: "warn", Event: "cache_unavailable", Error: err.Error()})
			return nil
		}
		s.cache = store
		s.closers = append(s.closers, store)
		s.pruneCache()
	}
	return nil
}

func (s *session) pruneCache() {
	if s.cfg.Cache.MaxAgeDays < 0 {
		return
	}
	n, err := s.cache.Prune(time.Duration(s.cfg.Cache.MaxAgeDays) * 24 * time.Hour)
	if err != nil {
		s.logger.Emit(logging.Event{Level: "warn", Event: "cache_prune_failed", Error: err.Error()})
		return
	}
	if n > 0 {
		s.logger.Emit(logging.Event{Level: "info", Event: "cache_pruned", Removed: n})
	}
}

func (s *session) requestTimeout() time.Duration {
	return time.Duration(s.cfg.RequestTimeoutSec) * time.Second
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
	s.closers = nil
}

func (s *session) absInputs() []string {
	out := make([]string, 0, len(s.opts.Inputs))
	for _, in := range s.opts.Inputs {
		out = append(out, absPath(s.cwd, in))
	}
	return out
}

// runBatch processes files with at most cfg.Concurrency in flight. A fatal
// rewrite error cancels documents that have not started yet and is returned.
func (s *session) runBatch(ctx context.Context, files []string) (Result, error) {
	var (
		mu  sync.Mutex
		res Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, file := range files {
		g.Go(func() error {
			out, err := s.processFile(gctx, file)
			mu.Lock()
			res.merge(out)
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return res, err
}

func resolveTargets(cfg *config.Config, requested []string) ([]target, error) {
	names := make([]string, 0, len(requested))
	seen := map[string]struct{}{}
	for _, raw := range requested {
		for _, part := range strings.Split(raw, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		names = []string{cfg.Platform}
	}

	out := make([]target, 0, len(names))
	for _, name := range names {
		p, ok := cfg.Platforms[name]
		if !ok {
			return nil, fmt.Errorf("未知平台：%s", name)
		}
		out = append(out, target{name: name, cfg: p, pipeline: normalize.New(p.Normalize())})
	}
	return out, nil
}

func overrideConfig(cfg *config.Config, opts Options) {
	if strings.TrimSpace(opts.OutputDir) != "" {
		cfg.Output.Dir = opts.OutputDir
	}
	if opts.Concurrency > 0 {
		cfg.Concurrency = opts.Concurrency
	}
	if opts.MaxRetries >= 0 {
		cfg.MaxRetries = opts.MaxRetries
	}
}

func absPath(cwd, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cwd, p)
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
