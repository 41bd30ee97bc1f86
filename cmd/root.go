package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"content-factory/internal/app"
)

type runFlags struct {
	configArg       string
	outputDirArg    string
	platformArg     []string
	budgetArg       int
	tagsArg         []string
	seedsArg        []string
	imagesArg       []string
	rewriteArg      bool
	allowIncomplete bool
	concurrencyArg  int
	maxRetriesArg   int
	logFileArg      string
	verboseArg      bool
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(os.Stdout, os.Stderr)
	root.SetArgs(normalizeArgs(os.Args[1:]))
	return root.ExecuteContext(ctx)
}

func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &runFlags{}
	showVersion := false

	root := &cobra.Command{
		Use:           "content-factory [file_or_dir ...]",
		Short:         "把长文稿件规整为各平台可直接发布的正文",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runNormalize(stdout, stderr, flags, &showVersion),
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.CompletionOptions.HiddenDefaultCmd = true
	bindRunFlags(root, flags)
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "显示版本信息")

	normalizeCmd := &cobra.Command{
		Use:           "normalize [file_or_dir ...]",
		Short:         "规整稿件并写出 JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runNormalize(stdout, stderr, flags, &showVersion),
	}
	root.AddCommand(normalizeCmd)
	root.AddCommand(newWatchCmd(stdout, stderr, flags))
	root.AddCommand(newSetCmd(flags))

	versionCmd := &cobra.Command{
		Use:           "version",
		Short:         "显示版本信息",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(stdout)
		},
	}
	root.AddCommand(versionCmd)
	return root
}

func bindRunFlags(cmd *cobra.Command, flags *runFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configArg, "config", "", "配置文件路径，默认 ~/.content-factory/config.yaml")
	pf.StringVarP(&flags.outputDirArg, "out", "o", "", "输出目录，默认当前目录")
	pf.StringSliceVarP(&flags.platformArg, "platform", "p", nil, "目标平台，可多个（xiaohongshu、twitter、wechat）")
	pf.IntVar(&flags.budgetArg, "budget", 0, "覆盖平台字数上限")
	pf.StringSliceVar(&flags.tagsArg, "tags", nil, "额外话题，逗号分隔")
	pf.StringSliceVar(&flags.seedsArg, "seeds", nil, "关键词种子，正文出现时补为话题")
	pf.StringSliceVar(&flags.imagesArg, "images", nil, "已上传的配图 URL，排在正文图片之前")
	pf.BoolVar(&flags.rewriteArg, "rewrite", false, "调用模型按平台改写正文")
	pf.BoolVar(&flags.allowIncomplete, "allow-incomplete", false, "未通过完整性检查时仍写出结果")
	pf.IntVar(&flags.concurrencyArg, "concurrency", 0, "同时处理的稿件数量")
	pf.IntVar(&flags.maxRetriesArg, "max-retries", -1, "改写失败时的最大重试次数")
	pf.StringVar(&flags.logFileArg, "log-file", "", "NDJSON 日志文件路径")
	pf.BoolVar(&flags.verboseArg, "verbose", false, "输出详细 NDJSON（机器友好）")
}

func (f *runFlags) options(args []string, stdout, stderr io.Writer) (app.Options, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return app.Options{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	return app.Options{
		Inputs:          args,
		ConfigPath:      f.configArg,
		OutputDir:       f.outputDirArg,
		Platforms:       f.platformArg,
		Budget:          f.budgetArg,
		Tags:            f.tagsArg,
		Seeds:           f.seedsArg,
		Images:          f.imagesArg,
		Rewrite:         f.rewriteArg,
		AllowIncomplete: f.allowIncomplete,
		Concurrency:     f.concurrencyArg,
		MaxRetries:      f.maxRetriesArg,
		LogFile:         f.logFileArg,
		Verbose:         f.verboseArg,
		CWD:             cwd,
		Stdout:          stdout,
		Stderr:          stderr,
	}, nil
}

func runNormalize(stdout, stderr io.Writer, flags *runFlags, showVersion *bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if showVersion != nil && *showVersion {
			printVersion(stdout)
			return nil
		}

		if len(args) == 0 {
			_ = cmd.Help()
			return nil
		}

		opts, err := flags.options(args, stdout, stderr)
		if err != nil {
			return err
		}
		start := time.Now()
		res, err := app.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}

		finalLine := fmt.Sprintf(
			"任务完成：成功 %d，失败 %d，未通过完整性检查 %d，总耗时 %s",
			res.Succeeded,
			res.Failed,
			res.Incomplete,
			formatDurationMS(time.Since(start).Milliseconds()),
		)
		if res.Balance != "" {
			finalLine += "，余额：" + res.Balance
		}
		if res.Failed > 0 || (res.Incomplete > 0 && !flags.allowIncomplete) {
			return fmt.Errorf("%s", finalLine)
		}
		if !flags.verboseArg {
			fmt.Fprintln(stdout, finalLine)
		}
		return nil
	}
}

func formatDurationMS(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60_000 {
		return fmt.Sprintf("%.2fs", float64(ms)/1000.0)
	}
	minutes := ms / 60_000
	remainMS := ms % 60_000
	if remainMS == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm%.1fs", minutes, float64(remainMS)/1000.0)
}

var subcommands = map[string]struct{}{
	"normalize": {}, "watch": {}, "set": {}, "version": {}, "help": {}, "completion": {},
}

// valueFlags take a separate argument, which must not be mistaken for an input.
var valueFlags = map[string]struct{}{
	"--config": {}, "--out": {}, "-o": {}, "--platform": {}, "-p": {}, "--budget": {},
	"--tags": {}, "--seeds": {}, "--images": {}, "--concurrency": {}, "--max-retries": {}, "--log-file": {},
}

// normalizeArgs makes "content-factory a.md" mean "content-factory normalize a.md".
func normalizeArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	first := args[0]
	if _, ok := subcommands[first]; ok {
		return args
	}
	if first == "-h" || first == "--help" || first == "-v" || first == "--version" {
		return args
	}
	if !containsPositionalSource(args) {
		return args
	}
	return append([]string{"normalize"}, args...)
}

func containsPositionalSource(args []string) bool {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return i+1 < len(args)
		}
		if _, ok := valueFlags[arg]; ok {
			i++
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		return true
	}
	return false
}
