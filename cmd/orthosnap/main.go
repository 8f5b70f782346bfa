package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/orthosnap/internal/app/run"
	"github.com/John-Robertt/orthosnap/internal/backend/extern"
	"github.com/John-Robertt/orthosnap/internal/config"
	"github.com/John-Robertt/orthosnap/internal/domain"
	"github.com/John-Robertt/orthosnap/internal/infra/fsx"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	progressW, interactive := pickProgressWriter()
	log := newLogger(interactive)

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		Source:    ra.Source,
		Export:    ra.Export,
		ExportSet: ra.ExportSet,
		Apply:     ra.Apply,
		ApplySet:  ra.ApplySet,
	})
	if err != nil {
		emitReport(reportForConfigError(ra, err))
		return 1
	}
	if eff.Apply && len(eff.BackendCmd) == 0 {
		emitReport(reportForConfigError(ra, &config.Error{
			Code: config.ErrCodeInvalid,
			Err:  fmt.Errorf("apply 运行需要配置 backend_cmd（渲染宿主命令）"),
		}))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var deps run.Deps
	if eff.Apply {
		bridge, err := extern.Start(ctx, eff.BackendCmd, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "启动渲染宿主失败：%v\n", err)
			return 1
		}
		defer func() {
			if err := bridge.Close(); err != nil {
				log.Warn().Err(err).Msg("渲染宿主退出异常")
			}
		}()
		deps = run.Deps{Scene: bridge, Importer: bridge, Renderer: bridge}
	}

	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.ExecuteWithObserver(ctx, eff, deps, log, obs)

	// apply：报告落盘到导出目录；dry-run 禁止写任何文件。
	if eff.Apply {
		if err := writeReportFile(eff.ExportRoot, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 orthosnap-report.json 失败：%v\n", err)
			emitReport(rr)
			return 1
		}
	}

	emitReport(rr)
	if interactive && eff.Apply {
		fmt.Fprintf(progressW, "report: %s\n", filepath.Join(eff.ExportRoot, "orthosnap-report.json"))
	}
	if rr.Summary.Failed == 0 {
		return 0
	}
	return 1
}

type runArgs struct {
	Source string

	Export    string
	ExportSet bool

	Apply    bool
	ApplySet bool
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--export":
			if i+1 >= len(args) {
				return runArgs{}, fmt.Errorf("--export 需要一个目录")
			}
			i++
			ra.Export = args[i]
			ra.ExportSet = true
		case strings.HasPrefix(a, "--export="):
			ra.Export = strings.TrimPrefix(a, "--export=")
			ra.ExportSet = true
		case a == "--apply":
			ra.Apply = true
			ra.ApplySet = true
		case strings.HasPrefix(a, "--apply="):
			v := strings.TrimPrefix(a, "--apply=")
			switch v {
			case "true":
				ra.Apply = true
			case "false":
				ra.Apply = false
			default:
				return runArgs{}, fmt.Errorf("--apply 只能是 true 或 false，实际是 %q", v)
			}
			ra.ApplySet = true
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ra.Source != "" {
				return runArgs{}, fmt.Errorf("重复的源目录：%q 与 %q", ra.Source, a)
			}
			ra.Source = a
		}
	}

	if ra.ExportSet && strings.TrimSpace(ra.Export) == "" {
		return runArgs{}, fmt.Errorf("--export 不能为空")
	}

	return ra, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  orthosnap run [source] [--export DIR] [--apply[=true|false]]

命令：
  run    扫描模型并批量拍摄正交快照（默认 dry-run）

使用 "orthosnap run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  orthosnap run [source] [--export DIR] [--apply[=true|false]]

参数：
  source      模型源目录（未指定则读当前目录下的 orthosnap.json）
  --export    导出目录（覆盖配置文件的 export 字段）
  --apply     实际渲染并落盘（默认 dry-run 只规划路径）；支持 --apply=false 覆盖配置
  -h, --help  显示帮助

其余设置（方向、缩放、切片、命名等）只在 orthosnap.json 里配置。
`)
}

func newLogger(interactive bool) zerolog.Logger {
	// 日志永远走 stderr：stdout 的 JSON 输出契约不容污染。
	var w io.Writer = os.Stderr
	if interactive {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	level := zerolog.InfoLevel
	if os.Getenv("ORTHOSNAP_DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：processed=%d planned=%d failed=%d\n",
			rr.Summary.Processed, rr.Summary.Planned, rr.Summary.Failed,
		)
		if rr.Summary.Failed > 0 {
			for _, it := range rr.Items {
				if it.Status != domain.StatusFailed {
					continue
				}
				key := it.Asset
				if key == "" {
					key = "<run>"
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：processed=%d planned=%d failed=%d\n",
		rr.Summary.Processed, rr.Summary.Planned, rr.Summary.Failed,
	)
}

func reportForConfigError(ra runArgs, err error) domain.RunReport {
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	now := time.Now().UTC()
	rr := domain.RunReport{
		DryRun:     !(ra.ApplySet && ra.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.AssetResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
			Images:    []domain.ImageResult{},
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(exportRoot string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(exportRoot, "orthosnap-report.json", b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
