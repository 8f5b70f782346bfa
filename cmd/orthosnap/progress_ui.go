package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/John-Robertt/orthosnap/internal/app/run"
	"github.com/John-Robertt/orthosnap/internal/config"
	"github.com/John-Robertt/orthosnap/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - 执行是单线程的逐资产循环，每条结果一行即可，不需要 keepalive
type progressUI struct {
	w io.Writer
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(cfg config.BatchConfig) {
	mode := "dry-run"
	modeHint := " (不导入/不渲染/不落盘)"
	if cfg.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] orthosnap run (%s)\n", time.Now().Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  source: %s\n", cfg.SourceRoot)
	fmt.Fprintf(p.w, "  export: %s\n", cfg.ExportRoot)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  directions: %s\n", formatDirections(cfg.Directions))
	fmt.Fprintf(p.w, "  scale: %s (px_per_unit=%v, max_dimension=%d, divide=%s)\n",
		cfg.Scale, cfg.PixelsPerUnit, cfg.MaxDimension, cfg.Divide,
	)
	fmt.Fprintf(p.w, "  naming: %s (suffix=%s, padding=%v)\n", cfg.Naming, cfg.Suffix, cfg.Padding)
	if cfg.StartIndex > 0 || cfg.MaxAssets > 0 {
		fmt.Fprintf(p.w, "  window: start=%d max=%d\n", cfg.StartIndex, cfg.MaxAssets)
	}
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: found=%d selected=%d (%s)\n",
			intField(fields, "found"), intField(fields, "selected"), formatShortDuration(dur),
		)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnAssetDone(idx, total int, res domain.AssetResult, dur time.Duration) {
	switch res.Status {
	case domain.StatusFailed:
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s: %s (%s)\n",
			idx, total, res.Asset, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.StatusPlanned:
		fmt.Fprintf(p.w, "[%d/%d] %s PLAN images=%d (%s)\n",
			idx, total, res.Asset, len(res.Images), formatShortDuration(dur),
		)
	default:
		tiles := 0
		for _, img := range res.Images {
			tiles += img.Tiles
		}
		fmt.Fprintf(p.w, "[%d/%d] %s OK images=%d tiles=%d (%s)\n",
			idx, total, res.Asset, len(res.Images), tiles, formatShortDuration(dur),
		)
	}
}

func formatDirections(dirs []domain.Direction) string {
	parts := make([]string, 0, len(dirs))
	for _, d := range dirs {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
