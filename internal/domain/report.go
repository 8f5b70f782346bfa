package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusPlanned   = "planned"
	StatusFailed    = "failed"
)

const (
	ImageStatusPlanned  = "planned"
	ImageStatusRendered = "rendered"
	ImageStatusFailed   = "failed"
)

const (
	ErrCodeImportFailed      = "import_failed"
	ErrCodeRenderFailed      = "render_failed"
	ErrCodeZeroExtent        = "zero_extent"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeDiscoveryEmpty    = "discovery_empty"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// RunReport 是对外稳定输出（orthosnap-report.json / stdout JSON）的结构。
type RunReport struct {
	RunID      string `json:"run_id"`
	SourceRoot string `json:"source_root"`
	ExportRoot string `json:"export_root"`
	DryRun     bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []AssetResult `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Planned   int `json:"planned"`
	Failed    int `json:"failed"`
}

// AssetResult 是单个资产的处理结果。Asset 为相对源根目录的路径；
// 合成条目（配置/扫描级失败）的 Asset 为空串。
type AssetResult struct {
	Asset string `json:"asset"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Images []ImageResult `json:"images"`
}

// ImageResult 是资产在一个方向上的出图结果。
// Path 是切片前的基础路径（不含图片扩展名）；Tiles 是实际切出的子图数。
type ImageResult struct {
	Direction string `json:"direction"`
	Path      string `json:"path"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Tiles     int    `json:"tiles"`
	Status    string `json:"status"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 asset 相对路径字典序；asset=="" 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Asset
		b := r.Items[j].Asset
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusPlanned:
			s.Planned++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
