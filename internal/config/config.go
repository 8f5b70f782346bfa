package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/orthosnap/internal/domain"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 orthosnap.json。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 source 字段。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// DefaultPixelsPerUnit 是每单位像素数的内置默认值。
	DefaultPixelsPerUnit = 256
	// DefaultMaxDimension 是输出图片长边上限的内置默认值。
	DefaultMaxDimension = 4096
	// MinMaxDimension / MaxMaxDimension 是 max_dimension 的允许范围。
	MinMaxDimension = 256
	MaxMaxDimension = 16384
)

// CLIArgs 只包含 CLI 暴露的入口（源目录/导出目录/apply），并保留"是否显式指定"的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Source string

	Export    string
	ExportSet bool

	Apply    bool
	ApplySet bool
}

// FileConfig 对应 orthosnap.json 的解析结构。
// 枚举字段以字符串形态出现，解析/校验统一在 merge 里做。
type FileConfig struct {
	Source string `json:"source"`
	Export string `json:"export"`
	Apply  *bool  `json:"apply"`

	Directions []string `json:"directions"`

	ScaleMode     string  `json:"scale_mode"`
	PixelsPerUnit float64 `json:"pixels_per_unit"`
	MaxDimension  int     `json:"max_dimension"`
	DivideMode    string  `json:"divide_mode"`

	Naming  string  `json:"naming"`
	Suffix  string  `json:"suffix"`
	Padding float64 `json:"padding"`

	BackfaceCulling bool     `json:"backface_culling"`
	Brightness      *float64 `json:"brightness"`

	StartIndex int `json:"start_index"`
	MaxAssets  int `json:"max_assets"`

	// BackendCmd 是渲染宿主桥的启动命令（argv 形式）。apply 运行必需；
	// dry-run 不需要宿主，允许缺省。
	BackendCmd []string `json:"backend_cmd"`
}

// BatchConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
// 每次 run 构造一份，全程只读传递；任何组件都不读进程级全局状态。
type BatchConfig struct {
	SourceRoot string
	ExportRoot string
	Apply      bool

	Directions []domain.Direction

	Scale         domain.ScaleMode
	PixelsPerUnit float64
	MaxDimension  int
	Divide        domain.DivideMode

	Naming  domain.NamingPolicy
	Suffix  domain.SuffixPlacement
	Padding float64

	BackfaceCulling bool
	Brightness      float64

	StartIndex int
	MaxAssets  int // 0 表示不限制

	BackendCmd []string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 source", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供源目录：尝试读取 <source>/orthosnap.json（可选）
// 2) CLI 未提供：必须读取 <cwd>/orthosnap.json（必选），且其中必须包含 source
//
// 覆盖优先级（固定）：
// - source：CLI > config
// - export：CLI --export > config
// - apply：CLI --apply/--apply=false > config > 默认 false
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (BatchConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.Source) != "" {
		// CLI 给了源目录：配置文件可选，位置固定在 <source>/orthosnap.json。
		absSource := absCleanFrom(cwdAbs, cli.Source)
		cfgPath := filepath.Join(absSource, "orthosnap.json")

		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		return merge(cwdAbs, absSource, cli, fc, cfgPath)
	}

	// CLI 没给源目录：必须读取 <cwd>/orthosnap.json，且其中必须包含 source。
	cfgPath := filepath.Join(cwdAbs, "orthosnap.json")
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return BatchConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Source) == "" {
		return BatchConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	absSource := absCleanFrom(cwdAbs, fc.Source)
	return merge(cwdAbs, absSource, cli, fc, cfgPath)
}

func merge(cwdAbs, absSource string, cli CLIArgs, fc FileConfig, cfgPath string) (BatchConfig, error) {
	// export：CLI > config；缺失即拒绝（dry-run 也需要它来合成目标路径）。
	export := strings.TrimSpace(fc.Export)
	if cli.ExportSet {
		export = strings.TrimSpace(cli.Export)
	}
	if export == "" {
		return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("缺少导出目录（--export 或 export 字段）")}
	}
	absExport := absCleanFrom(cwdAbs, export)

	// apply：CLI > config > 默认 false（dry-run）。
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	dirs, err := parseDirections(fc.Directions)
	if err != nil {
		return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	scale := domain.ScaleUniformPixels
	if s := strings.TrimSpace(fc.ScaleMode); s != "" {
		m, ok := domain.ParseScaleMode(s)
		if !ok {
			return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("scale_mode 只能是 uniformscale 或 samesize，实际是 %q", s)}
		}
		scale = m
	}

	divide := domain.DivideMax
	if s := strings.TrimSpace(fc.DivideMode); s != "" {
		m, ok := domain.ParseDivideMode(s)
		if !ok {
			return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("divide_mode 只能是 reduceres/evensize/maxsize，实际是 %q", s)}
		}
		divide = m
	}

	naming := domain.NamingFlatten
	if s := strings.TrimSpace(fc.Naming); s != "" {
		p, ok := domain.ParseNamingPolicy(s)
		if !ok {
			return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("naming 只能是 flatten/keeppath/flatten_foldername/flatten_pathname，实际是 %q", s)}
		}
		naming = p
	}

	suffix := domain.SuffixAppend
	if s := strings.TrimSpace(fc.Suffix); s != "" {
		p, ok := domain.ParseSuffixPlacement(s)
		if !ok {
			return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("suffix 只能是 prepend 或 append，实际是 %q", s)}
		}
		suffix = p
	}

	ppu := fc.PixelsPerUnit
	if ppu == 0 {
		ppu = DefaultPixelsPerUnit
	}
	if ppu < 0 {
		return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("pixels_per_unit 必须为正数，实际是 %v", fc.PixelsPerUnit)}
	}

	maxDim := fc.MaxDimension
	if maxDim == 0 {
		maxDim = DefaultMaxDimension
	}
	if maxDim < MinMaxDimension || maxDim > MaxMaxDimension {
		return BatchConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("max_dimension 必须在 [%d, %d] 内，实际是 %d", MinMaxDimension, MaxMaxDimension, fc.MaxDimension)}
	}

	// padding/brightness：范围外截断（与设置面板的滑块行为一致）。
	padding := clamp(fc.Padding, 0, 10)
	brightness := 1.0
	if fc.Brightness != nil {
		brightness = clamp(*fc.Brightness, 0, 2)
	}

	start := fc.StartIndex
	if start < 0 {
		start = 0
	}
	maxAssets := fc.MaxAssets
	if maxAssets < 0 {
		maxAssets = 0
	}

	return BatchConfig{
		SourceRoot:      absSource,
		ExportRoot:      absExport,
		Apply:           apply,
		Directions:      dirs,
		Scale:           scale,
		PixelsPerUnit:   ppu,
		MaxDimension:    maxDim,
		Divide:          divide,
		Naming:          naming,
		Suffix:          suffix,
		Padding:         padding,
		BackfaceCulling: fc.BackfaceCulling,
		Brightness:      brightness,
		StartIndex:      start,
		MaxAssets:       maxAssets,
		BackendCmd:      fc.BackendCmd,
	}, nil
}

// parseDirections 解析并规范化方向集合：去重，顺序归一为 AllDirections 的顺序。
// 空集合是配置错误：至少要有一个拍摄方向。
func parseDirections(in []string) ([]domain.Direction, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("directions 不能为空：至少启用一个拍摄方向")
	}

	seen := map[domain.Direction]bool{}
	for _, s := range in {
		d, ok := domain.ParseDirection(strings.TrimSpace(s))
		if !ok {
			return nil, fmt.Errorf("未知方向 %q（可用：X -X Y -Y Z -Z）", s)
		}
		seen[d] = true
	}

	out := make([]domain.Direction, 0, len(seen))
	for _, d := range domain.AllDirections {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
