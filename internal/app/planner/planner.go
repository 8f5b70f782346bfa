package planner

import (
	"github.com/John-Robertt/orthosnap/internal/config"
	"github.com/John-Robertt/orthosnap/internal/domain"
)

// Window 对已排序的资产列表应用 start_index/max_assets 切片窗口。
// start 超出列表长度时返回空窗口；max==0 表示不限制。
func Window(assets []domain.Asset, start, max int) []domain.Asset {
	if start < 0 {
		start = 0
	}
	if start > len(assets) {
		start = len(assets)
	}
	out := assets[start:]
	if max > 0 && max < len(out) {
		out = out[:max]
	}
	return out
}

// PlanAsset 为一个资产生成全部方向的渲染任务（纯函数：只合成路径，不触碰场景）。
// 任务顺序与 cfg.Directions 一致，保证重跑时输出命名确定。
// 分辨率字段留空，由编排层在取景之后填入。
func PlanAsset(a domain.Asset, cfg config.BatchConfig) []domain.RenderTask {
	out := make([]domain.RenderTask, 0, len(cfg.Directions))
	for _, dir := range cfg.Directions {
		out = append(out, domain.RenderTask{
			Asset:     a,
			Direction: dir,
			BasePath:  a.ExportPath(dir, cfg.ExportRoot, cfg.Naming, cfg.Suffix),
		})
	}
	return out
}
