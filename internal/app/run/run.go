// Package run 是批量快照的执行核心：发现模型、逐个导入、按方向取景
// 渲染，并把每条结果聚合成 RunReport。
//
// 失败隔离约束：单个资产的任何失败（导入、取景、渲染、写盘）只标记该
// 资产并放弃它剩余的方向/分块，绝不中断其他资产；场景级状态（既有对象
// 的可见性、临时相机）无论成败都必须恢复。
package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/orthosnap/internal/app/planner"
	"github.com/John-Robertt/orthosnap/internal/backend"
	"github.com/John-Robertt/orthosnap/internal/config"
	"github.com/John-Robertt/orthosnap/internal/domain"
	"github.com/John-Robertt/orthosnap/internal/framing"
	"github.com/John-Robertt/orthosnap/internal/infra/fsx"
	"github.com/John-Robertt/orthosnap/internal/policy"
	"github.com/John-Robertt/orthosnap/internal/scan"
	"github.com/John-Robertt/orthosnap/internal/tile"
)

// Deps 聚合渲染宿主提供的能力；由 main 负责装配。
type Deps struct {
	Scene    backend.Scene
	Importer backend.Importer
	Renderer backend.Renderer
}

// Execute 执行一次完整的批量运行并返回已 Finalize 的报告。
func Execute(ctx context.Context, cfg config.BatchConfig, deps Deps, log zerolog.Logger) domain.RunReport {
	return ExecuteWithObserver(ctx, cfg, deps, log, nil)
}

// ExecuteWithObserver 同 Execute，并在关键节点回调 obs（obs 可为 nil）。
func ExecuteWithObserver(ctx context.Context, cfg config.BatchConfig, deps Deps, log zerolog.Logger, obs Observer) domain.RunReport {
	if obs != nil {
		obs.OnStart(cfg)
	}
	rr := domain.RunReport{
		RunID:      uuid.NewString(),
		SourceRoot: cfg.SourceRoot,
		ExportRoot: cfg.ExportRoot,
		DryRun:     !cfg.Apply,
		StartedAt:  time.Now().UTC(),
		Items:      make([]domain.AssetResult, 0, 64),
	}
	log.Info().Str("run_id", rr.RunID).Str("source", cfg.SourceRoot).Bool("apply", cfg.Apply).Msg("开始运行")

	// 配置层已拒绝空方向集合；这里再拦一次，保证直接构造 BatchConfig
	// 的调用方也不会在无事可做时改动场景。
	if len(cfg.Directions) == 0 {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, "directions 为空：至少需要一个拍摄方向"))
		return finish(rr)
	}

	phaseStart := time.Now()
	assets, err := scan.Discover(cfg.SourceRoot)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描源目录失败：%v", err)))
		return finish(rr)
	}
	scan.SortAssets(assets)
	found := len(assets)
	assets = planner.Window(assets, cfg.StartIndex, cfg.MaxAssets)
	phaseDur := time.Since(phaseStart)
	log.Info().Int("found", found).Int("selected", len(assets)).Dur("took", phaseDur).Msg("扫描完成")
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{"found": found, "selected": len(assets)}, phaseDur)
	}

	if len(assets) == 0 {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeDiscoveryEmpty, "源目录下没有可导入的模型（识别扩展名：.glb .gltf .obj .fbx）"))
		return finish(rr)
	}

	// 试运行：只合成任务与目标路径，不导入、不渲染、不改动场景。
	if !cfg.Apply {
		for i, a := range assets {
			itemStart := time.Now()
			item := plannedItem(a, cfg)
			rr.Items = append(rr.Items, item)
			if obs != nil {
				obs.OnAssetDone(i+1, len(assets), item, time.Since(itemStart))
			}
		}
		return finish(rr)
	}

	if err := deps.Renderer.SetupWorld(cfg.Brightness); err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeRenderFailed, fmt.Sprintf("初始化全局渲染设置失败：%v", err)))
		return finish(rr)
	}

	// 快照既有对象的可见性并全部隐藏；恢复无条件执行。
	prior := deps.Scene.Objects()
	visSnap := make([]bool, len(prior))
	for i, o := range prior {
		visSnap[i] = o.HideRender()
		o.SetHideRender(true)
	}
	defer func() {
		for i, o := range prior {
			o.SetHideRender(visSnap[i])
		}
	}()

	cam, err := deps.Scene.NewOrthoCamera("OrthoCam")
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeRenderFailed, fmt.Sprintf("创建正交相机失败：%v", err)))
		return finish(rr)
	}
	defer func() { _ = deps.Scene.Delete(cam) }()

	for i, a := range assets {
		if ctx.Err() != nil {
			log.Warn().Int("remaining", len(assets)-i).Msg("上下文已取消：放弃剩余资产")
			break
		}
		itemStart := time.Now()
		item := processAsset(cfg, deps, cam, a, log)
		rr.Items = append(rr.Items, item)
		if item.Status == domain.StatusFailed {
			log.Error().Str("asset", item.Asset).Str("code", item.ErrorCode).Msg(item.ErrorMsg)
		}
		if obs != nil {
			obs.OnAssetDone(i+1, len(assets), item, time.Since(itemStart))
		}
	}

	return finish(rr)
}

// processAsset 处理单个资产：导入、接管材质与可见性、逐方向拍摄。
// 收尾顺序固定：先隐藏资产，再恢复材质背面剔除，最后从场景释放对象。
func processAsset(cfg config.BatchConfig, deps Deps, cam backend.Camera, a domain.Asset, log zerolog.Logger) domain.AssetResult {
	item := domain.AssetResult{
		Asset:  filepath.ToSlash(filepath.Join(a.Subpath, a.FileName)),
		Status: domain.StatusProcessed,
		Images: make([]domain.ImageResult, 0, len(cfg.Directions)),
	}

	obj, err := deps.Importer.Import(a.AbsPath)
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeImportFailed
		item.ErrorMsg = err.Error()
		return item
	}
	defer func() { _ = deps.Scene.Delete(obj) }()

	mats := obj.Materials()
	cullSnap := make([]bool, len(mats))
	for i, m := range mats {
		if m == nil { // 空材质槽
			continue
		}
		cullSnap[i] = m.BackfaceCulling()
		m.SetBackfaceCulling(cfg.BackfaceCulling)
	}
	defer func() {
		for i, m := range mats {
			if m == nil {
				continue
			}
			m.SetBackfaceCulling(cullSnap[i])
		}
	}()

	obj.SetHideRender(false)
	defer obj.SetHideRender(true)

	for _, task := range planner.PlanAsset(a, cfg) {
		img, err := shoot(cfg, deps, cam, obj, task, log)
		item.Images = append(item.Images, img)
		if err != nil {
			// 一个方向失败即放弃该资产剩余方向；其余资产不受影响。
			item.Status = domain.StatusFailed
			item.ErrorCode = errCodeFor(err)
			item.ErrorMsg = err.Error()
			break
		}
	}
	return item
}

// shoot 完成一个方向的拍摄：取景、定分辨率、建目录、（可能分块地）渲染。
func shoot(cfg config.BatchConfig, deps Deps, cam backend.Camera, obj backend.Object, task domain.RenderTask, log zerolog.Logger) (domain.ImageResult, error) {
	img := domain.ImageResult{
		Direction: task.Direction.String(),
		Path:      task.BasePath,
		Status:    domain.ImageStatusFailed,
	}

	bbox, err := obj.WorldBounds()
	if err != nil {
		return img, fmt.Errorf("读取世界包围盒失败：%w", err)
	}

	ext := framing.ViewExtent(bbox, task.Direction, cfg.Padding)
	res, ppu, err := policy.Compute(ext, cfg.Scale, cfg.PixelsPerUnit, cfg.MaxDimension, cfg.Divide)
	if err != nil {
		return img, err
	}
	task.Res = res
	task.PxPerUnit = ppu
	img.Width, img.Height = res.W, res.H

	cam.SetPose(framing.CameraPose(bbox, task.Direction))
	cam.SetOrthoScale(framing.OrthoScale(ext))
	deps.Renderer.SetResolution(res.W, res.H)

	if err := fsx.EnsureDir(filepath.Dir(task.BasePath)); err != nil {
		return img, fmt.Errorf("创建输出目录失败：%w", err)
	}

	tiles := tile.Plan(res.W, res.H, cfg.MaxDimension, cfg.Divide, task.BasePath)
	img.Tiles = len(tiles)
	for _, tl := range tiles {
		if len(tiles) == 1 {
			deps.Renderer.SetCropWindow(nil)
		} else {
			crop := tl.Crop
			deps.Renderer.SetCropWindow(&crop)
		}
		if err := deps.Renderer.RenderToFile(tl.Path); err != nil {
			return img, err
		}
		log.Debug().Str("path", tl.Path).Int("w", res.W).Int("h", res.H).Msg("已输出")
	}
	img.Status = domain.ImageStatusRendered
	return img, nil
}

// errCodeFor 把底层错误归到报告的稳定错误码上。
func errCodeFor(err error) string {
	if errors.Is(err, policy.ErrZeroExtent) {
		return domain.ErrCodeZeroExtent
	}
	var be *backend.Error
	if errors.As(err, &be) {
		switch be.Stage {
		case "import":
			return domain.ErrCodeImportFailed
		case "render":
			return domain.ErrCodeRenderFailed
		}
	}
	var pe *os.PathError
	if fsx.IsPathTypeConflict(err) || errors.As(err, &pe) {
		return domain.ErrCodeIOFailed
	}
	return domain.ErrCodeRenderFailed
}

// plannedItem 为试运行合成一条只含目标路径的结果。
func plannedItem(a domain.Asset, cfg config.BatchConfig) domain.AssetResult {
	item := domain.AssetResult{
		Asset:  filepath.ToSlash(filepath.Join(a.Subpath, a.FileName)),
		Status: domain.StatusPlanned,
		Images: make([]domain.ImageResult, 0, len(cfg.Directions)),
	}
	for _, task := range planner.PlanAsset(a, cfg) {
		item.Images = append(item.Images, domain.ImageResult{
			Direction: task.Direction.String(),
			Path:      task.BasePath,
			Status:    domain.ImageStatusPlanned,
		})
	}
	return item
}

func syntheticFailed(code, msg string) domain.AssetResult {
	return domain.AssetResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
		Images:    []domain.ImageResult{},
	}
}

func finish(rr domain.RunReport) domain.RunReport {
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}
