// Package policy 把世界单位的视平面尺寸换算成最终像素分辨率。
package policy

import (
	"errors"
	"fmt"
	"math"

	"github.com/John-Robertt/orthosnap/internal/domain"
)

// ErrZeroExtent 表示视平面尺寸退化为零（包围盒为空或缩放为 0）。
// 该情况必须显式上报，不允许静默产出 0×0 图片。
var ErrZeroExtent = errors.New("视图尺寸为零：对象包围盒退化（空网格或缩放为 0）")

// Compute 按缩放模式计算每单位像素数与最终分辨率。
//
// - ScaleUniformSize：长边恰好等于 maxDim；不同资产共享同一画布尺寸，绝不触发切片。
// - ScaleUniformPixels：像素数固定为 pixelsPerUnit；若长边超过 maxDim：
//   - DivideReduce：压低像素数使长边等于 maxDim（该资产的有效比例与其他资产不同）
//   - DivideEven / DivideMax：分辨率原样放行，由切片器做物理拆分
//
// 返回的分辨率两个分量恒 >= 1。
func Compute(ext domain.Extent, mode domain.ScaleMode, pixelsPerUnit float64, maxDim int, divide domain.DivideMode) (domain.Resolution, float64, error) {
	if ext.W <= 0 || ext.H <= 0 {
		return domain.Resolution{}, 0, ErrZeroExtent
	}
	if maxDim < 1 {
		return domain.Resolution{}, 0, fmt.Errorf("max_dimension 必须为正整数，实际是 %d", maxDim)
	}

	var ppu float64
	capped := false
	switch mode {
	case domain.ScaleUniformSize:
		ppu = float64(maxDim) / ext.Max()
		capped = true
	default: // ScaleUniformPixels
		if pixelsPerUnit <= 0 {
			return domain.Resolution{}, 0, fmt.Errorf("pixels_per_unit 必须为正数，实际是 %v", pixelsPerUnit)
		}
		ppu = pixelsPerUnit
		if divide == domain.DivideReduce && ext.Max()*ppu > float64(maxDim) {
			ppu = float64(maxDim) / ext.Max()
			capped = true
		}
	}

	res := domain.Resolution{
		W: ceilPx(ppu * ext.W),
		H: ceilPx(ppu * ext.H),
	}
	// ppu 由上限反推时，ceil(ppu*ext) 的浮点误差可能把长边顶到
	// maxDim+1（非 2 的幂的上限尤其常见），进而错误触发切片。
	// 约束：按上限定出的分辨率分量绝不允许超过上限。
	if capped {
		if res.W > maxDim {
			res.W = maxDim
		}
		if res.H > maxDim {
			res.H = maxDim
		}
	}
	return res, ppu, nil
}

func ceilPx(v float64) int {
	n := int(math.Ceil(v))
	if n < 1 {
		return 1
	}
	return n
}
