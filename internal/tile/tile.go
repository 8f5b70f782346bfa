// Package tile 把超过尺寸上限的渲染拆成子图网格。
// 每个子图由一个归一化裁剪窗口描述，交给渲染后端独立出图。
package tile

import (
	"fmt"

	"github.com/John-Robertt/orthosnap/internal/domain"
)

// Box 是归一化裁剪窗口（[0,1]×[0,1] 坐标，x 向右 y 向上）。
type Box struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
}

// Full 是整幅窗口。
var Full = Box{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}

// Tile 是一次独立渲染调用的计划：网格位置 + 裁剪窗口 + 输出基础路径。
type Tile struct {
	Row  int // X 方向的网格下标
	Col  int // Y 方向的网格下标
	Crop Box
	Path string
}

// Counts 返回 X/Y 方向需要的切片数。
func Counts(w, h, maxDim int) (int, int) {
	return ceilDiv(w, maxDim), ceilDiv(h, maxDim)
}

// Plan 生成确定性的切片计划。
//
// - 单片：整幅裁剪，路径保持 basePath 原样（无边框行为不变）
// - 多片：每片命名为 basePath_行_列（1 起始），重跑稳定
// - 不变量：所有裁剪窗口恰好覆盖 [0,1]²，相邻片共享边界，无缝无叠
//
// DivideReduce 不该出现在多片场景：上游策略已把分辨率压进上限内，
// 此处多片时按 DivideMax 同一公式处理。
func Plan(w, h, maxDim int, mode domain.DivideMode, basePath string) []Tile {
	tx, ty := Counts(w, h, maxDim)
	if tx == 1 && ty == 1 {
		return []Tile{{Row: 0, Col: 0, Crop: Full, Path: basePath}}
	}

	out := make([]Tile, 0, tx*ty)
	for row := 0; row < tx; row++ {
		for col := 0; col < ty; col++ {
			var b Box
			switch mode {
			case domain.DivideEven:
				b = Box{
					MinX: float64(row) / float64(tx),
					MaxX: float64(row+1) / float64(tx),
					MinY: float64(col) / float64(ty),
					MaxY: float64(col+1) / float64(ty),
				}
			default:
				b = Box{
					MinX: float64(maxDim*row) / float64(w),
					MaxX: float64(min(maxDim*(row+1), w)) / float64(w),
					MinY: float64(maxDim*col) / float64(h),
					MaxY: float64(min(maxDim*(col+1), h)) / float64(h),
				}
			}
			out = append(out, Tile{
				Row:  row,
				Col:  col,
				Crop: b,
				Path: fmt.Sprintf("%s_%d_%d", basePath, row+1, col+1),
			})
		}
	}
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
