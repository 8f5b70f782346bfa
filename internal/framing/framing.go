// Package framing 负责正交取景：给定资产的世界空间包围盒和拍摄方向，
// 计算相机位姿与视平面尺寸。
//
// 前置条件：包围盒必须是烘焙完所有待定变换（旋转/缩放/位移）之后的
// 世界空间坐标。对未烘焙的局部坐标取景，旋转/缩放过的资产会取错框。
package framing

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/John-Robertt/orthosnap/internal/domain"
)

// BBox 是轴对齐包围盒（世界空间 min/max）。
type BBox struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// FromCorners 由 8 个角点构造包围盒（逐分量 min/max）。
func FromCorners(corners [8]mgl64.Vec3) BBox {
	b := BBox{Min: corners[0], Max: corners[0]}
	for _, c := range corners[1:] {
		for i := 0; i < 3; i++ {
			b.Min[i] = math.Min(b.Min[i], c[i])
			b.Max[i] = math.Max(b.Max[i], c[i])
		}
	}
	return b
}

// Center 返回包围盒中心（8 个角点的算术平均，等价于 min/max 中点）。
func (b BBox) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Dims 返回包围盒三轴尺寸。
func (b BBox) Dims() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Pose 是相机位姿：位置 + 看向包围盒中心的视图矩阵。
type Pose struct {
	Position mgl64.Vec3
	View     mgl64.Mat4
}

// CameraPose 计算拍摄位姿：把相机从包围盒中心沿方向轴（带符号）推出
// 该轴向的整个尺寸，保证相机落在包围体外，然后朝向中心。
//
// up 轴约定固定：±Z 方向用世界 +Y，其余方向用世界 +Z。
// 六个方向各自固定，保证同轴多次出图的上下朝向稳定。
func CameraPose(b BBox, dir domain.Direction) Pose {
	center := b.Center()
	dims := b.Dims()

	pos := center
	pos[dir.Axis()] += dir.Sign() * dims[dir.Axis()]

	return Pose{
		Position: pos,
		View:     mgl64.LookAtV(pos, center, upFor(dir)),
	}
}

func upFor(dir domain.Direction) mgl64.Vec3 {
	if dir.Axis() == 2 {
		return mgl64.Vec3{0, 1, 0}
	}
	return mgl64.Vec3{0, 0, 1}
}

// ViewExtent 返回与拍摄轴正交的两个包围盒尺寸，各加 padding。
// 这就是输出图片必须覆盖的精确世界尺寸。
func ViewExtent(b BBox, dir domain.Direction, padding float64) domain.Extent {
	d := b.Dims()
	var w, h float64
	switch dir.Axis() {
	case 0:
		w, h = d.Y(), d.Z()
	case 1:
		w, h = d.X(), d.Z()
	default:
		w, h = d.X(), d.Y()
	}
	return domain.Extent{W: w + padding, H: h + padding}
}

// OrthoScale 返回正交相机的取景尺度（自动传感器适配：取长边）。
func OrthoScale(e domain.Extent) float64 {
	return e.Max()
}
