package domain

// Direction 表示六个基轴拍摄方向之一。
//
// 约束：要么解析出合法方向，要么失败；不允许把未知字符串静默当成某个轴。
type Direction int

const (
	DirPosX Direction = iota
	DirNegX
	DirPosY
	DirNegY
	DirPosZ
	DirNegZ
)

// AllDirections 按稳定顺序列出全部方向（配置解析与测试依赖该顺序）。
var AllDirections = [6]Direction{DirPosX, DirNegX, DirPosY, DirNegY, DirPosZ, DirNegZ}

// String 返回方向的导出后缀形态（与文件名中出现的完全一致）。
func (d Direction) String() string {
	switch d {
	case DirPosX:
		return "X"
	case DirNegX:
		return "-X"
	case DirPosY:
		return "Y"
	case DirNegY:
		return "-Y"
	case DirPosZ:
		return "Z"
	default:
		return "-Z"
	}
}

// Axis 返回方向所在的轴下标（X=0, Y=1, Z=2）。
func (d Direction) Axis() int {
	switch d {
	case DirPosX, DirNegX:
		return 0
	case DirPosY, DirNegY:
		return 1
	default:
		return 2
	}
}

// Sign 返回方向的符号（正轴 +1，负轴 -1）。
func (d Direction) Sign() float64 {
	switch d {
	case DirNegX, DirNegY, DirNegZ:
		return -1
	default:
		return 1
	}
}

// ParseDirection 解析配置中的方向字符串（"X"/"-X"/"Y"/"-Y"/"Z"/"-Z"）。
func ParseDirection(s string) (Direction, bool) {
	for _, d := range AllDirections {
		if s == d.String() {
			return d, true
		}
	}
	return 0, false
}
