package domain

import (
	"path/filepath"
	"strings"
)

// Asset 描述一次扫描得到的模型文件（只做路径解析，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute，且 AbsPath == Join(Root, Subpath, FileName)
// - Subpath 是从 Root 到所在目录的相对路径，无首尾分隔符；顶层文件为 ""
// - Ext 统一小写、带点（".obj"）
type Asset struct {
	FileName string
	Base     string // 去扩展名的文件名
	Ext      string
	AbsPath  string
	Root     string
	Subpath  string
}

// Depth 返回 Subpath 的目录层数（顶层为 0）。排序键的第一分量。
func (a Asset) Depth() int {
	if a.Subpath == "" {
		return 0
	}
	return strings.Count(a.Subpath, string(filepath.Separator)) + 1
}

// SamePath 判断两个 Asset 是否指向同一文件（路径比较大小写不敏感）。
func (a Asset) SamePath(b Asset) bool {
	return strings.EqualFold(a.AbsPath, b.AbsPath)
}

// Less 定义资产全序：先按目录深度（浅者在前），同深度按文件名字典序（大小写不敏感）。
// 该顺序同时决定处理顺序与 start_index/max_assets 的切片窗口。
func (a Asset) Less(b Asset) bool {
	da, db := a.Depth(), b.Depth()
	if da != db {
		return da < db
	}
	return strings.ToLower(a.FileName) < strings.ToLower(b.FileName)
}

// ExportPath 为某个拍摄方向合成导出基础路径。
// 返回值不含图片扩展名：扩展名由渲染后端按自身输出格式追加。
// 对任何合法 Asset 都是全函数；不合法的枚举值在 config 阶段已被拒绝。
func (a Asset) ExportPath(dir Direction, exportRoot string, policy NamingPolicy, place SuffixPlacement) string {
	sep := string(filepath.Separator)
	sub := strings.TrimRight(a.Subpath, sep)

	switch policy {
	case NamingKeepRelativePath:
		return filepath.Join(exportRoot, sub, suffixed(dir, a.Base, place))
	case NamingFlattenByFullPath:
		name := a.Base
		if sub != "" {
			name = strings.ReplaceAll(sub, sep, "_") + "_" + a.Base
		}
		return filepath.Join(exportRoot, suffixed(dir, name, place))
	case NamingFlattenByFolder:
		// 顶层文件没有所在文件夹：退化为文件名本身，保证全函数。
		name := a.Base
		if sub != "" {
			parts := strings.Split(sub, sep)
			name = parts[len(parts)-1]
		}
		return filepath.Join(exportRoot, suffixed(dir, name, place))
	default: // NamingFlatten
		return filepath.Join(exportRoot, suffixed(dir, a.Base, place))
	}
}

func suffixed(dir Direction, name string, place SuffixPlacement) string {
	if place == SuffixPrepend {
		return dir.String() + "_" + name
	}
	return name + "_" + dir.String()
}
