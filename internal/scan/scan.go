package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/orthosnap/internal/domain"
)

// Discover 扫描 root 下的模型文件。
//
// 规则（硬约束）：
// - 只收录扩展名（大小写不敏感）在 isModelExt 白名单内的文件
// - root 本身不可读：返回错误
// - 个别子目录不可读：跳过该子目录，不中断整体扫描
//
// 注意：扫描阶段只做路径解析，不读文件内容；返回序列无序，排序由 SortAssets 负责。
func Discover(root string) ([]domain.Asset, error) {
	root = filepath.Clean(root)

	// 根必须是目录：普通文件会让相对子路径算出 ".."，导出路径随之
	// 逃出导出根目录。
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("源路径不是目录：%s", root)
	}

	assets := make([]domain.Asset, 0, 128)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// 子目录不可读：跳过，不中断整体扫描。
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		name := d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !isModelExt(ext) {
			return nil
		}

		relDir, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		sub := relDir
		if sub == "." {
			sub = ""
		}

		assets = append(assets, domain.Asset{
			FileName: name,
			Base:     strings.TrimSuffix(name, filepath.Ext(name)),
			Ext:      ext,
			AbsPath:  path,
			Root:     root,
			Subpath:  sub,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// SortAssets 把扫描结果按（目录深度，大小写不敏感文件名）稳定排序。
// 强制稳定输出，避免不同平台/文件系统枚举顺序差异带来的不确定性。
func SortAssets(assets []domain.Asset) {
	sort.SliceStable(assets, func(i, j int) bool { return assets[i].Less(assets[j]) })
}

// isModelExt 是可导入模型的扩展名白名单。
func isModelExt(ext string) bool {
	switch ext {
	case ".glb", ".gltf", ".obj", ".fbx":
		return true
	default:
		return false
	}
}
