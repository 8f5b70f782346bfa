// Package backend 定义渲染宿主必须提供的能力接口。
// 核心流程只依赖这些接口，不关心宿主是 Blender 桥、离线渲染器还是测试替身。
package backend

import (
	"fmt"

	"github.com/John-Robertt/orthosnap/internal/framing"
	"github.com/John-Robertt/orthosnap/internal/tile"
)

// Importer 导入模型文件。
type Importer interface {
	// Import 导入 path 指向的模型文件并返回唯一的根对象。
	// 导入产生多个对象时实现方必须先合并成一个根；零对象视为失败。
	Import(path string) (Object, error)
}

// Renderer 执行取景后的实际渲染。
type Renderer interface {
	SetResolution(w, h int)
	// SetCropWindow 设置归一化裁剪窗口；nil 表示关闭边框裁剪（整幅渲染）。
	SetCropWindow(box *tile.Box)
	// SetupWorld 应用一次性的全局渲染设置（透明底 + 世界亮度）。
	SetupWorld(brightness float64) error
	// RenderToFile 以当前分辨率/裁剪窗口渲染并写出到 basePath。
	// basePath 不含图片扩展名：扩展名由实现按自身输出格式追加。
	RenderToFile(basePath string) error
}

// Scene 是渲染宿主的活动场景。
type Scene interface {
	// Objects 枚举场景中当前存在的全部对象。
	Objects() []Object
	// NewOrthoCamera 创建一台正交相机并设为活动相机。
	NewOrthoCamera(name string) (Camera, error)
	// Delete 把对象从场景移除并释放回宿主的空闲池。
	Delete(obj Object) error
}

// Object 是场景对象（模型或相机）。
type Object interface {
	Name() string
	HideRender() bool
	SetHideRender(hidden bool)
	// Materials 返回对象的材质槽；槽位可以为 nil（空槽）。
	Materials() []Material
	// WorldBounds 返回烘焙完所有待定变换后的世界空间包围盒。
	WorldBounds() (framing.BBox, error)
}

// Material 是对象的一个材质。
type Material interface {
	BackfaceCulling() bool
	SetBackfaceCulling(v bool)
}

// Camera 是可摆位的正交相机。
type Camera interface {
	Object
	SetPose(p framing.Pose)
	SetOrthoScale(s float64)
}

// Error 是后端能力调用的结构化错误（标记发生阶段，便于映射 error_code）。
type Error struct {
	Stage string // "import" | "render" | "scene"
	Path  string
	Err   error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s 阶段失败（%s）：%v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("%s 阶段失败：%v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
