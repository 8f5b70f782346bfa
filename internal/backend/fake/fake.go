// Package fake 提供一套内存实现的 backend 能力，用于编排层测试。
// 它记录每一次状态改动与渲染调用，便于断言快照/恢复与切片行为。
package fake

import (
	"fmt"
	"sort"

	"github.com/John-Robertt/orthosnap/internal/backend"
	"github.com/John-Robertt/orthosnap/internal/framing"
	"github.com/John-Robertt/orthosnap/internal/tile"
)

// Object 是内存场景对象。
type Object struct {
	ObjName   string
	Hidden    bool
	Mats      []*Material
	Bounds    framing.BBox
	BoundsErr error
}

func (o *Object) Name() string         { return o.ObjName }
func (o *Object) HideRender() bool     { return o.Hidden }
func (o *Object) SetHideRender(h bool) { o.Hidden = h }

func (o *Object) WorldBounds() (framing.BBox, error) {
	return o.Bounds, o.BoundsErr
}

// Materials 返回材质槽。槽位可以为 nil，模拟宿主的空材质槽。
func (o *Object) Materials() []backend.Material {
	out := make([]backend.Material, len(o.Mats))
	for i, m := range o.Mats {
		if m == nil {
			continue // out[i] 保持 nil 接口
		}
		out[i] = m
	}
	return out
}

type Material struct {
	Culling bool
}

func (m *Material) BackfaceCulling() bool     { return m.Culling }
func (m *Material) SetBackfaceCulling(v bool) { m.Culling = v }

// Camera 是内存正交相机。
type Camera struct {
	Object
	Pose       framing.Pose
	OrthoScale float64
}

func (c *Camera) SetPose(p framing.Pose)  { c.Pose = p }
func (c *Camera) SetOrthoScale(s float64) { c.OrthoScale = s }

// Scene 是内存场景。
type Scene struct {
	Objs    []backend.Object
	Deleted []string
	Cameras int
}

func (s *Scene) Objects() []backend.Object {
	return append([]backend.Object(nil), s.Objs...)
}

func (s *Scene) NewOrthoCamera(name string) (backend.Camera, error) {
	cam := &Camera{Object: Object{ObjName: name}}
	s.Objs = append(s.Objs, cam)
	s.Cameras++
	return cam, nil
}

func (s *Scene) Delete(obj backend.Object) error {
	for i, o := range s.Objs {
		if o == obj {
			s.Objs = append(s.Objs[:i], s.Objs[i+1:]...)
			s.Deleted = append(s.Deleted, obj.Name())
			return nil
		}
	}
	return fmt.Errorf("对象不在场景中：%s", obj.Name())
}

// Add 把对象放进场景（测试布景用）。
func (s *Scene) Add(o *Object) *Object {
	s.Objs = append(s.Objs, o)
	return o
}

// Importer 按路径返回预先布置的对象，或注入失败。
type Importer struct {
	Scene   *Scene
	Objects map[string]*Object // AbsPath -> 待导入对象
	Fail    map[string]error   // AbsPath -> 注入的导入失败
}

func (im *Importer) Import(path string) (backend.Object, error) {
	if err, ok := im.Fail[path]; ok {
		return nil, &backend.Error{Stage: "import", Path: path, Err: err}
	}
	o, ok := im.Objects[path]
	if !ok {
		return nil, &backend.Error{Stage: "import", Path: path, Err: fmt.Errorf("没有为该路径布置对象")}
	}
	// 导入对象默认进场景且对渲染不可见（与宿主导入行为一致由编排层决定）。
	im.Scene.Add(o)
	return o, nil
}

// Shot 记录一次 RenderToFile 调用时的渲染器状态。
type Shot struct {
	Path string
	W, H int
	Crop *tile.Box // nil 表示整幅
}

// Renderer 记录全部渲染调用。
type Renderer struct {
	W, H       int
	Crop       *tile.Box
	Brightness float64
	WorldSetup bool

	Shots []Shot
	Fail  map[string]error // basePath -> 注入的渲染失败
}

func (r *Renderer) SetResolution(w, h int) { r.W, r.H = w, h }

func (r *Renderer) SetCropWindow(box *tile.Box) {
	if box == nil {
		r.Crop = nil
		return
	}
	b := *box
	r.Crop = &b
}

func (r *Renderer) SetupWorld(brightness float64) error {
	r.Brightness = brightness
	r.WorldSetup = true
	return nil
}

func (r *Renderer) RenderToFile(basePath string) error {
	if err, ok := r.Fail[basePath]; ok {
		return &backend.Error{Stage: "render", Path: basePath, Err: err}
	}
	shot := Shot{Path: basePath, W: r.W, H: r.H}
	if r.Crop != nil {
		b := *r.Crop
		shot.Crop = &b
	}
	r.Shots = append(r.Shots, shot)
	return nil
}

// ShotPaths 返回按字典序排序的渲染输出路径（断言用）。
func (r *Renderer) ShotPaths() []string {
	out := make([]string, 0, len(r.Shots))
	for _, s := range r.Shots {
		out = append(out, s.Path)
	}
	sort.Strings(out)
	return out
}
