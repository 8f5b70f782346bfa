// Package extern 通过子进程桥接一个外部渲染宿主（例如 Blender 侧的
// 辅助脚本）。双方在宿主的 stdin/stdout 上交换按行分隔的 JSON 消息，
// 严格一问一答；模型导入与实际渲染都发生在宿主进程里。
package extern

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/orthosnap/internal/backend"
	"github.com/John-Robertt/orthosnap/internal/framing"
	"github.com/John-Robertt/orthosnap/internal/tile"
)

// request 是发往宿主的一条指令。字段按 op 取用，未用字段省略。
type request struct {
	Op     string   `json:"op"`
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name,omitempty"`
	Path   string   `json:"path,omitempty"`
	Hidden *bool    `json:"hidden,omitempty"`
	Value  *bool    `json:"value,omitempty"`
	W      int      `json:"w,omitempty"`
	H      int      `json:"h,omitempty"`
	Crop   *cropMsg `json:"crop,omitempty"`
	Pose   *poseMsg `json:"pose,omitempty"`
	Scalar float64  `json:"scalar,omitempty"`
}

type cropMsg struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

type poseMsg struct {
	Position [3]float64  `json:"position"`
	View     [16]float64 `json:"view"`
}

type objectMsg struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	HideRender bool   `json:"hide_render"`
}

type materialMsg struct {
	ID              string `json:"id"`
	BackfaceCulling bool   `json:"backface_culling"`
}

type boundsMsg struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

type response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Object    *objectMsg    `json:"object,omitempty"`
	Objects   []objectMsg   `json:"objects,omitempty"`
	Materials []materialMsg `json:"materials,omitempty"`
	Bounds    *boundsMsg    `json:"bounds,omitempty"`
}

// Bridge 持有与宿主的连接，同时实现 backend 的三个顶层能力。
// 调用严格串行（编排层本身单线程；锁只防误用）。
//
// 无 error 返回值的设置类方法采用粘滞错误：首个失败被记录，
// 之后由最近一次带 error 的调用（Import/RenderToFile/WorldBounds）上报。
type Bridge struct {
	mu  sync.Mutex
	enc *json.Encoder
	dec *json.Decoder
	log zerolog.Logger

	cmd    *exec.Cmd
	closer io.Closer

	err error
}

var _ backend.Importer = (*Bridge)(nil)
var _ backend.Renderer = (*Bridge)(nil)
var _ backend.Scene = (*Bridge)(nil)

// Start 启动宿主子进程并建立桥接。argv 是完整命令行（argv[0] 为程序）。
// 宿主的 stderr 直通本进程 stderr：宿主崩溃时用户能直接看到原因。
func Start(ctx context.Context, argv []string, log zerolog.Logger) (*Bridge, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("backend_cmd 为空")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("连接宿主 stdin 失败：%w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("连接宿主 stdout 失败：%w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("启动渲染宿主失败：%w", err)
	}
	log.Info().Str("cmd", argv[0]).Msg("渲染宿主已启动")

	return &Bridge{
		enc:    json.NewEncoder(stdin),
		dec:    json.NewDecoder(stdout),
		log:    log,
		cmd:    cmd,
		closer: stdin,
	}, nil
}

// New 在给定的读写流上建立桥接（测试与自定义管道用）。
func New(rw io.ReadWriter, log zerolog.Logger) *Bridge {
	return &Bridge{
		enc: json.NewEncoder(rw),
		dec: json.NewDecoder(rw),
		log: log,
	}
}

// Close 通知宿主退出并回收子进程。
func (b *Bridge) Close() error {
	b.mu.Lock()
	_ = b.enc.Encode(request{Op: "quit"})
	b.mu.Unlock()

	if b.closer != nil {
		_ = b.closer.Close()
	}
	if b.cmd != nil {
		return b.cmd.Wait()
	}
	return nil
}

// Err 返回粘滞错误（无 error 返回值的设置调用里发生的首个失败）。
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Bridge) call(req request) (response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return response{}, b.err
	}
	if err := b.enc.Encode(req); err != nil {
		b.err = fmt.Errorf("发送 %s 指令失败：%w", req.Op, err)
		return response{}, b.err
	}
	var resp response
	if err := b.dec.Decode(&resp); err != nil {
		b.err = fmt.Errorf("读取 %s 应答失败：%w", req.Op, err)
		return response{}, b.err
	}
	if !resp.OK {
		return response{}, fmt.Errorf("宿主拒绝 %s：%s", req.Op, resp.Error)
	}
	return resp, nil
}

// mustCall 给无 error 返回值的设置类方法用：失败记为粘滞错误。
func (b *Bridge) mustCall(req request) {
	if _, err := b.call(req); err != nil {
		b.mu.Lock()
		if b.err == nil {
			b.err = err
		}
		b.mu.Unlock()
		b.log.Error().Str("op", req.Op).Err(err).Msg("宿主指令失败")
	}
}

// Import 让宿主导入模型并合并为单个根对象。
func (b *Bridge) Import(path string) (backend.Object, error) {
	resp, err := b.call(request{Op: "import", Path: path})
	if err != nil {
		return nil, &backend.Error{Stage: "import", Path: path, Err: err}
	}
	if resp.Object == nil {
		return nil, &backend.Error{Stage: "import", Path: path, Err: errors.New("宿主没有返回导入对象")}
	}
	return b.newObject(*resp.Object), nil
}

func (b *Bridge) Objects() []backend.Object {
	resp, err := b.call(request{Op: "scene.objects"})
	if err != nil {
		return nil
	}
	out := make([]backend.Object, 0, len(resp.Objects))
	for _, m := range resp.Objects {
		out = append(out, b.newObject(m))
	}
	return out
}

func (b *Bridge) NewOrthoCamera(name string) (backend.Camera, error) {
	resp, err := b.call(request{Op: "scene.camera", Name: name})
	if err != nil {
		return nil, &backend.Error{Stage: "scene", Err: err}
	}
	if resp.Object == nil {
		return nil, &backend.Error{Stage: "scene", Err: errors.New("宿主没有返回相机对象")}
	}
	return &camera{object: b.newObject(*resp.Object)}, nil
}

func (b *Bridge) Delete(obj backend.Object) error {
	id := remoteID(obj)
	if id == "" {
		return &backend.Error{Stage: "scene", Err: fmt.Errorf("对象 %s 不属于此桥", obj.Name())}
	}
	if _, err := b.call(request{Op: "scene.delete", ID: id}); err != nil {
		return &backend.Error{Stage: "scene", Err: err}
	}
	return nil
}

func (b *Bridge) SetResolution(w, h int) {
	b.mustCall(request{Op: "render.resolution", W: w, H: h})
}

func (b *Bridge) SetCropWindow(box *tile.Box) {
	req := request{Op: "render.crop"}
	if box != nil {
		req.Crop = &cropMsg{MinX: box.MinX, MaxX: box.MaxX, MinY: box.MinY, MaxY: box.MaxY}
	}
	b.mustCall(req)
}

func (b *Bridge) SetupWorld(brightness float64) error {
	if _, err := b.call(request{Op: "render.world", Scalar: brightness}); err != nil {
		return &backend.Error{Stage: "render", Err: err}
	}
	return nil
}

func (b *Bridge) RenderToFile(basePath string) error {
	// 粘滞错误在这里汇报：之前任何失败的设置调用都使这次渲染不可信。
	if err := b.Err(); err != nil {
		return &backend.Error{Stage: "render", Path: basePath, Err: err}
	}
	if _, err := b.call(request{Op: "render.file", Path: basePath}); err != nil {
		return &backend.Error{Stage: "render", Path: basePath, Err: err}
	}
	return nil
}

func (b *Bridge) newObject(m objectMsg) *object {
	return &object{b: b, id: m.ID, name: m.Name, hidden: m.HideRender}
}

// remoteID 取出桥对象的宿主句柄；外来对象返回空串。
func remoteID(obj backend.Object) string {
	switch o := obj.(type) {
	case *object:
		return o.id
	case *camera:
		return o.id
	default:
		return ""
	}
}

// object 是宿主场景对象的本地句柄。可见性/剔除状态取自宿主的最近一次
// 枚举并在本地随设置调用同步，避免每个 getter 都打一次往返。
type object struct {
	b      *Bridge
	id     string
	name   string
	hidden bool
}

func (o *object) Name() string     { return o.name }
func (o *object) HideRender() bool { return o.hidden }

func (o *object) SetHideRender(hidden bool) {
	o.hidden = hidden
	v := hidden
	o.b.mustCall(request{Op: "object.hide", ID: o.id, Hidden: &v})
}

func (o *object) Materials() []backend.Material {
	resp, err := o.b.call(request{Op: "object.materials", ID: o.id})
	if err != nil {
		return nil
	}
	out := make([]backend.Material, 0, len(resp.Materials))
	for _, m := range resp.Materials {
		if m.ID == "" { // 空材质槽
			out = append(out, nil)
			continue
		}
		out = append(out, &material{b: o.b, id: m.ID, culling: m.BackfaceCulling})
	}
	return out
}

func (o *object) WorldBounds() (framing.BBox, error) {
	resp, err := o.b.call(request{Op: "object.bounds", ID: o.id})
	if err != nil {
		return framing.BBox{}, &backend.Error{Stage: "scene", Err: err}
	}
	if resp.Bounds == nil {
		return framing.BBox{}, &backend.Error{Stage: "scene", Err: errors.New("宿主没有返回包围盒")}
	}
	return framing.BBox{
		Min: mgl64.Vec3(resp.Bounds.Min),
		Max: mgl64.Vec3(resp.Bounds.Max),
	}, nil
}

type material struct {
	b       *Bridge
	id      string
	culling bool
}

func (m *material) BackfaceCulling() bool { return m.culling }

func (m *material) SetBackfaceCulling(v bool) {
	m.culling = v
	val := v
	m.b.mustCall(request{Op: "material.culling", ID: m.id, Value: &val})
}

type camera struct {
	*object
}

func (c *camera) SetPose(p framing.Pose) {
	msg := poseMsg{
		Position: [3]float64{p.Position.X(), p.Position.Y(), p.Position.Z()},
	}
	copy(msg.View[:], p.View[:])
	c.b.mustCall(request{Op: "camera.pose", ID: c.id, Pose: &msg})
}

func (c *camera) SetOrthoScale(s float64) {
	c.b.mustCall(request{Op: "camera.scale", ID: c.id, Scalar: s})
}
