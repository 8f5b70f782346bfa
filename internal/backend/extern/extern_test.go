package extern_test

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/orthosnap/internal/backend"
	"github.com/John-Robertt/orthosnap/internal/backend/extern"
	"github.com/John-Robertt/orthosnap/internal/tile"
)

// hostMsg 镜像桥的请求结构（测试端只关心这些字段）。
type hostMsg struct {
	Op     string          `json:"op"`
	ID     string          `json:"id"`
	Path   string          `json:"path"`
	Hidden *bool           `json:"hidden"`
	Crop   json.RawMessage `json:"crop"`
	Scalar float64         `json:"scalar"`
	W      int             `json:"w"`
	H      int             `json:"h"`
}

// scriptHost 扮演渲染宿主：按固定脚本应答并记录全部指令。
type scriptHost struct {
	mu     sync.Mutex
	ops    []hostMsg
	reject map[string]string // op -> 拒绝消息
}

func (h *scriptHost) serve(conn net.Conn) {
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req hostMsg
		if err := dec.Decode(&req); err != nil {
			return
		}
		h.mu.Lock()
		h.ops = append(h.ops, req)
		msg, rejected := h.reject[req.Op]
		h.mu.Unlock()

		if req.Op == "quit" {
			return
		}
		if rejected {
			_ = enc.Encode(map[string]any{"ok": false, "error": msg})
			continue
		}

		resp := map[string]any{"ok": true}
		switch req.Op {
		case "import":
			resp["object"] = map[string]any{"id": "obj-1", "name": "merged", "hide_render": true}
		case "scene.camera":
			resp["object"] = map[string]any{"id": "cam-1", "name": "OrthoCam"}
		case "scene.objects":
			resp["objects"] = []map[string]any{{"id": "pre-1", "name": "existing", "hide_render": false}}
		case "object.bounds":
			resp["bounds"] = map[string]any{"min": []float64{0, 0, 0}, "max": []float64{1, 2, 3}}
		case "object.materials":
			resp["materials"] = []map[string]any{{"id": "mat-1", "backface_culling": false}, {"id": ""}}
		}
		_ = enc.Encode(resp)
	}
}

func (h *scriptHost) opNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.ops))
	for _, m := range h.ops {
		out = append(out, m.Op)
	}
	return out
}

func newBridge(t *testing.T, h *scriptHost) *extern.Bridge {
	t.Helper()
	cli, srv := net.Pipe()
	go h.serve(srv)
	b := extern.New(cli, zerolog.Nop())
	t.Cleanup(func() {
		_ = cli.Close()
		_ = srv.Close()
	})
	return b
}

func TestBridge_ImportAndShoot(t *testing.T) {
	h := &scriptHost{}
	b := newBridge(t, h)

	obj, err := b.Import("/models/a.glb")
	if err != nil {
		t.Fatalf("导入失败：%v", err)
	}
	if obj.Name() != "merged" || !obj.HideRender() {
		t.Fatalf("导入对象状态不符：%v %v", obj.Name(), obj.HideRender())
	}

	bb, err := obj.WorldBounds()
	if err != nil {
		t.Fatalf("包围盒失败：%v", err)
	}
	if bb.Max.Y() != 2 || bb.Max.Z() != 3 {
		t.Fatalf("包围盒不符：%+v", bb)
	}

	mats := obj.Materials()
	if len(mats) != 2 || mats[1] != nil {
		t.Fatalf("材质槽不符（应含一个空槽）：%v", mats)
	}
	mats[0].SetBackfaceCulling(true)
	if !mats[0].BackfaceCulling() {
		t.Fatal("剔除状态未同步到本地句柄")
	}

	b.SetResolution(128, 64)
	b.SetCropWindow(&tile.Box{MinX: 0, MaxX: 0.5, MinY: 0, MaxY: 1})
	if err := b.SetupWorld(1.5); err != nil {
		t.Fatalf("全局设置失败：%v", err)
	}
	if err := b.RenderToFile("/out/a_X_1_1"); err != nil {
		t.Fatalf("渲染失败：%v", err)
	}
	if err := b.Delete(obj); err != nil {
		t.Fatalf("删除失败：%v", err)
	}

	want := []string{
		"import", "object.bounds", "object.materials", "material.culling",
		"render.resolution", "render.crop", "render.world", "render.file", "scene.delete",
	}
	got := h.opNames()
	if len(got) != len(want) {
		t.Fatalf("指令序列长度不符：期望 %v 实际 %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("第 %d 条指令不符：期望 %s 实际 %s", i, want[i], got[i])
		}
	}
}

func TestBridge_SceneObjectsAndVisibility(t *testing.T) {
	h := &scriptHost{}
	b := newBridge(t, h)

	objs := b.Objects()
	if len(objs) != 1 || objs[0].Name() != "existing" || objs[0].HideRender() {
		t.Fatalf("场景枚举不符：%v", objs)
	}
	objs[0].SetHideRender(true)
	if !objs[0].HideRender() {
		t.Fatal("可见性未同步到本地句柄")
	}

	h.mu.Lock()
	last := h.ops[len(h.ops)-1]
	h.mu.Unlock()
	if last.Op != "object.hide" || last.ID != "pre-1" || last.Hidden == nil || !*last.Hidden {
		t.Fatalf("object.hide 指令不符：%+v", last)
	}
}

func TestBridge_HostRejectionMapsToRenderError(t *testing.T) {
	h := &scriptHost{reject: map[string]string{"render.file": "磁盘已满"}}
	b := newBridge(t, h)

	err := b.RenderToFile("/out/a_X")
	var be *backend.Error
	if !errors.As(err, &be) || be.Stage != "render" {
		t.Fatalf("期望 render 阶段的结构化错误，实际 %v", err)
	}
}

func TestBridge_BrokenPipeBecomesStickyError(t *testing.T) {
	cli, srv := net.Pipe()
	_ = srv.Close() // 宿主立即消失
	b := extern.New(cli, zerolog.Nop())
	t.Cleanup(func() { _ = cli.Close() })

	b.SetResolution(64, 64) // 无 error 返回：失败进入粘滞错误
	if b.Err() == nil {
		t.Fatal("断开的连接应记录粘滞错误")
	}
	if err := b.RenderToFile("/out/x"); err == nil {
		t.Fatal("粘滞错误应由下一次渲染调用上报")
	}
}
