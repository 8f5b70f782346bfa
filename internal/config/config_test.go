package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/orthosnap/internal/domain"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "orthosnap.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
	return path
}

func TestLoadEffective_NoArgsNoConfig(t *testing.T) {
	cwd := t.TempDir()
	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %s，实际 %v", ErrCodeNotFound, err)
	}
}

func TestLoadEffective_ConfigMissingSource(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, `{"export":"/tmp/out","directions":["Z"]}`)
	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeMissingPath {
		t.Fatalf("期望 %s，实际 %v", ErrCodeMissingPath, err)
	}
}

func TestLoadEffective_DefaultsAndNormalization(t *testing.T) {
	cwd := t.TempDir()
	src := filepath.Join(cwd, "models")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	// 方向乱序且重复：应归一为 AllDirections 顺序并去重。
	writeConfig(t, src, `{"directions":["-Z","X","X"],"export":"out"}`)

	eff, err := LoadEffective(cwd, CLIArgs{Source: "models"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if eff.SourceRoot != src {
		t.Fatalf("source 期望 %q，实际 %q", src, eff.SourceRoot)
	}
	if eff.ExportRoot != filepath.Join(cwd, "out") {
		t.Fatalf("export 应相对 cwd 解析：%q", eff.ExportRoot)
	}
	if eff.Apply {
		t.Fatalf("apply 默认应为 false（dry-run）")
	}

	wantDirs := []domain.Direction{domain.DirPosX, domain.DirNegZ}
	if len(eff.Directions) != len(wantDirs) {
		t.Fatalf("方向数期望 %d，实际 %d", len(wantDirs), len(eff.Directions))
	}
	for i := range wantDirs {
		if eff.Directions[i] != wantDirs[i] {
			t.Fatalf("方向顺序未归一：%v", eff.Directions)
		}
	}

	if eff.Scale != domain.ScaleUniformPixels || eff.Divide != domain.DivideMax {
		t.Fatalf("缩放/切片默认值不正确：%v %v", eff.Scale, eff.Divide)
	}
	if eff.Naming != domain.NamingFlatten || eff.Suffix != domain.SuffixAppend {
		t.Fatalf("命名/后缀默认值不正确：%v %v", eff.Naming, eff.Suffix)
	}
	if eff.PixelsPerUnit != DefaultPixelsPerUnit || eff.MaxDimension != DefaultMaxDimension {
		t.Fatalf("像素默认值不正确：%v %v", eff.PixelsPerUnit, eff.MaxDimension)
	}
	if eff.Brightness != 1 {
		t.Fatalf("brightness 默认应为 1，实际 %v", eff.Brightness)
	}
}

func TestLoadEffective_EmptyDirectionsRejected(t *testing.T) {
	cwd := t.TempDir()
	src := filepath.Join(cwd, "models")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	writeConfig(t, src, `{"export":"out","directions":[]}`)

	_, err := LoadEffective(cwd, CLIArgs{Source: "models"})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("空方向集合应为配置错误，实际 %v", err)
	}
}

func TestLoadEffective_ApplyOverride(t *testing.T) {
	cwd := t.TempDir()
	src := filepath.Join(cwd, "models")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	writeConfig(t, src, `{"export":"out","directions":["Z"],"apply":true}`)

	// CLI --apply=false 必须能覆盖 config.apply=true。
	eff, err := LoadEffective(cwd, CLIArgs{Source: "models", Apply: false, ApplySet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Apply {
		t.Fatalf("CLI --apply=false 未能覆盖 config.apply=true")
	}
}

func TestLoadEffective_InvalidEnumRejected(t *testing.T) {
	cwd := t.TempDir()
	src := filepath.Join(cwd, "models")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	cases := []string{
		`{"export":"out","directions":["Z"],"scale_mode":"huge"}`,
		`{"export":"out","directions":["Z"],"divide_mode":"chop"}`,
		`{"export":"out","directions":["Z"],"naming":"nest"}`,
		`{"export":"out","directions":["Z"],"suffix":"middle"}`,
		`{"export":"out","directions":["W"]}`,
		`{"export":"out","directions":["Z"],"max_dimension":100}`,
	}
	for _, c := range cases {
		writeConfig(t, src, c)
		if _, err := LoadEffective(cwd, CLIArgs{Source: "models"}); Code(err) != ErrCodeInvalid {
			t.Fatalf("配置 %s 应被拒绝，实际 %v", c, err)
		}
	}
}

func TestLoadEffective_ClampPaddingBrightness(t *testing.T) {
	cwd := t.TempDir()
	src := filepath.Join(cwd, "models")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	writeConfig(t, src, `{"export":"out","directions":["Z"],"padding":99,"brightness":-3}`)

	eff, err := LoadEffective(cwd, CLIArgs{Source: "models"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Padding != 10 {
		t.Fatalf("padding 应截断到 10，实际 %v", eff.Padding)
	}
	if eff.Brightness != 0 {
		t.Fatalf("brightness 应截断到 0，实际 %v", eff.Brightness)
	}
}

func TestLoadEffective_BackendCmd(t *testing.T) {
	cwd := t.TempDir()
	src := filepath.Join(cwd, "models")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	writeConfig(t, src, `{"export":"out","directions":["Z"],"backend_cmd":["blender","--background","--python","host.py"]}`)

	eff, err := LoadEffective(cwd, CLIArgs{Source: "models"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(eff.BackendCmd) != 4 || eff.BackendCmd[0] != "blender" {
		t.Fatalf("backend_cmd 未透传：%v", eff.BackendCmd)
	}
}
