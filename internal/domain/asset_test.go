package domain

import (
	"path/filepath"
	"testing"
)

func mkAsset(root, sub, filename string) Asset {
	ext := filepath.Ext(filename)
	return Asset{
		FileName: filename,
		Base:     filename[:len(filename)-len(ext)],
		Ext:      ext,
		AbsPath:  filepath.Join(root, sub, filename),
		Root:     root,
		Subpath:  sub,
	}
}

func TestAsset_Less_DepthBeforeName(t *testing.T) {
	root := filepath.Join("/", "models")
	shallow := mkAsset(root, "", "Zebra.obj")
	deep := mkAsset(root, "sub", "apple.obj")

	// 浅路径永远在前，与文件名无关。
	if !shallow.Less(deep) {
		t.Fatalf("期望浅路径 %q 排在 %q 之前", shallow.FileName, deep.FileName)
	}
	if deep.Less(shallow) {
		t.Fatalf("深路径不应排在浅路径之前")
	}
}

func TestAsset_Less_SameDepthCaseInsensitive(t *testing.T) {
	root := filepath.Join("/", "models")
	a := mkAsset(root, "sub", "apple.obj")
	z := mkAsset(root, "sub", "Zebra.obj")

	if !a.Less(z) {
		t.Fatalf("同深度下 apple.obj 应排在 Zebra.obj 之前（大小写不敏感）")
	}
	if z.Less(a) {
		t.Fatalf("排序不对称：Zebra.obj 不应排在 apple.obj 之前")
	}
}

func TestAsset_Depth(t *testing.T) {
	root := filepath.Join("/", "models")
	if got := mkAsset(root, "", "a.obj").Depth(); got != 0 {
		t.Fatalf("顶层文件 depth 期望 0，实际 %d", got)
	}
	sub2 := filepath.Join("a", "b")
	if got := mkAsset(root, sub2, "a.obj").Depth(); got != 2 {
		t.Fatalf("a/b 下文件 depth 期望 2，实际 %d", got)
	}
}

func TestAsset_SamePath_CaseInsensitive(t *testing.T) {
	root := filepath.Join("/", "models")
	a := mkAsset(root, "", "Cube.obj")
	b := mkAsset(root, "", "Cube.obj")
	b.AbsPath = filepath.Join(root, "CUBE.OBJ")
	if !a.SamePath(b) {
		t.Fatalf("路径比较应大小写不敏感")
	}
}

func TestExportPath_FlattenSuffix(t *testing.T) {
	root := filepath.Join("/", "models")
	export := filepath.Join("/", "export")
	a := mkAsset(root, "sub", "cube.obj")

	got := a.ExportPath(DirPosZ, export, NamingFlatten, SuffixAppend)
	want := filepath.Join(export, "cube_Z")
	if got != want {
		t.Fatalf("flatten+append 期望 %q，实际 %q", want, got)
	}

	got = a.ExportPath(DirPosZ, export, NamingFlatten, SuffixPrepend)
	want = filepath.Join(export, "Z_cube")
	if got != want {
		t.Fatalf("flatten+prepend 期望 %q，实际 %q", want, got)
	}
}

func TestExportPath_KeepRelativePath(t *testing.T) {
	root := filepath.Join("/", "models")
	export := filepath.Join("/", "export")
	sub := filepath.Join("props", "barrels")
	a := mkAsset(root, sub, "barrel.glb")

	got := a.ExportPath(DirNegX, export, NamingKeepRelativePath, SuffixAppend)
	want := filepath.Join(export, "props", "barrels", "barrel_-X")
	if got != want {
		t.Fatalf("keeppath 期望 %q，实际 %q", want, got)
	}
}

func TestExportPath_FlattenByFullPath(t *testing.T) {
	root := filepath.Join("/", "models")
	export := filepath.Join("/", "export")
	sub := filepath.Join("props", "barrels")
	a := mkAsset(root, sub, "barrel.glb")

	got := a.ExportPath(DirPosY, export, NamingFlattenByFullPath, SuffixAppend)
	want := filepath.Join(export, "props_barrels_barrel_Y")
	if got != want {
		t.Fatalf("flatten_pathname 期望 %q，实际 %q", want, got)
	}

	// 顶层文件没有子路径：不产生前导下划线。
	top := mkAsset(root, "", "barrel.glb")
	got = top.ExportPath(DirPosY, export, NamingFlattenByFullPath, SuffixAppend)
	want = filepath.Join(export, "barrel_Y")
	if got != want {
		t.Fatalf("顶层 flatten_pathname 期望 %q，实际 %q", want, got)
	}
}

func TestExportPath_FlattenByFolder(t *testing.T) {
	root := filepath.Join("/", "models")
	export := filepath.Join("/", "export")
	sub := filepath.Join("props", "barrels")
	a := mkAsset(root, sub, "barrel.glb")

	got := a.ExportPath(DirNegZ, export, NamingFlattenByFolder, SuffixPrepend)
	want := filepath.Join(export, "-Z_barrels")
	if got != want {
		t.Fatalf("flatten_foldername 期望 %q，实际 %q", want, got)
	}

	// 顶层文件退化为文件名本身。
	top := mkAsset(root, "", "barrel.glb")
	got = top.ExportPath(DirNegZ, export, NamingFlattenByFolder, SuffixAppend)
	want = filepath.Join(export, "barrel_-Z")
	if got != want {
		t.Fatalf("顶层 flatten_foldername 期望 %q，实际 %q", want, got)
	}
}

func TestExportPath_TrailingSeparatorStripped(t *testing.T) {
	root := filepath.Join("/", "models")
	export := filepath.Join("/", "export")
	a := mkAsset(root, "sub", "cube.obj")
	a.Subpath = "sub" + string(filepath.Separator)

	got := a.ExportPath(DirPosX, export, NamingFlattenByFullPath, SuffixAppend)
	want := filepath.Join(export, "sub_cube_X")
	if got != want {
		t.Fatalf("尾分隔符应被剥除：期望 %q，实际 %q", want, got)
	}
}
