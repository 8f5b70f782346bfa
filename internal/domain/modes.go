package domain

// 本文件集中定义批处理的四个封闭枚举。
// 字符串形态与配置文件（orthosnap.json）的取值一一对应；
// 解析只能通过 Parse* 函数，未知取值一律失败，不做兜底猜测。

// ScaleMode 决定输出图片如何定尺。
type ScaleMode int

const (
	// ScaleUniformPixels 所有渲染使用相同的每单位像素数（图片大小随模型变化）。
	ScaleUniformPixels ScaleMode = iota
	// ScaleUniformSize 所有渲染图片的长边等于 max_dimension（每单位像素数随模型变化）。
	ScaleUniformSize
)

func (m ScaleMode) String() string {
	if m == ScaleUniformSize {
		return "samesize"
	}
	return "uniformscale"
}

func ParseScaleMode(s string) (ScaleMode, bool) {
	switch s {
	case "uniformscale":
		return ScaleUniformPixels, true
	case "samesize":
		return ScaleUniformSize, true
	default:
		return 0, false
	}
}

// DivideMode 决定超过 max_dimension 的渲染如何处理。
// 仅在 ScaleUniformPixels 下有意义。
type DivideMode int

const (
	// DivideReduce 降低每单位像素数使长边恰好等于 max_dimension。
	DivideReduce DivideMode = iota
	// DivideEven 切成大小均等的子图。
	DivideEven
	// DivideMax 切成尽量取满 max_dimension 的子图，余数落在最后一行/列。
	DivideMax
)

func (m DivideMode) String() string {
	switch m {
	case DivideEven:
		return "evensize"
	case DivideMax:
		return "maxsize"
	default:
		return "reduceres"
	}
}

func ParseDivideMode(s string) (DivideMode, bool) {
	switch s {
	case "reduceres":
		return DivideReduce, true
	case "evensize":
		return DivideEven, true
	case "maxsize":
		return DivideMax, true
	default:
		return 0, false
	}
}

// NamingPolicy 决定源目录结构如何映射到导出路径。
type NamingPolicy int

const (
	// NamingFlatten 全部平铺进导出目录。
	NamingFlatten NamingPolicy = iota
	// NamingKeepRelativePath 在导出目录下保留源目录的相对路径。
	NamingKeepRelativePath
	// NamingFlattenByFolder 平铺，但以所在文件夹命名。
	NamingFlattenByFolder
	// NamingFlattenByFullPath 平铺，但以下划线连接的完整相对路径命名。
	NamingFlattenByFullPath
)

func (p NamingPolicy) String() string {
	switch p {
	case NamingKeepRelativePath:
		return "keeppath"
	case NamingFlattenByFolder:
		return "flatten_foldername"
	case NamingFlattenByFullPath:
		return "flatten_pathname"
	default:
		return "flatten"
	}
}

func ParseNamingPolicy(s string) (NamingPolicy, bool) {
	switch s {
	case "flatten":
		return NamingFlatten, true
	case "keeppath":
		return NamingKeepRelativePath, true
	case "flatten_foldername":
		return NamingFlattenByFolder, true
	case "flatten_pathname":
		return NamingFlattenByFullPath, true
	default:
		return 0, false
	}
}

// SuffixPlacement 决定方向后缀放在文件名的前面还是后面。
type SuffixPlacement int

const (
	// SuffixAppend 形如 example_Z。
	SuffixAppend SuffixPlacement = iota
	// SuffixPrepend 形如 Z_example。
	SuffixPrepend
)

func (p SuffixPlacement) String() string {
	if p == SuffixPrepend {
		return "prepend"
	}
	return "append"
}

func ParseSuffixPlacement(s string) (SuffixPlacement, bool) {
	switch s {
	case "append":
		return SuffixAppend, true
	case "prepend":
		return SuffixPrepend, true
	default:
		return 0, false
	}
}
