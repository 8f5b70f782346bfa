package domain

// Extent 是视平面上要覆盖的二维尺寸（世界单位，已含 padding）。
// 两个分量都必须非负；零尺寸表示包围盒退化，由上游作为错误上报。
type Extent struct {
	W float64
	H float64
}

// Max 返回长边。
func (e Extent) Max() float64 {
	if e.W > e.H {
		return e.W
	}
	return e.H
}

// Resolution 是最终的像素分辨率。合法值两个分量都 >= 1。
type Resolution struct {
	W int
	H int
}
