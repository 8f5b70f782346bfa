package domain

// RenderTask 是一次（资产 × 方向）的渲染任务。
// BasePath 是切片前的目标基础路径；Res/PxPerUnit 由分辨率策略在取景后填入。
// 任务是临时值：生成后立即被消费，不做持久化。
type RenderTask struct {
	Asset     Asset
	Direction Direction
	BasePath  string

	Res       Resolution
	PxPerUnit float64
}
