package run

import (
	"time"

	"github.com/John-Robertt/orthosnap/internal/config"
	"github.com/John-Robertt/orthosnap/internal/domain"
)

// Observer 用于把"运行进度/阶段/资产结果"从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 执行严格单线程：事件按发生顺序逐个到达，实现无需加锁。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(cfg config.BatchConfig)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnAssetDone 在某个资产处理完成时调用（用于每条结果的一行输出）。
	OnAssetDone(idx, total int, res domain.AssetResult, dur time.Duration)
}
