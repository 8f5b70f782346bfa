package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		SourceRoot: "/abs/models",
		ExportRoot: "/abs/export",
		DryRun:     true,
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []AssetResult{
			{Asset: "b/two.obj", Status: StatusPlanned},
			{Asset: "", Status: StatusFailed}, // 配置/扫描级合成项
			{Asset: "a.obj", Status: StatusProcessed},
		},
	}

	r.Finalize()

	// asset=="" 必须排在最后；其余按相对路径字典序。
	if r.Items[0].Asset != "a.obj" || r.Items[1].Asset != "b/two.obj" || r.Items[2].Asset != "" {
		t.Fatalf("items 排序不符合契约：%v", []string{r.Items[0].Asset, r.Items[1].Asset, r.Items[2].Asset})
	}
	if r.Summary.Processed != 1 || r.Summary.Planned != 1 || r.Summary.Failed != 1 {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if len(b) == 0 || !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}
