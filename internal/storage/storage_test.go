package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LJTian/NewsNow/internal/collector"
	"github.com/LJTian/NewsNow/internal/processor"
)

func sampleRecords() []processor.Record {
	pub := int64(1716170000000)
	return processor.NewSimpleProcessor().Process("zhihu", []collector.Item{
		{ID: "1", Title: "第一条", URL: "https://www.zhihu.com/question/1", PublishedAt: &pub, Extra: collector.Extra{"info": "100 万热度"}},
		{ID: "2", Title: "第二条", URL: "https://www.zhihu.com/question/2"},
	})
}

func TestRowConversionKeepsOrderAndFields(t *testing.T) {
	fetched := time.Date(2024, 5, 20, 4, 0, 0, 0, time.UTC)
	records := sampleRecords()

	rows := make([]News, 0, len(records))
	for _, r := range records {
		rows = append(rows, toRow(r, fetched))
	}
	if rows[0].Key != records[0].Key || rows[0].Rank != 1 || rows[1].Rank != 2 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[1].ExtraData != nil {
		t.Fatalf("empty extra should stay NULL, got %v", rows[1].ExtraData)
	}

	snap := fromRows("zhihu", rows)
	if !snap.FetchedAt.Equal(fetched) || len(snap.Items) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	first := snap.Items[0]
	if first.ID != "1" || first.PublishedAt == nil || *first.PublishedAt != 1716170000000 {
		t.Fatalf("unexpected first item %+v", first)
	}
	if first.Extra["info"] != "100 万热度" {
		t.Fatalf("extra lost: %+v", first.Extra)
	}
}

func TestTruncateRunesDB(t *testing.T) {
	if got := truncateRunesDB("  你好世界  ", 2); got != "你好" {
		t.Fatalf("truncateRunesDB = %q", got)
	}
	if got := truncateRunesDB("short", 10); got != "short" {
		t.Fatalf("truncateRunesDB should keep short text: %q", got)
	}
	if got := toValidUTF8("a\xffb"); got != "a\uFFFDb" {
		t.Fatalf("toValidUTF8 = %q", got)
	}
}

func TestMemoryStoreSnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, ok, err := m.LatestSnapshot(ctx, "zhihu"); ok || err != nil {
		t.Fatalf("expected no snapshot, ok=%v err=%v", ok, err)
	}

	now := time.Now()
	if err := m.SaveSnapshot(ctx, "zhihu", sampleRecords(), now); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = m.RecordFailure(ctx, "zhihu", errors.New("timeout"))
	if m.LastError("zhihu") != "timeout" {
		t.Fatalf("failure not recorded")
	}

	snap, ok, err := m.LatestSnapshot(ctx, "zhihu")
	if err != nil || !ok {
		t.Fatalf("expected snapshot after save, ok=%v err=%v", ok, err)
	}
	if len(snap.Items) != 2 || snap.Items[0].Title != "第一条" || !snap.FetchedAt.Equal(now) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	// 失败不覆盖旧快照；下一次成功清掉失败信息
	if err := m.SaveSnapshot(ctx, "zhihu", sampleRecords()[:1], now.Add(time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, _, _ = m.LatestSnapshot(ctx, "zhihu")
	if len(snap.Items) != 1 || m.LastError("zhihu") != "" {
		t.Fatalf("snapshot should be replaced and failure cleared: %+v", snap)
	}
}
