package export

import (
	"testing"

	"shiori/internal/core"
	"shiori/internal/projection"
)

func TestText(t *testing.T) {
	v := projection.Build([]core.Entry{
		{ID: 1, Date: "2024-05-01", Time: "10:00", Title: "A", Cost: 1000},
		{ID: 2, Date: "2024-05-01", Time: "09:00", Title: "B", Cost: 500, Memo: "朝ごはん"},
		{ID: 3, Title: "お土産", URL: "https://example.com"},
	})

	want := "✈️ 旅のしおり\n" +
		"====================================\n" +
		"💰 合計予算: ¥1,500\n" +
		"====================================\n" +
		"\n" +
		"■ 2024-05-01 (¥1,500)\n" +
		"------------------------\n" +
		"09:00 | B (¥500)\n" +
		"   📝 朝ごはん\n" +
		"\n" +
		"10:00 | A (¥1,000)\n" +
		"\n" +
		"\n" +
		"■ 日付未定 (¥0)\n" +
		"------------------------\n" +
		"--:-- | お土産\n" +
		"   🔗 https://example.com\n" +
		"\n" +
		"\n"

	if got := Text(v); got != want {
		t.Fatalf("unexpected export:\n%s\nwant:\n%s", got, want)
	}
}

func TestTextEmpty(t *testing.T) {
	want := "✈️ 旅のしおり\n" +
		"====================================\n" +
		"💰 合計予算: ¥0\n" +
		"====================================\n" +
		"\n"
	if got := Text(projection.Build(nil)); got != want {
		t.Fatalf("unexpected export:\n%q", got)
	}
}
