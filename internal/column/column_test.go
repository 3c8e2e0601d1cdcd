package column

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/NewsNow/internal/registry"
)

func TestPreferredFirst(t *testing.T) {
	got := PreferredFirst{IDs: []string{"A", "B"}}.Apply([]string{"X", "B", "A"})
	assert.Equal(t, []string{"A", "B", "X"}, got)

	got = PreferredFirst{IDs: []string{"A", "B"}}.Apply([]string{"X", "B"})
	assert.Equal(t, []string{"B", "X"}, got)
}

func TestPreferredLast(t *testing.T) {
	got := PreferredLast{IDs: []string{"A", "B"}}.Apply([]string{"B", "X", "A", "Y"})
	assert.Equal(t, []string{"X", "Y", "A", "B"}, got)
}

func TestAnchorInsertion(t *testing.T) {
	rule := AnchorInsertion{Anchor: "M", IDs: []string{"P", "Q"}}

	assert.Equal(t, []string{"N", "M", "P", "Q", "R"}, rule.Apply([]string{"P", "N", "M", "Q", "R"}))
	assert.Equal(t, []string{"N", "R", "P", "Q"}, rule.Apply([]string{"P", "N", "Q", "R"}))
	assert.Equal(t, []string{"N", "M", "R"}, rule.Apply([]string{"N", "M", "R"}))
}

func TestGroupAdjacency(t *testing.T) {
	rule := GroupAdjacency{Move: "g1", Before: "g2"}

	got := rule.Apply([]string{"g1a", "other1", "g2a", "g1b"})
	assert.Equal(t, []string{"other1", "g1a", "g1b", "g2a"}, got)

	// 目标组不存在时保持原样
	in := []string{"g1a", "other1", "g1b"}
	assert.Equal(t, in, rule.Apply(in))
}

func TestRulesDoNotMutateInput(t *testing.T) {
	in := []string{"P", "N", "M", "Q", "R"}
	snapshot := append([]string(nil), in...)
	Pipeline{
		AnchorInsertion{Anchor: "M", IDs: []string{"P", "Q"}},
		PreferredFirst{IDs: []string{"R"}},
		PreferredLast{IDs: []string{"N"}},
		GroupAdjacency{Move: "Q", Before: "M"},
	}.Apply(in)
	assert.Equal(t, snapshot, in)
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Descriptor{
		{ID: "wallstreetcn-quick", Column: "finance", Type: "realtime"},
		{ID: "jin10", Column: "finance", Type: "realtime"},
		{ID: "cls-telegraph", Column: "finance", Type: "realtime"},
		{ID: "xueqiu-hotstock", Column: "finance", Type: "hottest"},
		{ID: "cls-hot", Column: "finance", Type: "hottest"},
		{ID: "xueqiu", Redirect: "xueqiu-hotstock"},
		{ID: "producthunt", Column: "tech", Type: "hottest"},
		{ID: "juejin", Column: "tech", Type: "hottest"},
		{ID: "36kr-renqi", Column: "tech", Type: "hottest"},
		{ID: "ithome", Column: "tech", Type: "realtime"},
		{ID: "sspai", Column: "tech"},
		{ID: "solidot", Column: "tech"},
		{ID: "36kr-quick", Column: "tech", Type: "realtime"},
		{ID: "36kr", Redirect: "36kr-quick"},
		{ID: "baidu", Column: "china", Type: "hottest"},
		{ID: "cankaoxiaoxi", Column: "world", Type: "realtime"},
	})
	require.NoError(t, err)
	return reg
}

func TestComposeColumns(t *testing.T) {
	meta := Compose(testRegistry(t))

	assert.Equal(t, []string{"xueqiu-hotstock", "jin10", "cls-telegraph", "cls-hot", "wallstreetcn-quick"}, meta["finance"].Sources)
	assert.Equal(t, []string{"36kr-quick", "ithome", "sspai", "juejin", "solidot", "producthunt"}, meta["tech"].Sources)
	assert.Equal(t, []string{"baidu"}, meta["news"].Sources)
	assert.Equal(t, []string{"baidu"}, meta["china"].Sources)
	assert.Equal(t, []string{"cankaoxiaoxi"}, meta["world"].Sources)
	assert.Empty(t, meta[Focus].Sources)
	assert.Equal(t, []string{"xueqiu-hotstock", "cls-hot", "juejin", "36kr-renqi", "baidu"}, meta["hottest"].Sources)
	assert.Equal(t, []string{"wallstreetcn-quick", "jin10", "cls-telegraph", "ithome", "36kr-quick", "cankaoxiaoxi"}, meta["realtime"].Sources)
	assert.Equal(t, "财经", meta["finance"].Name)
}

func TestComposeNeverIncludesRedirects(t *testing.T) {
	reg := registry.Default()
	meta := Compose(reg)
	for id, col := range meta {
		for _, s := range col.Sources {
			d, ok := reg.Get(s)
			require.True(t, ok, "%s lists unknown source %s", id, s)
			assert.Empty(t, d.Redirect, "%s lists redirect %s", id, s)
		}
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	reg := registry.Default()
	a, err := json.Marshal(Compose(reg))
	require.NoError(t, err)
	b, err := json.Marshal(Compose(reg))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestFixedColumns(t *testing.T) {
	fixed := Compose(testRegistry(t)).Fixed()
	assert.Len(t, fixed, len(FixedIDs))
	_, hidden := fixed["china"]
	assert.False(t, hidden)
	assert.True(t, IsFixed("tech"))
	assert.False(t, IsFixed("china"))
}
