package preference

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/NewsNow/internal/column"
	"github.com/LJTian/NewsNow/internal/registry"
)

func newReconciler(t *testing.T) *Reconciler {
	t.Helper()
	reg, err := registry.New([]registry.Descriptor{
		{ID: "wallstreetcn-quick", Column: "finance"},
		{ID: "jin10", Column: "finance"},
		{ID: "cls-telegraph", Column: "finance"},
		{ID: "xueqiu-hotstock", Column: "finance"},
		{ID: "xueqiu", Redirect: "xueqiu-hotstock"},
		{ID: "ithome", Column: "tech", Type: "realtime"},
		{ID: "solidot", Column: "tech"},
		{ID: "sspai", Column: "tech"},
		{ID: "36kr-quick", Column: "tech", Type: "realtime"},
		{ID: "36kr", Redirect: "36kr-quick"},
		{ID: "baidu", Column: "china", Type: "hottest"},
		{ID: "zhihu", Column: "china", Type: "hottest"},
	})
	require.NoError(t, err)
	return NewReconciler(reg, column.Compose(reg))
}

func TestReconcileDropsRemovedSources(t *testing.T) {
	r := newReconciler(t)
	got := r.Reconcile(Preference{Data: map[string][]string{
		"news": {"zhihu", "gone", "baidu"},
	}, Action: ActionInit, UpdatedTime: 7})

	assert.Equal(t, []string{"zhihu", "baidu"}, got.Data["news"])
	assert.Equal(t, int64(7), got.UpdatedTime)
	assert.Equal(t, ActionInit, got.Action)
}

func TestReconcileRewritesRedirectInPlace(t *testing.T) {
	r := newReconciler(t)
	got := r.Reconcile(Preference{Data: map[string][]string{
		"realtime": {"36kr", "ithome"},
	}})
	assert.Equal(t, []string{"36kr-quick", "ithome"}, got.Data["realtime"])
}

func TestReconcileAppendsNewSourcesThenReapplyRules(t *testing.T) {
	r := newReconciler(t)

	// 用户把 solidot 排在最前；新增的 36kr-quick 重新被规则放到首位，sspai 落在 ithome 之后
	got := r.Reconcile(Preference{Data: map[string][]string{
		"tech": {"solidot", "ithome"},
	}})
	assert.Equal(t, []string{"36kr-quick", "solidot", "ithome", "sspai"}, got.Data["tech"])

	got = r.Reconcile(Preference{Data: map[string][]string{
		"finance": {"cls-telegraph", "xueqiu"},
	}})
	assert.Equal(t, []string{"xueqiu-hotstock", "jin10", "cls-telegraph", "wallstreetcn-quick"}, got.Data["finance"])
}

func TestReconcileFocusOnlyFilters(t *testing.T) {
	r := newReconciler(t)
	got := r.Reconcile(Preference{Data: map[string][]string{
		column.Focus: {"zhihu", "removed", "xueqiu", "xueqiu-hotstock"},
	}})
	assert.Equal(t, []string{"zhihu", "xueqiu-hotstock"}, got.Data[column.Focus])
}

func TestReconcileFillsMissingAndDropsUnknownColumns(t *testing.T) {
	r := newReconciler(t)
	got := r.Reconcile(Preference{Data: map[string][]string{
		"china": {"baidu"},
	}})
	_, hidden := got.Data["china"]
	assert.False(t, hidden)
	assert.Equal(t, r.Default().Data, got.Data)
}

func TestLoadFallsBackOnMalformedDocument(t *testing.T) {
	r := newReconciler(t)
	for _, raw := range []string{"", "not json", `{"updatedTime": 3}`, `{"data": {}, "updatedTime": -1}`} {
		got := r.Load([]byte(raw))
		assert.Equal(t, r.Default(), got, "input %q", raw)
	}
}

func TestLoadMarksInit(t *testing.T) {
	r := newReconciler(t)
	raw, _ := json.Marshal(Preference{Data: map[string][]string{"news": {"zhihu"}}, Action: ActionManual, UpdatedTime: 5})
	got := r.Load(raw)
	assert.Equal(t, ActionInit, got.Action)
	assert.Equal(t, []string{"zhihu", "baidu"}, got.Data["news"])
}

func TestStoreLastWriterWins(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV(), newReconciler(t))

	ok, err := s.Save(ctx, "c1", Preference{Data: map[string][]string{"news": {"zhihu"}}, UpdatedTime: 0})
	require.NoError(t, err)
	assert.False(t, ok, "updatedTime 0 must not overwrite the implicit default")

	ok, err = s.Save(ctx, "c1", Preference{Data: map[string][]string{"news": {"zhihu"}}, Action: ActionManual, UpdatedTime: 10})
	require.NoError(t, err)
	assert.True(t, ok)

	for _, ts := range []int64{10, 9} {
		ok, err = s.Save(ctx, "c1", Preference{Data: map[string][]string{"news": {"baidu"}}, UpdatedTime: ts})
		require.NoError(t, err)
		assert.False(t, ok)
	}

	got, err := s.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"zhihu", "baidu"}, got.Data["news"])
	assert.Equal(t, int64(10), got.UpdatedTime)

	ok, err = s.Save(ctx, "c1", Preference{Data: map[string][]string{"news": {"baidu"}}, UpdatedTime: 11})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreLoadMissingReturnsDefault(t *testing.T) {
	r := newReconciler(t)
	s := NewStore(NewMemoryKV(), r)
	got, err := s.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, r.Default(), got)
}
