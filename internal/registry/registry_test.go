package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryIsValid(t *testing.T) {
	r := Default()
	require.NotEmpty(t, r.IDs())

	for _, d := range r.All() {
		if d.Redirect != "" {
			target, ok := r.Get(d.Redirect)
			require.True(t, ok, "redirect target of %s must exist", d.ID)
			assert.Empty(t, target.Redirect, "redirect chains are not allowed (%s)", d.ID)
			continue
		}
		assert.NotEmpty(t, d.Column, "%s has no column", d.ID)
		assert.Positive(t, d.Interval, "%s has no interval", d.ID)
	}
}

func TestResolve(t *testing.T) {
	r := Default()
	assert.Equal(t, "36kr-quick", r.Resolve("36kr"))
	assert.Equal(t, "36kr-quick", r.Resolve("36kr-quick"))
	assert.Equal(t, "bilibili-hot-search", r.Resolve("bilibili"))
	assert.Equal(t, "unknown", r.Resolve("unknown"))
}

func TestLoadParsesInterval(t *testing.T) {
	r, err := Load([]byte(`
- id: a
  name: A
  column: tech
  interval: 5m
- id: b
  name: B
  column: tech
`))
	require.NoError(t, err)

	a, _ := r.Get("a")
	b, _ := r.Get("b")
	assert.Equal(t, 5*time.Minute, a.Interval)
	assert.Equal(t, defaultInterval, b.Interval)
	assert.Equal(t, []string{"a", "b"}, r.IDs())
}

func TestLoadRejectsBadRegistry(t *testing.T) {
	cases := map[string]string{
		"duplicate": `
- {id: a, name: A}
- {id: a, name: B}`,
		"unknown redirect": `
- {id: a, name: A, redirect: b}`,
		"redirect chain": `
- {id: a, name: A, redirect: b}
- {id: b, name: B, redirect: c}
- {id: c, name: C}`,
		"bad interval": `
- {id: a, name: A, interval: soon}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestCanonicalSkipsRedirects(t *testing.T) {
	r := Default()
	for _, d := range r.Canonical() {
		assert.Empty(t, d.Redirect)
	}
}
