package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewNil(t *testing.T) {
	c := New(nil)
	assert.NotNil(t, c.Raw())
	assert.False(t, c.Has("x"))
	assert.Empty(t, c.Keys())
}

func TestAccessors(t *testing.T) {
	c := New(map[string]any{
		"name":     "roll",
		"timeout":  "2m",
		"secs":     3,
		"fsecs":    1.5,
		"enabled":  true,
		"sides":    20,
		"big":      int64(7),
		"whole":    4.0,
		"frac":     4.5,
		"list":     []any{"a", "b"},
		"strs":     []string{"x"},
		"mixed":    []any{"a", 1},
		"nested":   map[string]any{"depth": 2},
		"dur":      time.Second,
		"notalist": "nope",
	})

	assert.Equal(t, "roll", c.String("name", ""))
	assert.Equal(t, "dflt", c.String("sides", "dflt"))

	assert.Equal(t, 2*time.Minute, c.Duration("timeout", 0))
	assert.Equal(t, 3*time.Second, c.Duration("secs", 0))
	assert.Equal(t, 1500*time.Millisecond, c.Duration("fsecs", 0))
	assert.Equal(t, time.Second, c.Duration("dur", 0))
	assert.Equal(t, time.Hour, c.Duration("name", time.Hour))

	assert.True(t, c.Bool("enabled", false))
	assert.True(t, c.Bool("missing", true))

	assert.Equal(t, 20, c.Int("sides", 0))
	assert.Equal(t, 7, c.Int("big", 0))
	assert.Equal(t, 4, c.Int("whole", 0))
	assert.Equal(t, -1, c.Int("frac", -1))

	assert.Equal(t, []string{"a", "b"}, c.StringSlice("list", nil))
	assert.Equal(t, []string{"x"}, c.StringSlice("strs", nil))
	assert.Nil(t, c.StringSlice("mixed", nil))
	assert.Equal(t, []string{"d"}, c.StringSlice("notalist", []string{"d"}))

	assert.Equal(t, 2, c.Section("nested").Int("depth", 0))
	assert.False(t, c.Section("name").Has("depth"))
	assert.Contains(t, c.Keys(), "nested")
}
