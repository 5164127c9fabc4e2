package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(-1, time.Minute)
	key := SnapshotKey("/repo/src/app.css")

	_, ok := c.Get(key)
	assert.False(t, ok)

	assert.NoError(t, c.Set(key, []byte("body {}"), 0))
	got, ok := c.Get(key)
	assert.True(t, ok)
	assert.Equal(t, []byte("body {}"), got)
	assert.Equal(t, 1, c.Len())

	assert.NoError(t, c.Delete(key))
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(-1, time.Minute)

	assert.NoError(t, c.Set("k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(-1, time.Minute)
	assert.NoError(t, c.Set("a", []byte("1"), 0))
	assert.NoError(t, c.Set("b", []byte("2"), 0))

	assert.NoError(t, c.Clear())
	assert.Zero(t, c.Len())
}

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, SnapshotKey("/repo/a.css"), SnapshotKey("/repo/./a.css"))
	assert.NotEqual(t, SnapshotKey("/repo/a.css"), SnapshotKey("/repo/b.css"))
}
