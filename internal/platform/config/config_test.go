// internal/platform/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConf_PrefixedReads(t *testing.T) {
	t.Setenv("CIRC_PORT", "9090")
	t.Setenv("CIRC_EVENTS", "true")
	t.Setenv("CIRC_CLIENT_TIMEOUT", "3s")
	t.Setenv("CIRC_STORE_DRIVER", "SQLITE3")
	t.Setenv("CIRC_ORIGINS", "http://a.test, ,http://b.test")

	c := New().Prefix("CIRC_")

	assert.Equal(t, ":9090", c.Port("PORT", 8082))
	assert.True(t, c.MayBool("EVENTS", false))
	assert.Equal(t, 3*time.Second, c.MayDuration("CLIENT_TIMEOUT", time.Second))
	assert.Equal(t, "sqlite3", c.MayEnum("STORE_DRIVER", "postgres", "postgres", "pgx", "sqlite3"))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.MayList("ORIGINS", nil))
	assert.Equal(t, "fallback", c.MayString("MISSING", "fallback"))
}

func TestConf_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("X_RPS", "fast")
	t.Setenv("X_PORT", "70000")
	t.Setenv("X_DRIVER", "oracle")

	c := New().Prefix("X_")

	assert.Equal(t, 10.0, c.MayFloat64("RPS", 10))
	assert.Equal(t, ":8080", c.Port("PORT", 8080))
	assert.Equal(t, "postgres", c.MayEnum("DRIVER", "postgres", "postgres", "sqlite3"))
}

func TestConf_MustStringPanicsWhenMissing(t *testing.T) {
	assert.Panics(t, func() { New().Prefix("NOPE_").MustString("DATABASE_URL") })
}
