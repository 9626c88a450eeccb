package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, parseOrigins(" https://a.test , ,https://b.test"))
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreDriverMemory)
	t.Setenv("PAYLOAD_CACHE_TTL_MINUTES", "5")
	t.Setenv("SUBMIT_RATE_PER_MINUTE", "not-a-number")

	cfg := Load()

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.PayloadCacheTTL)
	assert.Equal(t, 20, cfg.SubmitRatePerMinute)
}

func TestRedisKeysAreNamespaced(t *testing.T) {
	assert.Equal(t, "akademi:exam:42:payload", CacheKey.ExamPayloadKey("42"))
	assert.Equal(t, "akademi:user:u-1:events", CacheKey.UserEventsChannel("u-1"))
	assert.Equal(t, "akademi:certificate_reissue_queue", WorkerKey.ReissueCertificatesQueue)
}
