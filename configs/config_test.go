package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PUBLISH_TIMEOUT", "")
	t.Setenv("PUBLISH_CONCURRENCY", "")
	t.Setenv("SCHEDULER_SPEC", "")

	cfg := LoadConfig()
	assert.Equal(t, "@every 00h01m00s", cfg.Scheduler.Spec)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.PublishTimeout)
	assert.Equal(t, 10, cfg.Scheduler.PublishConcurrency)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.StaleAfter)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PUBLISH_TIMEOUT", "5s")
	t.Setenv("PUBLISH_CONCURRENCY", "3")
	t.Setenv("SCHEDULER_BATCH_SIZE", "not-a-number")
	t.Setenv("TWITTER_CLIENT_ID", "tw-id")

	cfg := LoadConfig()
	assert.Equal(t, 5*time.Second, cfg.Scheduler.PublishTimeout)
	assert.Equal(t, 3, cfg.Scheduler.PublishConcurrency)
	assert.Equal(t, 100, cfg.Scheduler.BatchSize)
	assert.Equal(t, "tw-id", cfg.Twitter.ClientID)
}
