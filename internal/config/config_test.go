package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
logging:
  level: warn
  format: json
redis:
  addr: redis:6379
queue:
  workers: 8
scheduler:
  cronExpression: "*/5 * * * *"
  timezone: Europe/Berlin
  staleAfter: 30m
elasticsearch:
  addresses: ["http://es:9200"]
objectStore:
  endpoint: minio:9000
timeouts:
  document: 12s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Setenv(configPathEnv, writeConfig(t, sampleYAML))

	cfg := Load()

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 8, cfg.Queue.Workers)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.StaleAfter)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, []string{"http://es:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, "minio:9000", cfg.ObjectStore.Endpoint)
	assert.Equal(t, "content-media", cfg.ObjectStore.Bucket, "bucket default survives a partial section")
	assert.Equal(t, 12*time.Second, cfg.Timeouts.Document)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Metadata)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv(configPathEnv, writeConfig(t, sampleYAML))
	t.Setenv(redisAddrEnv, "other:6379")
	t.Setenv(queueWorkersEnv, "2")
	t.Setenv(esAddressesEnv, "http://a:9200, http://b:9200")
	t.Setenv(telegramTokenEnv, "tok")

	cfg := Load()

	assert.Equal(t, "other:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, []string{"http://a:9200", "http://b:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, "tok", cfg.Notifications.Telegram.BotToken)
}

func TestLoadIgnoresBadWorkerCount(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(queueWorkersEnv, "many")

	cfg := Load()
	assert.Equal(t, 4, cfg.Queue.Workers)
}

func TestLoadFallsBackOnUnreadableFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	assert.Equal(t, defaultConfig().Scheduler.CronExpression, cfg.Scheduler.CronExpression)
}

func TestUnknownTimezoneRevertsToUTC(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	cfg.bindTimezone()

	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
}

func TestDefaultStageTimeoutsStayBounded(t *testing.T) {
	t.Parallel()

	tm := defaultConfig().Timeouts
	assert.Equal(t, TimeoutConfig{
		Metadata:       10 * time.Second,
		Readable:       5 * time.Second,
		Document:       15 * time.Second,
		Image:          15 * time.Second,
		Tags:           3 * time.Second,
		Classification: 10 * time.Second,
		Sentiment:      10 * time.Second,
		Fetch:          8 * time.Second,
		Inference:      10 * time.Second,
	}, tm)

	for name, d := range map[string]time.Duration{
		"metadata":       tm.Metadata,
		"readable":       tm.Readable,
		"document":       tm.Document,
		"image":          tm.Image,
		"tags":           tm.Tags,
		"classification": tm.Classification,
		"sentiment":      tm.Sentiment,
		"fetch":          tm.Fetch,
		"inference":      tm.Inference,
	} {
		assert.GreaterOrEqual(t, d, 2*time.Second, name)
		assert.LessOrEqual(t, d, 15*time.Second, name)
	}
	assert.LessOrEqual(t, tm.Fetch, tm.Metadata, "page fetch fits inside the metadata stage")
}
