package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string

	// QuorumExtraVotes is added to the absolute-majority floor when computing
	// the quorum threshold. Council bylaws vary; 0 keeps floor(eligible/2)+1.
	QuorumExtraVotes int

	// CouncilRoster is the deployment-injected membership list used when no
	// external membership service is wired. One member id per entry.
	CouncilRoster []string

	AuditMaxAttempts  int
	AuditRetryBackoff time.Duration

	OutboxBatchSize    int
	OutboxPollInterval time.Duration
	EnableOutboxRelay  bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "concilium"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		QuorumExtraVotes: envInt("QUORUM_EXTRA_VOTES", 0),
		CouncilRoster:    envList("COUNCIL_ROSTER"),

		AuditMaxAttempts:  envInt("AUDIT_MAX_ATTEMPTS", 3),
		AuditRetryBackoff: time.Duration(envInt("AUDIT_RETRY_BACKOFF_MS", 200)) * time.Millisecond,

		OutboxBatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),
		OutboxPollInterval: time.Duration(envInt("OUTBOX_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		EnableOutboxRelay:  envBool("ENABLE_OUTBOX_RELAY", true),
	}, nil
}

func envList(name string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, part)
	}
	return items
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
