// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and the environment.
// - Errors returned from Load wrap this package's sentinel kinds.
package config

// DefaultFeedURL is the round publisher endpoint of a locally running game server.
const DefaultFeedURL = "ws://127.0.0.1:7999/ws/result/publish_results"

// Config contains process configuration for the tracker service and the
// feed simulator.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// FeedURL is the WebSocket endpoint publishing round results.
	FeedURL string `koanf:"feed_url"`

	// FeedReadLimit caps the size of a single inbound frame in bytes.
	FeedReadLimit int64 `koanf:"feed_read_limit"`

	// EventQueueSize bounds the in-memory round event queue.
	EventQueueSize int `koanf:"queue_size"`

	// HistoryCapacity is the per-player bounded balance history length.
	HistoryCapacity int `koanf:"history_capacity"`

	// DedupeRounds enables the replay guard keyed by round number.
	// Off by default: replayed rounds are counted again.
	DedupeRounds bool `koanf:"dedupe_rounds"`

	// DedupeSize bounds how many round numbers the replay guard remembers.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxStandingsLimit caps GET /standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`

	// SubscriberBuffer is the per-subscriber send buffer of the live chart hub.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// KafkaBrokers enables the Kafka display sink when non-empty.
	KafkaBrokers []string `koanf:"kafka_brokers"`

	// KafkaTopic receives round updates when the Kafka sink is enabled.
	KafkaTopic string `koanf:"kafka_topic"`

	// Sim* configure cmd/feed-sim.
	SimAddr         string  `koanf:"sim_addr"`
	SimPlayers      int     `koanf:"sim_players"`
	SimIntervalMS   int     `koanf:"sim_interval_ms"`
	SimStartBalance float64 `koanf:"sim_start_balance"`
	SimMaxBet       int     `koanf:"sim_max_bet"`
	SimRounds       int     `koanf:"sim_rounds"`
	SimSeed         uint64  `koanf:"sim_seed"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		FeedURL:           DefaultFeedURL,
		FeedReadLimit:     1 << 20,
		EventQueueSize:    10_000,
		HistoryCapacity:   1000,
		DedupeRounds:      false,
		DedupeSize:        10_000,
		MaxStandingsLimit: 100,
		SubscriberBuffer:  64,
		KafkaTopic:        "roundwatch.round_updates",
		SimAddr:           "127.0.0.1:7999",
		SimPlayers:        3,
		SimIntervalMS:     1000,
		SimStartBalance:   1000,
		SimMaxBet:         50,
	}
}
