// ABOUTME: Environment-driven configuration for the audio sink node
// ABOUTME: Reads an optional .env file, then env vars with silent fallbacks
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the sink node's environment configuration. Every field has a
// default; unset or unparseable values fall back silently so a stray env var
// can never keep the node from starting.
type Config struct {
	// EnablePlayback routes audio to the device. When false the node runs
	// analyze-only: packets are normalized and observed, nothing plays.
	EnablePlayback bool

	// EnableDebug turns on per-packet stats collection.
	EnableDebug bool

	// DebugMaxEntries bounds the stats ring.
	DebugMaxEntries int

	// DebugFile is where stats flush as JSON.
	DebugFile string

	// SampleRate is the device rate and the declared-rate default for
	// packets that carry none. Zero means adopt the first packet's rate.
	SampleRate int

	// Channels is the channel-count default for packets that carry none.
	Channels int

	// WavFile, when set, captures the post-mix mono stream to a WAV file.
	WavFile string

	// WavMaxSeconds bounds the WAV capture window.
	WavMaxSeconds int
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		EnablePlayback:  envBool("ENABLE_PLAYBACK", true),
		EnableDebug:     envBool("ENABLE_DEBUG", false),
		DebugMaxEntries: envPositiveInt("DEBUG_MAX_ENTRIES", 100),
		DebugFile:       envString("DEBUG_FILE", "audio_debug.json"),
		SampleRate:      envNonNegativeInt("AUDIO_SAMPLE_RATE", 48000),
		Channels:        envPositiveInt("AUDIO_CHANNELS", 1),
		WavFile:         envString("DEBUG_WAV_FILE", ""),
		WavMaxSeconds:   envPositiveInt("DEBUG_WAV_MAX_SECONDS", 30),
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func envPositiveInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envNonNegativeInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}
