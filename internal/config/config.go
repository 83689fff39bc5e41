package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default configuration values (production)
const (
	DefaultServerURL = "wss://signal.engage-classroom.app/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
	DefaultTURN      = "" // no TURN relay unless configured
	DefaultTURNUser  = ""
	DefaultTURNPass  = ""

	// DefaultMaxAttempts bounds connection attempts per peer record.
	DefaultMaxAttempts = 3
)

// Config holds application configuration
type Config struct {
	// ServerURL is the websocket URL of the broadcast signaling relay
	ServerURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// MaxAttempts is the per-peer connection attempt cutoff
	MaxAttempts int
}

// Options for loading config with CLI flag overrides
type Options struct {
	ServerURL   string
	STUNServer  string
	TURNServer  string
	TURNUser    string
	TURNPass    string
	MaxAttempts int
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	serverURL := firstOf(opts.ServerURL, os.Getenv("ENGAGE_SERVER"), DefaultServerURL)
	stunServer := firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstOf(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN)
	turnUser := firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser)
	turnPass := firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass)

	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		if env := os.Getenv("ENGAGE_MAX_ATTEMPTS"); env != "" {
			n, err := strconv.Atoi(env)
			if err != nil {
				return nil, fmt.Errorf("invalid ENGAGE_MAX_ATTEMPTS value %q: %w", env, err)
			}
			maxAttempts = n
		}
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Config{
		ServerURL:   serverURL,
		STUNServer:  stunServer,
		TURNServer:  turnServer,
		TURNUser:    turnUser,
		TURNPass:    turnPass,
		MaxAttempts: maxAttempts,
	}, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
