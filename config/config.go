// Package config loads the relay's TOML configuration: one or more
// listener blocks plus the ambient app-level settings (logging, DNS).
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/novarelay/tunrelay/utils"
)

// ListenerConf is one `[[listener]]` table.
type ListenerConf struct {
	ListenPort  int    `toml:"listen_port"`
	Protocol    string `toml:"protocol"`
	WSPath      string `toml:"ws_path"`
	ProxyProto  bool   `toml:"proxy_protocol"`

	AllowedUUIDs         []string `toml:"allowed_uuids"`
	AllowedTrojanHashes  []string `toml:"allowed_trojan_hashes"`

	ConnectTimeoutMs       int `toml:"connect_timeout_ms"`
	HandshakeTimeoutMs     int `toml:"handshake_timeout_ms"`
	UpstreamIdleTimeoutMs  int `toml:"upstream_idle_timeout_ms"`
	MaxHandshakeBufferBytes int `toml:"max_handshake_buffer_bytes"`
}

// UDPConf is the optional `[udp]` table.
type UDPConf struct {
	ListenPort int    `toml:"listen_port"`
	TargetHost string `toml:"udp_target_host"`
	TargetPort int    `toml:"udp_target_port"`
	IdleMs     int    `toml:"udp_idle_ms"`
}

// AppConf is the `[app]` table: ambient logging and DNS settings
// carried regardless of which tunnel features are in scope.
type AppConf struct {
	LogLevel      *int    `toml:"log_level"`
	LogPath       string  `toml:"log_path"`
	LogMaxSizeMB  int     `toml:"log_max_size_mb"`
	LogMaxBackups int     `toml:"log_max_backups"`
	DNSServers    []string `toml:"dns_servers"`
}

// Config is the full TOML document: zero or more listeners, an
// optional UDP forwarder, and the app block.
type Config struct {
	App       AppConf        `toml:"app"`
	Listeners []ListenerConf `toml:"listener"`
	UDP       *UDPConf       `toml:"udp"`
}

// Load reads and parses path.
func Load(path string) (Config, error) {
	var c Config
	bs, err := os.ReadFile(path)
	if err != nil {
		return c, utils.ErrInErr{ErrDesc: "read config failed", ErrDetail: err, Data: path}
	}
	if _, err := toml.Decode(string(bs), &c); err != nil {
		return c, utils.ErrInErr{ErrDesc: "parse config failed", ErrDetail: err, Data: path}
	}
	return c, nil
}

func (a AppConf) LogLevelOrDefault() int {
	if a.LogLevel == nil {
		return utils.DefaultLogLevel
	}
	return *a.LogLevel
}
