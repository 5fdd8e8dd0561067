// Copyright 2026 Macrometa Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package c8

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/Macrometacorp/jsC8-sub000/picker"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFabricName is the fabric used when Config.FabricName is empty.
const DefaultFabricName = "_system"

const (
	defaultMaxSockets        = 3
	defaultKeepAliveInterval = time.Second
	defaultMaxRedirects      = 10
)

// Config is the configuration surface of a connection. It can be built in
// code or loaded from YAML with LoadConfig.
type Config struct {
	// URLs lists the base URLs of the known hosts. "tcp:" and "ssl:" are
	// accepted as aliases of "http:" and "https:".
	URLs []string `yaml:"urls"`
	// FabricName defaults to DefaultFabricName.
	FabricName string `yaml:"fabricName"`
	// TenantName, if empty, is taken from the "tenant" claim of Token.
	TenantName string `yaml:"tenantName"`
	// Absolute disables the /_fabric/<name> path prefix. Fabric and tenant
	// names cannot be changed on such a connection.
	Absolute              bool            `yaml:"absolutePath"`
	LoadBalancingStrategy picker.Strategy `yaml:"loadBalancingStrategy"`
	// MaxRetries, if nil, allows one retry per additional known host.
	MaxRetries     *int `yaml:"maxRetries"`
	DisableRetries bool `yaml:"disableRetries"`
	// MaxRedirects bounds the leader redirects followed by one request.
	MaxRedirects int               `yaml:"maxRedirects"`
	Headers      map[string]string `yaml:"headers"`
	APIKey       string            `yaml:"apiKey"`
	Token        string            `yaml:"token"`
	Agent        AgentConfig       `yaml:"agent"`
}

// AgentConfig sizes the per-host transports.
type AgentConfig struct {
	// MaxSockets caps connections per host. Defaults to 3.
	MaxSockets int `yaml:"maxSockets"`
	// KeepAlive defaults to true.
	KeepAlive         *bool         `yaml:"keepAlive"`
	KeepAliveInterval time.Duration `yaml:"keepAliveInterval"`
	// Timeout limits the wait for response headers. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`
}

func (cfg Config) withDefaults() Config {
	cfg.URLs = append([]string(nil), cfg.URLs...)
	if cfg.FabricName == "" {
		cfg.FabricName = DefaultFabricName
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if cfg.Agent.MaxSockets <= 0 {
		cfg.Agent.MaxSockets = defaultMaxSockets
	}
	if cfg.Agent.KeepAlive == nil {
		keepAlive := true
		cfg.Agent.KeepAlive = &keepAlive
	}
	if cfg.Agent.KeepAliveInterval <= 0 {
		cfg.Agent.KeepAliveInterval = defaultKeepAliveInterval
	}
	return cfg
}

// LoadConfig reads a YAML configuration file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "c8: reading config")
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration document.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "c8: parsing config")
	}
	return cfg, nil
}
