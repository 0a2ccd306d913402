package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
)

type Config struct {
	Node     NodeConfig     `yaml:"node"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Health   HealthConfig   `yaml:"health"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Mesh     MeshConfig     `yaml:"mesh"`
	Routing  RoutingConfig  `yaml:"routing"`
}

type NodeConfig struct {
	ID   string `yaml:"id"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type HealthConfig struct {
	Interval         time.Duration `yaml:"interval"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
}

type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

type DeliveryConfig struct {
	CallTimeout time.Duration `yaml:"call_timeout"`
	DedupWindow time.Duration `yaml:"dedup_window"`
}

// MeshConfig declares the topology: every peer node and every routing edge.
// Primary edge order within a (source, intent) pair is declaration order.
type MeshConfig struct {
	Nodes []NodeEntry `yaml:"nodes"`
	Edges []EdgeEntry `yaml:"edges"`
}

type NodeEntry struct {
	ID    string `yaml:"id"`
	Class string `yaml:"class"`
	Addr  string `yaml:"addr"`
}

type EdgeEntry struct {
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Intent   string `yaml:"intent"`
	Kind     string `yaml:"kind"`
	Priority int    `yaml:"priority"`
}

type RoutingConfig struct {
	Rules        []RuleEntry `yaml:"rules"`
	DefaultReply string      `yaml:"default_reply"`
}

// RuleEntry maps trigger keywords in inbound text to a routing intent.
type RuleEntry struct {
	Keywords []string `yaml:"keywords"`
	Intent   string   `yaml:"intent"`
	Reply    string   `yaml:"reply"`
}

func defaults() Config {
	return Config{
		Node: NodeConfig{
			ID:   "dispatch",
			Port: 9002,
		},
		Auth: AuthConfig{
			TokenTTL: time.Minute,
		},
		Health: HealthConfig{
			Interval:         5 * time.Second,
			ProbeTimeout:     3 * time.Second,
			FailureThreshold: 2,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 3,
			Cooldown:         30 * time.Second,
		},
		Delivery: DeliveryConfig{
			CallTimeout: 30 * time.Second,
			DedupWindow: 5 * time.Minute,
		},
		Mesh: MeshConfig{
			Nodes: []NodeEntry{
				{ID: "human-intake", Class: "input", Addr: "http://localhost:9001"},
				{ID: "dispatch", Class: "orchestrator", Addr: "http://localhost:9002"},
				{ID: "fire-chief", Class: "specialist", Addr: "http://localhost:9003"},
				{ID: "civic-alert", Class: "output", Addr: "http://localhost:9004"},
				{ID: "medical", Class: "specialist", Addr: "http://localhost:9005"},
				{ID: "police-chief", Class: "specialist", Addr: "http://localhost:9006"},
				{ID: "utility", Class: "specialist", Addr: "http://localhost:9007"},
				{ID: "iot-sensor", Class: "input", Addr: "http://localhost:9008"},
				{ID: "camera", Class: "input", Addr: "http://localhost:9009"},
			},
			Edges: []EdgeEntry{
				{From: "human-intake", To: "dispatch", Intent: "report", Kind: "primary"},
				{From: "iot-sensor", To: "dispatch", Intent: "report", Kind: "primary"},
				{From: "camera", To: "dispatch", Intent: "report", Kind: "primary"},

				{From: "dispatch", To: "fire-chief", Intent: "fire", Kind: "primary"},
				{From: "dispatch", To: "police-chief", Intent: "fire", Kind: "failover", Priority: 1},
				{From: "dispatch", To: "medical", Intent: "medical", Kind: "primary"},
				{From: "dispatch", To: "police-chief", Intent: "medical", Kind: "failover", Priority: 1},
				{From: "dispatch", To: "police-chief", Intent: "police", Kind: "primary"},
				{From: "dispatch", To: "fire-chief", Intent: "police", Kind: "failover", Priority: 1},
				{From: "dispatch", To: "utility", Intent: "utility", Kind: "primary"},
				{From: "dispatch", To: "fire-chief", Intent: "utility", Kind: "failover", Priority: 1},
				{From: "dispatch", To: "civic-alert", Intent: "alert", Kind: "primary"},
				{From: "dispatch", To: "police-chief", Intent: "alert", Kind: "failover", Priority: 1},

				{From: "fire-chief", To: "civic-alert", Intent: "alert", Kind: "primary"},
				{From: "fire-chief", To: "police-chief", Intent: "alert", Kind: "failover", Priority: 1},
				{From: "medical", To: "civic-alert", Intent: "alert", Kind: "primary"},
				{From: "medical", To: "police-chief", Intent: "alert", Kind: "failover", Priority: 1},
				{From: "police-chief", To: "civic-alert", Intent: "alert", Kind: "primary"},
				{From: "utility", To: "civic-alert", Intent: "alert", Kind: "primary"},
				{From: "utility", To: "fire-chief", Intent: "alert", Kind: "failover", Priority: 1},
			},
		},
		Routing: RoutingConfig{
			Rules: []RuleEntry{
				{Keywords: []string{"fire", "smoke", "burning", "explosion"}, Intent: "fire"},
				{Keywords: []string{"medical", "injury", "injured", "ambulance", "unconscious"}, Intent: "medical"},
				{Keywords: []string{"police", "theft", "robbery", "assault", "crime"}, Intent: "police"},
				{Keywords: []string{"power", "gas leak", "water main", "outage", "utility"}, Intent: "utility"},
				{Keywords: []string{"alert", "broadcast", "announce"}, Intent: "alert"},
			},
			DefaultReply: "report received",
		},
	}
}

// Load layers the configuration: built-in defaults, then the YAML file named
// by MESH_CONFIG (env vars inside it are expanded; a missing file is not an
// error), then process environment overrides.
func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("MESH_CONFIG")
	if path == "" {
		path = "config/mesh.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MESH_NODE_ID"); v != "" {
		cfg.Node.ID = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Node.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("MESH_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
}

func (c *Config) validate() error {
	if c.Node.ID == "" {
		return fmt.Errorf("node.id is required")
	}
	for _, n := range c.Mesh.Nodes {
		if n.ID == c.Node.ID {
			return nil
		}
	}
	return fmt.Errorf("node.id %q is not declared in mesh.nodes", c.Node.ID)
}

// Nodes converts the declared topology to domain nodes.
func (c *Config) Nodes() []mesh.Node {
	nodes := make([]mesh.Node, 0, len(c.Mesh.Nodes))
	for _, n := range c.Mesh.Nodes {
		nodes = append(nodes, mesh.Node{ID: n.ID, Class: mesh.Class(n.Class), Addr: n.Addr})
	}
	return nodes
}

// Edges converts the declared topology to domain edges, preserving
// declaration order.
func (c *Config) Edges() []mesh.Edge {
	edges := make([]mesh.Edge, 0, len(c.Mesh.Edges))
	for _, e := range c.Mesh.Edges {
		edges = append(edges, mesh.Edge{
			From:     e.From,
			To:       e.To,
			Intent:   e.Intent,
			Kind:     mesh.EdgeKind(e.Kind),
			Priority: e.Priority,
		})
	}
	return edges
}

// Self returns this node's own declaration.
func (c *Config) Self() (mesh.Node, bool) {
	for _, n := range c.Mesh.Nodes {
		if n.ID == c.Node.ID {
			return mesh.Node{ID: n.ID, Class: mesh.Class(n.Class), Addr: n.Addr}, true
		}
	}
	return mesh.Node{}, false
}
