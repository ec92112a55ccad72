package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL loads configuration from the .xref.kdl file in root.
// Returns nil, nil when there is no such file.
func LoadKDL(root string) (*Config, error) {
	path := filepath.Join(root, KDLFileName)
	if !fileExists(path) {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KDLFileName, err)
	}

	cfg, err := parseKDL(root, string(content))
	if err != nil {
		return nil, err
	}
	cfg.resolve()
	return cfg, nil
}

// parseKDL reads:
//
//	storage { backend "badger"; dir ".xref/index"; sync_writes true }
//	cache { enabled true; capacity 64; expiry "5s"; cleanup_interval "1s" }
//	watch { enabled true; debounce 250; exclude "**/build/**" "**/gen/**" }
//
// Durations are Go duration strings or integer milliseconds.
func parseKDL(root, content string) (*Config, error) {
	cfg := Default(root)
	cfg.Storage.Dir = DefaultStorageDir

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "storage":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "backend":
					if s, ok := firstStringArg(cn); ok {
						cfg.Storage.Backend = s
					}
				case "dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Storage.Dir = s
					}
				case "sync_writes":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Storage.SyncWrites = b
					}
				}
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Cache.Enabled = b
					}
				case "capacity":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.Capacity = v
					}
				case "expiry":
					if d, ok := firstDurationArg(cn); ok {
						cfg.Cache.Expiry = d
					}
				case "cleanup_interval":
					if d, ok := firstDurationArg(cn); ok {
						cfg.Cache.CleanupInterval = d
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce":
					if d, ok := firstDurationArg(cn); ok {
						cfg.Watch.Debounce = d
					}
				case "exclude":
					// replaces the default exclusions
					cfg.Watch.Exclude = collectStringArgs(cn)
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.RespectGitignore = b
					}
				}
			}
		default:
			log.Printf("WARNING: unknown section '%s' in %s", nodeName(n), KDLFileName)
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstDurationArg(n *document.Node) (time.Duration, bool) {
	if ms, ok := firstIntArg(n); ok {
		return time.Duration(ms) * time.Millisecond, true
	}
	if s, ok := firstStringArg(n); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			log.Printf("WARNING: invalid duration %q for '%s' in %s", s, nodeName(n), KDLFileName)
			return 0, false
		}
		return d, true
	}
	return 0, false
}

// collectStringArgs accepts both `exclude "a" "b"` and `exclude { "a"; "b" }`.
func collectStringArgs(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, child := range n.Children {
		if s, ok := firstStringArg(child); ok {
			out = append(out, s)
		} else if child.Name != nil {
			if s, ok := child.Name.Value.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
