package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rentabot/rentabot/models"
)

// ErrDescriptorEmpty is returned when the resource descriptor contains no
// resources.
var ErrDescriptorEmpty = errors.New("resource descriptor is empty")

// descriptorEntry is the YAML shape of one resource in the descriptor file.
// Durations are given in seconds.
type descriptorEntry struct {
	Description     string `yaml:"description"`
	Endpoint        string `yaml:"endpoint"`
	Tags            string `yaml:"tags"`
	MaxLockDuration int64  `yaml:"max-lock-duration"`
}

// LoadResourceDescriptor reads the YAML resource descriptor at path and
// returns the declared resource specs in file order. The descriptor is a
// mapping of resource name to its settings:
//
//	coffee-machine:
//	  description: Kitchen coffee machine
//	  endpoint: tcp://192.168.1.50
//	  tags: coffee, kitchen
//	  max-lock-duration: 7200
//
// Every field is optional; max-lock-duration is in seconds and falls back to
// DefaultMaxLockDuration when omitted.
func LoadResourceDescriptor(path string) ([]models.ResourceSpec, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator-supplied configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read resource descriptor: %w", err)
	}

	return ParseResourceDescriptor(data)
}

// ParseResourceDescriptor parses descriptor YAML. Resource order follows
// document order, since registration order determines resource ids.
func ParseResourceDescriptor(data []byte) ([]models.ResourceSpec, error) {
	var root yaml.Node

	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse resource descriptor: %w", err)
	}

	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, ErrDescriptorEmpty
	}

	doc := root.Content[0]

	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("resource descriptor must be a mapping of resource names, got %s", nodeKind(doc))
	}

	if len(doc.Content) == 0 {
		return nil, ErrDescriptorEmpty
	}

	specs := make([]models.ResourceSpec, 0, len(doc.Content)/2)
	seen := make(map[string]struct{})

	// Mapping nodes hold alternating key/value children.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keyNode := doc.Content[i]
		valueNode := doc.Content[i+1]

		name := keyNode.Value
		if name == "" {
			return nil, fmt.Errorf("resource descriptor entry %d has an empty name", i/2+1)
		}

		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("resource descriptor declares %q more than once", name)
		}

		seen[name] = struct{}{}

		entry := descriptorEntry{}

		if valueNode.Tag != "!!null" {
			if err := valueNode.Decode(&entry); err != nil {
				return nil, fmt.Errorf("failed to parse resource descriptor entry %q: %w", name, err)
			}
		}

		if entry.MaxLockDuration < 0 {
			return nil, fmt.Errorf("resource %q: max-lock-duration cannot be negative", name)
		}

		maxLockDuration := time.Duration(entry.MaxLockDuration) * time.Second
		if maxLockDuration == 0 {
			maxLockDuration = DefaultMaxLockDuration
		}

		specs = append(specs, models.ResourceSpec{
			Name:            name,
			Description:     entry.Description,
			Endpoint:        entry.Endpoint,
			Tags:            entry.Tags,
			MaxLockDuration: maxLockDuration,
		})
	}

	return specs, nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
