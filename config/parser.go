package config

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

// Parser resolves dotted paths such as "storage.fallback.driver" against the
// YAML document of a loaded config.
type Parser struct {
	root *yaml.Node
}

func NewParser(config *types.ServiceConfig) *Parser {
	root := &yaml.Node{}
	if err := root.Encode(config); err != nil {
		return &Parser{}
	}
	return &Parser{root: root}
}

func (p *Parser) GetValue(path string, defaultValue interface{}) interface{} {
	node := p.lookup(path)
	if node == nil {
		return defaultValue
	}

	var value interface{}
	if err := node.Decode(&value); err != nil || value == nil {
		return defaultValue
	}
	return value
}

func (p *Parser) GetAs(path string, target interface{}) error {
	node := p.lookup(path)
	if node == nil {
		return types.Errorf(types.ErrConfigNotFound, "path: %s", path)
	}
	return types.WrapError(node.Decode(target), "failed to decode config value")
}

func (p *Parser) lookup(path string) *yaml.Node {
	node := p.root
	if node == nil {
		return nil
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if path == "" {
		return node
	}

	for _, part := range strings.Split(path, ".") {
		if node.Kind != yaml.MappingNode {
			return nil
		}

		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == part {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil || next.Tag == "!!null" {
			return nil
		}
		node = next
	}
	return node
}
