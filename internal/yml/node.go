// Package yml adds navigation helpers on top of yaml.v3 nodes for
// documents that accept more than one shape per field.
package yml

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type (
	Node  yaml.Node
	Nodes []*yaml.Node
)

// LookupValueNode returns the value paired with key in mapping content.
func (n Nodes) LookupValueNode(key string) *yaml.Node {
	for i := 0; i+1 < len(n); i += 2 {
		if n[i].Value == key {
			return n[i+1]
		}
	}
	return nil
}

// IsScalar reports whether n is a scalar.
func (n *Node) IsScalar() bool {
	return n.Kind == yaml.ScalarNode
}

// IsMap reports whether n is a mapping.
func (n *Node) IsMap() bool {
	return n.Kind == yaml.MappingNode
}

func (n *Node) Lookup(name string) *Node {
	return (*Node)(Nodes(n.Content).LookupValueNode(name))
}

func (n *Node) Items(callback func(index int, node *Node) error) error {
	for i := 0; i < len(n.Content); i++ {
		if err := callback(i, (*Node)(n.Content[i])); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := callback(n.Content[i].Value, (*Node)(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the keys of a mapping in document order.
func (n *Node) Keys() []string {
	var result []string
	_ = n.Pairs(func(key string, _ *Node) error {
		result = append(result, key)
		return nil
	})
	return result
}

// Decode decodes n into v.
func (n *Node) Decode(v interface{}) error {
	return (*yaml.Node)(n).Decode(v)
}

// Errorf prefixes an error with the node position.
func (n *Node) Errorf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}
