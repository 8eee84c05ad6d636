package yml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNode(t *testing.T) {
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("steps:\n  - yield\n  - work: 3\n    repeat: 2\n"), &doc))
	root := (*Node)(doc.Content[0])
	require.True(t, root.IsMap())
	steps := root.Lookup("steps")
	require.NotNil(t, steps)
	assert.Nil(t, root.Lookup("missing"))

	var kinds []string
	require.NoError(t, steps.Items(func(index int, node *Node) error {
		if node.IsScalar() {
			kinds = append(kinds, node.Value)
			return nil
		}
		kinds = append(kinds, node.Keys()...)
		return nil
	}))
	assert.Equal(t, []string{"yield", "work", "repeat"}, kinds)

	scalar := (*Node)(steps.Content[0])
	err := scalar.Pairs(func(string, *Node) error { return nil })
	assert.Error(t, err)
	assert.Contains(t, scalar.Errorf("bad %s", "step").Error(), "line 2: bad step")

	var work struct{ Work int }
	require.NoError(t, (*Node)(steps.Content[1]).Decode(&work))
	assert.Equal(t, 3, work.Work)
}
