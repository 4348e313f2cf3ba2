package otb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTree_FlatChild(t *testing.T) {
	// root { child { 0x01 0x02 } }
	data := []byte{
		nodeStart,
		nodeStart, 0x01, 0x02, nodeEnd,
		nodeEnd,
	}
	root, err := ParseTree(data)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, []byte{0x01, 0x02}, root.Children[0].Data)
}

func TestParseTree_EscapedControlByte(t *testing.T) {
	// root payload contains an escaped 0xFE byte as literal data.
	data := []byte{
		nodeStart,
		nodeEscape, 0xFE,
		nodeEnd,
	}
	root, err := ParseTree(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFE}, root.Data)
}

func TestParseTree_NestedChildren(t *testing.T) {
	data := []byte{
		nodeStart,
		0xAA,
		nodeStart, 0x01, nodeEnd,
		nodeStart, 0x02, nodeEnd,
		nodeEnd,
	}
	root, err := ParseTree(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, root.Data)
	require.Len(t, root.Children, 2)
	assert.Equal(t, []byte{0x01}, root.Children[0].Data)
	assert.Equal(t, []byte{0x02}, root.Children[1].Data)
}

func TestParseTree_RejectsMissingRootMarker(t *testing.T) {
	_, err := ParseTree([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestParseTree_RejectsUnterminatedNode(t *testing.T) {
	_, err := ParseTree([]byte{nodeStart, 0x01})
	require.Error(t, err)
}
