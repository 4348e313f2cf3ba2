// Package otb reads the binary item catalog format: a tagged node tree keyed
// by server id, using the same escape-byte container protocol as OTBM
// (§4.5, glossary OTB/OTBM).
package otb

import (
	"github.com/shadowot/realm/internal/apperr"
)

const (
	nodeStart byte = 0xFE
	nodeEnd   byte = 0xFF
	nodeEscape byte = 0xFD
)

// Node is one node in the tagged tree: a byte payload (the node's own data,
// with escape bytes already stripped) and its children in document order.
type Node struct {
	Data     []byte
	Children []*Node
}

// ParseTree parses a complete escape-byte-delimited node tree starting at
// data[0], which must be nodeStart (§4.5). Returns the root node.
func ParseTree(data []byte) (*Node, error) {
	if len(data) == 0 || data[0] != nodeStart {
		return nil, apperr.InvalidAssetFormat("otb: expected root node start marker")
	}
	node, rest, err := parseNode(data[1:])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, apperr.InvalidAssetFormat("otb: trailing bytes after root node")
	}
	return node, nil
}

// parseNode parses one node's payload and children, assuming the leading
// nodeStart byte has already been consumed. Returns the node and the
// remaining unparsed bytes after its closing nodeEnd.
func parseNode(data []byte) (*Node, []byte, error) {
	node := &Node{}
	var payload []byte

	i := 0
	for {
		if i >= len(data) {
			return nil, nil, apperr.InvalidAssetFormat("otb: unterminated node")
		}
		b := data[i]
		switch b {
		case nodeEscape:
			if i+1 >= len(data) {
				return nil, nil, apperr.InvalidAssetFormat("otb: dangling escape byte")
			}
			payload = append(payload, data[i+1])
			i += 2
		case nodeStart:
			child, rest, err := parseNode(data[i+1:])
			if err != nil {
				return nil, nil, err
			}
			node.Children = append(node.Children, child)
			consumed := len(data[i+1:]) - len(rest)
			i = i + 1 + consumed
		case nodeEnd:
			node.Data = payload
			return node, data[i+1:], nil
		default:
			payload = append(payload, b)
			i++
		}
	}
}
