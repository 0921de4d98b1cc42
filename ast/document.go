package ast

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeDocument builds a tree from a YAML (or JSON) document. Each node is
// either an integer scalar or a single-key mapping:
//
//	add:
//	  - print:
//	      add: [10, {mul: [2, 5]}]
//	  - 30
//
// "add" and "mul" take a two-element sequence; "print" takes one node.
func DecodeDocument(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode tree document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("decode tree document: empty document")
	}
	return decodeNode(doc.Content[0])
}

func decodeNode(y *yaml.Node) (Node, error) {
	switch y.Kind {
	case yaml.ScalarNode:
		v, err := strconv.ParseInt(y.Value, 0, 32)
		if err != nil {
			return nil, docErrorf(y, "expected 32-bit integer, found %q", y.Value)
		}
		return Num(int32(v)), nil

	case yaml.MappingNode:
		if len(y.Content) != 2 {
			return nil, docErrorf(y, "expected a single-key mapping (add, mul or print)")
		}
		key, val := y.Content[0].Value, y.Content[1]
		switch strings.ToLower(key) {
		case "print":
			inner, err := decodeNode(val)
			if err != nil {
				return nil, err
			}
			return PrintOf(inner), nil
		case "add", "mul":
			if val.Kind != yaml.SequenceNode || len(val.Content) != 2 {
				return nil, docErrorf(val, "%s takes exactly two operands", key)
			}
			left, err := decodeNode(val.Content[0])
			if err != nil {
				return nil, err
			}
			right, err := decodeNode(val.Content[1])
			if err != nil {
				return nil, err
			}
			op := OpAdd
			if strings.ToLower(key) == "mul" {
				op = OpMul
			}
			return &Binary{Op: op, Left: left, Right: right}, nil
		default:
			return nil, docErrorf(y, "unknown node kind %q", key)
		}

	case yaml.AliasNode:
		return nil, docErrorf(y, "aliases are not supported")

	default:
		return nil, docErrorf(y, "unexpected %s", kindName(y.Kind))
	}
}

func docErrorf(y *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("decode tree document: line %d: %s", y.Line, fmt.Sprintf(format, args...))
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	default:
		return "node"
	}
}

// LoadFile reads a tree from path. Files ending in .yaml, .yml or .json are
// decoded as documents; anything else is parsed as an infix expression.
func LoadFile(path string) (Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return DecodeDocument(data)
	default:
		return Parse(string(data))
	}
}
