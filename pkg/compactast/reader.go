package compactast

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"arduinoast.dev/core/pkg/ast"
)

type header struct {
	Magic            uint32
	Version          uint16
	Flags            uint16
	NodeCount        uint32
	StringTableBytes uint32
}

type rawNode struct {
	kind     ast.NodeType
	flags    uint8
	value    ast.Value
	children []uint16
}

// Reader reconstructs an AST from its CompactAST binary form.
type Reader struct {
	data    []byte
	strs    []string
	raw     []rawNode
}

// Parse is the package-level convenience entry point (spec §6.1's
// parseCompactAST) used by pkg/arduinoast.
func Parse(data []byte) (ast.Node, error) {
	r := &Reader{data: data}
	return r.Parse()
}

func (r *Reader) Parse() (ast.Node, error) {
	if len(r.data) < 16 {
		return nil, fmt.Errorf("compactast: truncated header (%d bytes)", len(r.data))
	}
	br := bytes.NewReader(r.data)

	var h header
	binary.Read(br, binary.LittleEndian, &h.Magic)
	binary.Read(br, binary.LittleEndian, &h.Version)
	binary.Read(br, binary.LittleEndian, &h.Flags)
	binary.Read(br, binary.LittleEndian, &h.NodeCount)
	binary.Read(br, binary.LittleEndian, &h.StringTableBytes)

	if h.Magic != Magic {
		return nil, fmt.Errorf("compactast: bad magic 0x%08X, expected 0x%08X", h.Magic, Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("compactast: unsupported version %d", h.Version)
	}

	stringTable := make([]byte, h.StringTableBytes)
	if _, err := br.Read(stringTable); err != nil && h.StringTableBytes > 0 {
		return nil, fmt.Errorf("compactast: truncated string table: %w", err)
	}
	if err := r.readStringTable(stringTable); err != nil {
		return nil, err
	}

	r.raw = make([]rawNode, 0, h.NodeCount)
	for i := uint32(0); i < h.NodeCount; i++ {
		n, err := r.readNode(br)
		if err != nil {
			return nil, fmt.Errorf("compactast: node %d: %w", i, err)
		}
		r.raw = append(r.raw, n)
	}
	if len(r.raw) == 0 {
		return nil, fmt.Errorf("compactast: empty node table")
	}

	nodes := r.materialize()
	r.link(nodes)
	return nodes[0], nil
}

func (r *Reader) readStringTable(buf []byte) error {
	if len(buf) < 4 {
		if len(buf) == 0 {
			return nil
		}
		return fmt.Errorf("compactast: truncated string table header")
	}
	count := binary.LittleEndian.Uint32(buf)
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+2 > len(buf) {
			return fmt.Errorf("compactast: truncated string entry %d", i)
		}
		length := int(binary.LittleEndian.Uint16(buf[pos:]))
		pos += 2
		if pos+length+1 > len(buf) {
			return fmt.Errorf("compactast: truncated string bytes for entry %d", i)
		}
		r.strs = append(r.strs, string(buf[pos:pos+length]))
		pos += length + 1 // +1 skips the NUL terminator
	}
	return nil
}

func (r *Reader) readNode(br *bytes.Reader) (rawNode, error) {
	var kind, flags byte
	var dataSize uint16
	if err := binary.Read(br, binary.LittleEndian, &kind); err != nil {
		return rawNode{}, err
	}
	if err := binary.Read(br, binary.LittleEndian, &flags); err != nil {
		return rawNode{}, err
	}
	if err := binary.Read(br, binary.LittleEndian, &dataSize); err != nil {
		return rawNode{}, err
	}

	body := make([]byte, dataSize)
	if dataSize > 0 {
		if _, err := br.Read(body); err != nil {
			return rawNode{}, err
		}
	}

	n := rawNode{kind: ast.NodeType(kind), flags: flags}
	bodyPos := 0

	if flags&flagHasValue != 0 {
		v, consumed, err := r.readValue(body[bodyPos:])
		if err != nil {
			return rawNode{}, err
		}
		n.value = v
		bodyPos += consumed
	}

	for bodyPos+2 <= len(body) {
		n.children = append(n.children, binary.LittleEndian.Uint16(body[bodyPos:]))
		bodyPos += 2
	}

	return n, nil
}

func (r *Reader) readValue(buf []byte) (ast.Value, int, error) {
	if len(buf) == 0 {
		return ast.NoValue(), 0, fmt.Errorf("missing value tag")
	}
	tag := buf[0]
	switch tag {
	case vtVoid:
		return ast.NoValue(), 1, nil
	case vtBool:
		return ast.BoolValue(buf[1] != 0), 2, nil
	case vtNull:
		return ast.Value{Kind: ast.VNull}, 1, nil
	case vtInt8:
		return ast.Int64Value(int64(int8(buf[1]))), 2, nil
	case vtUint8:
		return ast.Int64Value(int64(buf[1])), 2, nil
	case vtInt16:
		v := int16(binary.LittleEndian.Uint16(buf[1:]))
		return ast.Int64Value(int64(v)), 3, nil
	case vtUint16:
		v := binary.LittleEndian.Uint16(buf[1:])
		return ast.Int64Value(int64(v)), 3, nil
	case vtInt32:
		v := int32(binary.LittleEndian.Uint32(buf[1:]))
		return ast.Int64Value(int64(v)), 5, nil
	case vtUint32:
		v := binary.LittleEndian.Uint32(buf[1:])
		return ast.Uint32Value(v), 5, nil
	case vtFloat32:
		bits := binary.LittleEndian.Uint32(buf[1:])
		return ast.Float32Value(math.Float32frombits(bits)), 5, nil
	case vtFloat64:
		bits := binary.LittleEndian.Uint64(buf[1:])
		return ast.Float64Value(math.Float64frombits(bits)), 9, nil
	case vtString:
		idx := binary.LittleEndian.Uint16(buf[1:])
		if int(idx) >= len(r.strs) {
			return ast.NoValue(), 3, fmt.Errorf("string index %d out of range", idx)
		}
		return ast.StringValue(r.strs[idx]), 3, nil
	default:
		return ast.NoValue(), 1, fmt.Errorf("unknown value tag 0x%02X", tag)
	}
}

// materialize instantiates one concrete ast.Node per rawNode, without linking
// children yet — that happens in link so operator nodes populate via
// SetValue, satisfying the §4.6.5 requirement that the reader's polymorphic
// SetValue populate the operator field, not just a generic value slot.
func (r *Reader) materialize() []ast.Node {
	nodes := make([]ast.Node, len(r.raw))
	for i, rn := range r.raw {
		switch rn.kind {
		case ast.BinaryOp, ast.UnaryOp, ast.Assignment, ast.Postfix:
			op := ""
			if rn.value.Kind == ast.VString {
				op = rn.value.Str
			}
			nodes[i] = ast.NewOperatorNode(rn.kind, op)
		case ast.Error:
			msg := ""
			if rn.value.Kind == ast.VString {
				msg = rn.value.Str
			}
			nodes[i] = ast.NewErrorNode(msg, 0, 0)
		default:
			n := ast.NewNode(rn.kind)
			n.SetValue(rn.value)
			nodes[i] = n
		}
		nodes[i].SetFlags(ast.Flags(rn.flags))
		if rn.kind == ast.BinaryOp || rn.kind == ast.UnaryOp || rn.kind == ast.Assignment || rn.kind == ast.Postfix {
			nodes[i].SetValue(rn.value) // routes through OperatorNode.SetValue
		}
	}
	return nodes
}

// link resolves each node's child indices into Children() and, where the
// kind has fixed named slots (spec §4.6.4), also into Named(). Variable
// arity kinds (FuncCall argument*, Switch case*, Case consequent*, VarDecl
// (declarator,[init])*, FuncDef param*, Param [defaultValue]) are linked
// positionally according to spec's per-kind rule rather than a fixed list.
func (r *Reader) link(nodes []ast.Node) {
	for i, rn := range r.raw {
		n := nodes[i]
		children := make([]ast.Node, len(rn.children))
		for j, idx := range rn.children {
			if int(idx) < len(nodes) {
				children[j] = nodes[idx]
			}
		}
		n.SetChildren(children)

		name := n.Type().String()
		switch name {
		case "FuncCall":
			if len(children) > 0 {
				n.SetNamed("callee", children[0])
			}
		case "Switch":
			if len(children) > 0 {
				n.SetNamed("discriminant", children[0])
			}
		case "Case":
			if len(children) > 0 {
				n.SetNamed("test", children[0])
			}
		case "VarDecl":
			if len(children) > 0 {
				n.SetNamed("type", children[0])
			}
		case "FuncDef":
			if len(children) > 0 {
				n.SetNamed("returnType", children[0])
			}
			if len(children) > 1 {
				n.SetNamed("declarator", children[1])
			}
			if len(children) > 0 {
				n.SetNamed("body", children[len(children)-1])
			}
		case "Param":
			if len(children) > 0 {
				n.SetNamed("paramType", children[0])
			}
			if len(children) > 1 {
				n.SetNamed("declarator", children[1])
			}
			if len(children) > 2 {
				n.SetNamed("defaultValue", children[2])
			}
		default:
			if slots, ok := ChildSlots[name]; ok {
				for j, slot := range slots {
					if j < len(children) {
						n.SetNamed(slot, children[j])
					}
				}
			}
		}
	}
}
