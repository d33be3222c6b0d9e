package compactast

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"arduinoast.dev/core/pkg/ast"
	"arduinoast.dev/core/pkg/utils"
)

// Writer flattens an AST into the CompactAST binary container.
type Writer struct {
	strings  utils.OrderedMap[string, uint16]
	nodes    []ast.Node
	posCache map[ast.Node]int
}

func NewWriter() *Writer {
	return &Writer{strings: utils.NewOrderedMap[string, uint16]()}
}

// Export serializes root, matching spec §4.6.2's container layout exactly.
// It is the package-level convenience entry point used by pkg/arduinoast.
func Export(root ast.Node) ([]byte, error) {
	w := NewWriter()
	return w.Export(root)
}

func (w *Writer) Export(root ast.Node) ([]byte, error) {
	w.nodes = nil
	w.flatten(root)

	var nodeBuf bytes.Buffer
	for _, n := range w.nodes {
		if err := w.writeNode(&nodeBuf, n); err != nil {
			return nil, err
		}
	}

	var stringBuf bytes.Buffer
	binary.Write(&stringBuf, binary.LittleEndian, uint32(w.strings.Count()))
	for _, s := range w.strings.Keys() {
		b := []byte(s)
		binary.Write(&stringBuf, binary.LittleEndian, uint16(len(b)))
		stringBuf.Write(b)
		stringBuf.WriteByte(0)
	}
	for stringBuf.Len()%4 != 0 {
		stringBuf.WriteByte(0)
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, Magic)
	binary.Write(&out, binary.LittleEndian, Version)
	binary.Write(&out, binary.LittleEndian, uint16(0)) // flags, reserved
	binary.Write(&out, binary.LittleEndian, uint32(len(w.nodes)))
	binary.Write(&out, binary.LittleEndian, uint32(stringBuf.Len()))
	out.Write(stringBuf.Bytes())
	out.Write(nodeBuf.Bytes())

	return out.Bytes(), nil
}

// flatten walks the tree depth-first pre-order (root first), recording every
// node's index as it goes so child links can be resolved to absolute indices.
func (w *Writer) flatten(n ast.Node) int {
	idx := len(w.nodes)
	w.nodes = append(w.nodes, n)
	for _, c := range n.Children() {
		w.flatten(c)
	}
	return idx
}

func (w *Writer) internString(s string) uint16 {
	if idx, ok := w.strings.Get(s); ok {
		return idx
	}
	idx := uint16(w.strings.Count())
	w.strings.Set(s, idx)
	return idx
}

func (w *Writer) writeNode(buf *bytes.Buffer, n ast.Node) error {
	var body bytes.Buffer

	hasValue := n.GetValue().Kind != ast.VNone
	if hasValue {
		if err := w.writeValue(&body, n.GetValue()); err != nil {
			return err
		}
	}

	children := n.Children()
	for _, c := range children {
		idx := w.indexOf(c)
		binary.Write(&body, binary.LittleEndian, uint16(idx))
	}

	flags := uint8(0)
	if len(children) > 0 {
		flags |= flagHasChildren
	}
	if hasValue {
		flags |= flagHasValue
	}

	buf.WriteByte(byte(n.Type()))
	buf.WriteByte(flags)
	binary.Write(buf, binary.LittleEndian, uint16(body.Len()))
	buf.Write(body.Bytes())
	return nil
}

// indexOf finds a child's absolute position in the pre-order node slice. The
// flatten pass already visited every node exactly once in the same order the
// writer now serializes them in, so identity lookup (not value equality) is
// required — done via a position cache built lazily.
func (w *Writer) indexOf(target ast.Node) int {
	if w.posCache == nil {
		w.posCache = make(map[ast.Node]int, len(w.nodes))
		for i, n := range w.nodes {
			w.posCache[n] = i
		}
	}
	return w.posCache[target]
}

func (w *Writer) writeValue(buf *bytes.Buffer, v ast.Value) error {
	switch v.Kind {
	case ast.VNone:
		buf.WriteByte(vtVoid)
	case ast.VBool:
		buf.WriteByte(vtBool)
		if v.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case ast.VNull:
		buf.WriteByte(vtNull)
	case ast.VString:
		buf.WriteByte(vtString)
		idx := w.internString(v.Str)
		binary.Write(buf, binary.LittleEndian, idx)
	case ast.VInt32, ast.VInt64:
		writeNarrowestInt(buf, v.I64)
	case ast.VUint32:
		writeNarrowestUint(buf, uint64(v.U32))
	case ast.VFloat32, ast.VFloat64:
		writeNarrowestFloat(buf, v.F64)
	default:
		return fmt.Errorf("compactast: unknown value kind %d", v.Kind)
	}
	return nil
}

// writeNarrowestInt picks INT8 for -128..127, UINT8 for 0..255 (narrower
// always wins per spec §4.6.3/§8), else INT16/UINT16, else INT32, per the
// "writers MUST pick the narrowest integer type" rule.
func writeNarrowestInt(buf *bytes.Buffer, v int64) {
	switch {
	case v >= -128 && v <= 127:
		buf.WriteByte(vtInt8)
		buf.WriteByte(byte(int8(v)))
	case v >= 0 && v <= 255:
		buf.WriteByte(vtUint8)
		buf.WriteByte(byte(v))
	case v >= -32768 && v <= 32767:
		buf.WriteByte(vtInt16)
		binary.Write(buf, binary.LittleEndian, int16(v))
	case v >= 0 && v <= 65535:
		buf.WriteByte(vtUint16)
		binary.Write(buf, binary.LittleEndian, uint16(v))
	case v >= math.MinInt32 && v <= math.MaxInt32:
		buf.WriteByte(vtInt32)
		binary.Write(buf, binary.LittleEndian, int32(v))
	default:
		buf.WriteByte(vtFloat64)
		binary.Write(buf, binary.LittleEndian, float64(v))
	}
}

func writeNarrowestUint(buf *bytes.Buffer, v uint64) {
	switch {
	case v <= 255:
		buf.WriteByte(vtUint8)
		buf.WriteByte(byte(v))
	case v <= 65535:
		buf.WriteByte(vtUint16)
		binary.Write(buf, binary.LittleEndian, uint16(v))
	case v <= math.MaxUint32:
		buf.WriteByte(vtUint32)
		binary.Write(buf, binary.LittleEndian, uint32(v))
	default:
		buf.WriteByte(vtFloat64)
		binary.Write(buf, binary.LittleEndian, float64(v))
	}
}

// writeNarrowestFloat prefers FLOAT32 when the round-trip through float32 is
// exact, else FLOAT64, per spec §4.6.3.
func writeNarrowestFloat(buf *bytes.Buffer, v float64) {
	f32 := float32(v)
	if float64(f32) == v {
		buf.WriteByte(vtFloat32)
		binary.Write(buf, binary.LittleEndian, f32)
		return
	}
	buf.WriteByte(vtFloat64)
	binary.Write(buf, binary.LittleEndian, v)
}
