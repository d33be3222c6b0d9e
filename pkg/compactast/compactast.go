// Package compactast implements the CompactAST binary codec (spec §4.6): a
// little-endian, bit-exact, round-trippable serialization of pkg/ast trees
// with a deduplicated string table.
//
// Built as a two-phase lowering->codegen pipeline: Writer first flattens the
// tree into a pre-order slice plus a dedup string table, then emits bytes;
// Reader validates the header, reconstructs node records, then runs a second
// "link" pass that wires children back onto their parents.
package compactast

const (
	Magic   uint32 = 0x50545341 // 'ASTP' little-endian
	Version uint16 = 1
)

// Node-level flags (wire format), matches spec §4.6.2.
const (
	flagHasChildren uint8 = 1 << 0
	flagHasValue    uint8 = 1 << 1
)

// Value-type tags, spec §4.6.3.
const (
	vtVoid    byte = 0x00
	vtBool    byte = 0x01
	vtInt8    byte = 0x02
	vtUint8   byte = 0x03
	vtInt16   byte = 0x04
	vtUint16  byte = 0x05
	vtInt32   byte = 0x06
	vtUint32  byte = 0x07
	vtFloat32 byte = 0x0A
	vtFloat64 byte = 0x0B
	vtString  byte = 0x0C
	vtNull    byte = 0x0E
)

// ChildSlots defines, for each node kind, the semantic name of each ordered
// positional child — the table in spec §4.6.4. Reader.link uses this to wire
// positional children back into named slots after loading.
var ChildSlots = map[string][]string{
	"If":             {"condition", "consequent", "alternate"},
	"While":          {"condition", "body"},
	"DoWhile":        {"body", "condition"},
	"For":            {"initializer", "condition", "increment", "body"},
	"RangeFor":       {"variable", "iterable", "body"},
	"Ternary":        {"condition", "consequent", "alternate"},
	"BinaryOp":       {"left", "right"},
	"Assignment":     {"left", "right"},
	"Comma":          {"left", "right"},
	"UnaryOp":        {"operand"},
	"Postfix":        {"operand"},
	"MemberAccess":   {"object", "property"},
	"ArrayAccess":    {"object", "index"},
	"ExpressionStmt": {"expression"},
	"Sizeof":         {"operand"},
	// FuncCall, Switch, Case, VarDecl, FuncDef, Param have variable-length
	// trailing repetition (argument*, case*, (declarator,[init])*, param*) and
	// are linked positionally rather than by a fixed name list; see Reader.link
	// in reader.go.
}
