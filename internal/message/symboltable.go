package message

import (
	"github.com/robert-malhotra/go-mpo/internal/binary"
)

// SymbolTable is a symbol table message (type 0x0011). It locates the
// B-tree and local heap of an old style group.
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, r *binary.Reader) (*SymbolTable, error) {
	c := newCursor(data, r)
	m := &SymbolTable{BTreeAddress: c.offset(), LocalHeapAddress: c.offset()}
	return m, c.done("symbol table")
}
