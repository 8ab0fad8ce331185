package hdf5

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/robert-malhotra/go-mpo/internal/btree"
	"github.com/robert-malhotra/go-mpo/internal/heap"
	"github.com/robert-malhotra/go-mpo/internal/message"
	"github.com/robert-malhotra/go-mpo/internal/object"
)

// Group is an HDF5 group. Groups opened from a file list their members
// from link messages or, in old style files, from a symbol table.
type Group struct {
	file   *File
	path   string
	header *object.Header

	// Set on groups created through a writable file.
	addr     uint64
	parent   *Group
	children map[string]*Group
	links    []*message.Link
}

// member is one named link of a group.
type member struct {
	name     string
	addr     uint64
	soft     string
	external bool
}

// Name returns the last component of the group path.
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return path.Base(g.path)
}

func (g *Group) Path() string { return g.path }

// OpenGroup opens a group by path relative to g.
func (g *Group) OpenGroup(rel string) (*Group, error) {
	obj, err := g.lookup(rel, 0)
	if err != nil {
		return nil, err
	}
	child, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, rel)
	}
	return child, nil
}

// OpenDataset opens a dataset by path relative to g.
func (g *Group) OpenDataset(rel string) (*Dataset, error) {
	obj, err := g.lookup(rel, 0)
	if err != nil {
		return nil, err
	}
	ds, ok := obj.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, rel)
	}
	return ds, nil
}

// lookup walks rel from g. Absolute soft links restart at the root;
// depth counts the soft links followed so far.
func (g *Group) lookup(rel string, depth int) (interface{}, error) {
	var obj interface{} = g
	for _, name := range splitPath(rel) {
		cur, ok := obj.(*Group)
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrNotGroup, name, rel)
		}
		m, err := cur.member(name)
		if err != nil {
			return nil, err
		}

		switch {
		case m.external:
			return nil, fmt.Errorf("%w: external link %s", ErrUnsupported, name)
		case m.soft != "":
			if depth >= MaxLinkDepth {
				return nil, fmt.Errorf("%w: %s", ErrLinkDepth, rel)
			}
			from := cur
			if strings.HasPrefix(m.soft, "/") {
				from = g.file.root
			}
			obj, err = from.lookup(m.soft, depth+1)
		default:
			obj, err = g.file.openAt(m.addr, path.Join(cur.path, name))
		}
		if err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// member finds the link called name.
func (g *Group) member(name string) (member, error) {
	members, err := g.members()
	if err != nil {
		return member{}, err
	}
	for _, m := range members {
		if m.name == name {
			return m, nil
		}
	}
	return member{}, fmt.Errorf("%w: %s", ErrNotFound, path.Join(g.path, name))
}

// members returns the links of g in storage order.
func (g *Group) members() ([]member, error) {
	if g.header == nil {
		return nil, nil
	}
	var out []member
	for _, msg := range g.header.MessagesOf(message.TypeLink) {
		l := msg.(*message.Link)
		out = append(out, member{
			name:     l.Name,
			addr:     l.ObjectAddress,
			soft:     l.SoftLinkValue,
			external: l.IsExternal(),
		})
	}
	if len(out) > 0 {
		return out, nil
	}

	st := g.symbolTable()
	if st == nil {
		return nil, nil
	}
	names, err := heap.ReadLocal(g.file.reader, st.LocalHeapAddress)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", g.path, err)
	}
	entries, err := btree.ReadGroupEntries(g.file.reader, st.BTreeAddress, names)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", g.path, err)
	}
	for _, e := range entries {
		out = append(out, member{name: e.Name, addr: e.ObjectAddress, soft: e.SoftLinkValue})
	}
	return out, nil
}

// symbolTable returns the symbol table message of an old style group. The
// root group may only have one in the superblock scratch pad.
func (g *Group) symbolTable() *message.SymbolTable {
	if st, ok := g.header.Message(message.TypeSymbolTable).(*message.SymbolTable); ok {
		return st
	}
	sb := g.file.superblock
	if g.path == "/" && sb.RootGroupBTreeAddress != 0 {
		return &message.SymbolTable{
			BTreeAddress:     sb.RootGroupBTreeAddress,
			LocalHeapAddress: sb.RootGroupLocalHeapAddress,
		}
	}
	return nil
}

// Members returns the names of the members of g in storage order.
func (g *Group) Members() ([]string, error) {
	members, err := g.members()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.name
	}
	return names, nil
}

// MembersWithPrefix returns the sorted names of members starting with
// prefix.
func (g *Group) MembersWithPrefix(prefix string) ([]string, error) {
	all, err := g.Members()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range all {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// WalkFunc is called for every object of a walk. obj is a *Group or a
// *Dataset, or nil when err is set.
type WalkFunc func(path string, obj interface{}, err error) error

// ErrStopWalk ends a walk early without an error.
var ErrStopWalk = errors.New("walk stopped")

// Walk visits g and every object below it depth first, members in sorted
// order. Soft links are listed but not descended into.
func Walk(g *Group, fn WalkFunc) error {
	err := walk(g, fn)
	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

func walk(g *Group, fn WalkFunc) error {
	if err := fn(g.path, g, nil); err != nil {
		return err
	}
	names, err := g.MembersWithPrefix("")
	if err != nil {
		return err
	}
	for _, name := range names {
		obj, err := g.lookup(name, 0)
		if child, ok := obj.(*Group); ok && err == nil && child.path == path.Join(g.path, name) {
			if err := walk(child, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(path.Join(g.path, name), obj, err); err != nil {
			return err
		}
	}
	return nil
}
