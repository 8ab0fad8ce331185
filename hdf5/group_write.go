package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-mpo/internal/message"
	"github.com/robert-malhotra/go-mpo/internal/object"
)

// CreateGroup creates an empty subgroup of g.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if !g.file.writable {
		return nil, ErrReadOnly
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty group name", ErrInvalidPath)
	}

	addr, err := g.file.writeHeader(object.GroupMessages(nil), object.MinGroupChunk)
	if err != nil {
		return nil, fmt.Errorf("writing group %s: %w", name, err)
	}
	if err := g.link(message.NewHardLink(name, addr)); err != nil {
		return nil, err
	}
	return &Group{file: g.file, path: path.Join(g.path, name), addr: addr, parent: g}, nil
}

// RequireGroup returns the group at rel below g, creating missing
// components. It only sees groups created through this handle.
func (g *Group) RequireGroup(rel string) (*Group, error) {
	cur := g
	for _, name := range splitPath(rel) {
		next, ok := cur.children[name]
		if !ok {
			var err error
			if next, err = cur.CreateGroup(name); err != nil {
				return nil, err
			}
			if cur.children == nil {
				cur.children = make(map[string]*Group)
			}
			cur.children[name] = next
		}
		cur = next
	}
	return cur, nil
}

// link adds a hard link to g. The group is written again at a new
// address holding every link, and its parent is repointed.
func (g *Group) link(l *message.Link) error {
	for _, existing := range g.links {
		if existing.Name == l.Name {
			return fmt.Errorf("link %q already exists in %s", l.Name, g.path)
		}
	}
	g.links = append(g.links, l)
	return g.rewrite()
}

func (g *Group) rewrite() error {
	addr, err := g.file.writeHeader(object.GroupMessages(g.links), object.MinGroupChunk)
	if err != nil {
		return fmt.Errorf("writing group %s: %w", g.path, err)
	}
	g.addr = addr
	if g.parent == nil {
		g.file.superblock.RootGroupAddress = addr
		return nil
	}
	return g.parent.relink(path.Base(g.path), addr)
}

// relink points the named child link at addr.
func (g *Group) relink(name string, addr uint64) error {
	for _, l := range g.links {
		if l.Name == name {
			l.ObjectAddress = addr
			return g.rewrite()
		}
	}
	return fmt.Errorf("%w: link %q in %s", ErrNotFound, name, g.path)
}
