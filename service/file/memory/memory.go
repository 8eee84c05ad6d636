// Package memory provides a reference-counted in-process file table.
package memory

import (
	"fmt"
	"path"
	"sync"

	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/file"
)

type entry struct {
	name string
	refs int
}

// Table implements file.Table.
type Table struct {
	mux      sync.Mutex
	next     uint64
	files    map[file.File]*entry
	dirs     map[file.Dir]*entry
	dirNames map[string]file.Dir
}

// New creates a table with the root directory.
func New() *Table {
	return &Table{
		files:    make(map[file.File]*entry),
		dirs:     make(map[file.Dir]*entry),
		dirNames: make(map[string]file.Dir),
	}
}

func (t *Table) Open(name string) (file.File, error) {
	if name == "" {
		return 0, fmt.Errorf("open: empty name: %w", proc.ErrNotFound)
	}
	t.mux.Lock()
	defer t.mux.Unlock()
	t.next++
	f := file.File(t.next)
	t.files[f] = &entry{name: name, refs: 1}
	return f, nil
}

func (t *Table) Dup(f file.File) file.File {
	t.mux.Lock()
	defer t.mux.Unlock()
	if e, ok := t.files[f]; ok {
		e.refs++
	}
	return f
}

func (t *Table) Close(f file.File) {
	t.mux.Lock()
	defer t.mux.Unlock()
	e, ok := t.files[f]
	if !ok {
		return
	}
	if e.refs--; e.refs == 0 {
		delete(t.files, f)
	}
}

// Lookup returns a new reference to the directory at p, creating its entry
// on first use.
func (t *Table) Lookup(p string) (file.Dir, error) {
	if p == "" || !path.IsAbs(p) {
		return 0, fmt.Errorf("lookup %q: %w", p, proc.ErrNotFound)
	}
	p = path.Clean(p)
	t.mux.Lock()
	defer t.mux.Unlock()
	if d, ok := t.dirNames[p]; ok {
		t.dirs[d].refs++
		return d, nil
	}
	t.next++
	d := file.Dir(t.next)
	t.dirs[d] = &entry{name: p, refs: 1}
	t.dirNames[p] = d
	return d, nil
}

func (t *Table) DupDir(d file.Dir) file.Dir {
	t.mux.Lock()
	defer t.mux.Unlock()
	if e, ok := t.dirs[d]; ok {
		e.refs++
	}
	return d
}

func (t *Table) PutDir(d file.Dir) {
	t.mux.Lock()
	defer t.mux.Unlock()
	e, ok := t.dirs[d]
	if !ok {
		return
	}
	if e.refs--; e.refs == 0 {
		delete(t.dirs, d)
		delete(t.dirNames, e.name)
	}
}

// Refs returns the reference count of f.
func (t *Table) Refs(f file.File) int {
	t.mux.Lock()
	defer t.mux.Unlock()
	if e, ok := t.files[f]; ok {
		return e.refs
	}
	return 0
}

// DirRefs returns the reference count of d.
func (t *Table) DirRefs(d file.Dir) int {
	t.mux.Lock()
	defer t.mux.Unlock()
	if e, ok := t.dirs[d]; ok {
		return e.refs
	}
	return 0
}

// OpenFiles returns the number of live files.
func (t *Table) OpenFiles() int {
	t.mux.Lock()
	defer t.mux.Unlock()
	return len(t.files)
}

var _ file.Table = (*Table)(nil)
