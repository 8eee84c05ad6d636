// Package file declares the file-table collaborators used by fork and exit:
// open-file references and working-directory references.
package file

// NOFILE is the number of open-file slots per process.
const NOFILE = 16

// File is a reference-counted open file; zero means an empty slot.
type File uint64

// Dir is a reference-counted directory reference; zero means none.
type Dir uint64

// Table manages open files and directory references.
type Table interface {
	// Open returns a new reference to the named file.
	Open(name string) (File, error)
	// Dup adds a reference to f and returns it.
	Dup(f File) File
	// Close drops a reference to f.
	Close(f File)
	// Lookup resolves a directory path.
	Lookup(path string) (Dir, error)
	// DupDir adds a reference to d and returns it.
	DupDir(d Dir) Dir
	// PutDir drops a reference to d.
	PutDir(d Dir)
}
