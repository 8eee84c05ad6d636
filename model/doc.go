// Package model contains the data types shared across the machine. The proc
// sub-package defines process table entries, their states and the read-only
// views exposed to callers.
package model
