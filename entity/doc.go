// Package entity defines the stored records, their audit columns and the
// read-only projection shapes built from query output.
package entity
