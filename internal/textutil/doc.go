// Package textutil sanitizes operator-supplied names before they become
// path segments.
package textutil
