// Package main hosts cfts-memr, the batch MEMR summary tool.
//
// Each recording path yields a folder of figures beside it. A file that
// fails is reported and skipped; the batch always runs to the end.
package main
