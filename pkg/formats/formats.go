// Package formats reads and writes the KSM binary model format.
//
// A KSM file is a little-endian stream: a count header, a recursive node tree
// whose nodes carry mesh records, animation clips, and a model bounding box.
// Reader and Writer are the sequential cursors used by ParseKSM and EncodeKSM.
package formats
