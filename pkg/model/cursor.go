// Package model holds the Song data model: the root Song, its Tracks,
// Modules (plugin slots), Lanes and their sparse LaneItems.
package model

// Cursor addresses a single line within a single lane of a single track.
// Ordering is lexicographic (track, lane, line) so ranges of cursors can be
// compared and sorted for selection.
type Cursor struct {
	Track int
	Lane  int
	Line  int
}

// Less orders cursors lexicographically by (Track, Lane, Line).
func (c Cursor) Less(other Cursor) bool {
	if c.Track != other.Track {
		return c.Track < other.Track
	}
	if c.Lane != other.Lane {
		return c.Lane < other.Lane
	}
	return c.Line < other.Line
}
