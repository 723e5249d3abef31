package model

// DisplayItemKind tags a display frame item as a bone or morph reference.
type DisplayItemKind uint8

const (
	DisplayBone  DisplayItemKind = 0
	DisplayMorph DisplayItemKind = 1
)

// DisplayItem is one entry of a display frame.
type DisplayItem struct {
	Kind  DisplayItemKind
	Index Ref
}

// DisplayFrame is a named, ordered grouping of bone/morph references used for
// UI organization. The two conventional frames ("Root" and the expression
// frame) carry Special; host editors protect them by convention only.
type DisplayFrame struct {
	Name   string
	NameEN string

	Special bool
	Items   []DisplayItem
}
