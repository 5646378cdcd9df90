package tui

type View int

const (
	ViewCategories View = iota
	ViewJoke
	ViewSearch
)

type rowKind int

const (
	rowCategory rowKind = iota
	rowJoke
	rowMore
)

// row is one selectable line of the category list.
type row struct {
	kind     rowKind
	category string
	number   int // 1-based position of the category
	joke     string
	position int // joke position within its category
}
