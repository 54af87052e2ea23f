package model

import "sort"

// BlockType classifies a content block. The set is closed: every switch
// over BlockType in this module handles all five values plus a default
// that reports the value as invalid.
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockHeading   BlockType = "heading"
	BlockTable     BlockType = "table"
	BlockList      BlockType = "list"
	BlockFigure    BlockType = "figure"
)

// Valid reports whether bt is one of the five known block types
func (bt BlockType) Valid() bool {
	switch bt {
	case BlockParagraph, BlockHeading, BlockTable, BlockList, BlockFigure:
		return true
	default:
		return false
	}
}

// ContentBlock is one unit of text produced by upstream structure
// extraction. The block is owned by the external document model; this
// module reads its geometry for anchoring and mutates Content only
// through marker injection.
type ContentBlock struct {
	// BlockID is a stable hierarchical identifier, e.g. "p.materials.001".
	BlockID string `json:"block_id"`

	BlockType BlockType `json:"block_type"`

	// Content is the block's text. Marker injection prepends or appends
	// marker lines here; nothing else in this module writes to it.
	Content string `json:"content"`

	BBox       BBox `json:"bbox"`
	PageNumber int  `json:"page_number"`

	// ReadingOrder is monotonic within a page.
	ReadingOrder int `json:"reading_order"`
}

// Clone returns a copy of the block
func (b *ContentBlock) Clone() *ContentBlock {
	c := *b
	return &c
}

// Document holds the content blocks of one source document, in page and
// reading order. It is the borrowed slice of the external document model
// that the anchoring pipeline operates on.
type Document struct {
	SourcePath string          `json:"source_path,omitempty"`
	Blocks     []*ContentBlock `json:"blocks"`
}

// BlocksOnPage returns all blocks with the given page number, in reading order
func (d *Document) BlocksOnPage(page int) []*ContentBlock {
	var blocks []*ContentBlock
	for _, b := range d.Blocks {
		if b.PageNumber == page {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// FindBlock returns the block with the given id, or nil if absent
func (d *Document) FindBlock(id string) *ContentBlock {
	for _, b := range d.Blocks {
		if b.BlockID == id {
			return b
		}
	}
	return nil
}

// Pages returns the sorted distinct page numbers present in the document
func (d *Document) Pages() []int {
	seen := make(map[int]bool)
	var pages []int
	for _, b := range d.Blocks {
		if !seen[b.PageNumber] {
			seen[b.PageNumber] = true
			pages = append(pages, b.PageNumber)
		}
	}
	sort.Ints(pages)
	return pages
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	c := &Document{
		SourcePath: d.SourcePath,
		Blocks:     make([]*ContentBlock, len(d.Blocks)),
	}
	for i, b := range d.Blocks {
		c.Blocks[i] = b.Clone()
	}
	return c
}
