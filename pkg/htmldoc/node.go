package htmldoc

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// ErrNilReader is returned when Parse is called without input.
var ErrNilReader = errors.New("htmldoc: nil reader")

// Node is a single element (or the document root) that can be queried with
// CSS selectors.
type Node interface {
	// QuerySelector returns the first descendant matching sel.
	QuerySelector(sel string) (Node, bool)

	// QuerySelectorAll returns all descendants matching sel in document order.
	QuerySelectorAll(sel string) []Node

	// Attr returns the value of the named attribute.
	Attr(name string) (string, bool)

	// Text returns the concatenated text content of the node.
	Text() string

	// Parent returns the parent element.
	Parent() (Node, bool)

	// NextElementSibling returns the next sibling that is an element.
	NextElementSibling() (Node, bool)
}

// Parse parses an HTML document from r. The input is assumed to be UTF-8.
func Parse(r io.Reader) (Node, error) {
	if r == nil {
		return nil, ErrNilReader
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &node{sel: doc.Selection}, nil
}

// ParseWithContentType parses an HTML document from r, decoding it to UTF-8
// according to the Content-Type header value and any <meta charset> found in
// the first bytes of the document.
func ParseWithContentType(r io.Reader, contentType string) (Node, error) {
	if r == nil {
		return nil, ErrNilReader
	}
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset %q: %w", contentType, err)
	}
	return Parse(utf8Reader)
}

// ParseString parses an in-memory HTML document.
func ParseString(s string) (Node, error) {
	return Parse(strings.NewReader(s))
}

var selectorCache sync.Map // string -> cascadia.Selector

// compile returns the compiled selector, or nil if sel is invalid.
func compile(sel string) cascadia.Selector {
	if cached, ok := selectorCache.Load(sel); ok {
		return cached.(cascadia.Selector)
	}
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		log.Debug().Err(err).Str("selector", sel).Msg("Invalid CSS selector")
		selectorCache.Store(sel, cascadia.Selector(nil))
		return nil
	}
	selectorCache.Store(sel, compiled)
	return compiled
}

// node implements Node on top of a goquery selection holding exactly one
// html.Node.
type node struct {
	sel *goquery.Selection
}

func wrap(sel *goquery.Selection) (Node, bool) {
	if sel == nil || sel.Length() == 0 {
		return nil, false
	}
	return &node{sel: sel.First()}, true
}

func (n *node) QuerySelector(sel string) (Node, bool) {
	m := compile(sel)
	if m == nil {
		return nil, false
	}
	return wrap(n.sel.FindMatcher(m))
}

func (n *node) QuerySelectorAll(sel string) []Node {
	m := compile(sel)
	if m == nil {
		return nil
	}
	matches := n.sel.FindMatcher(m)
	nodes := make([]Node, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &node{sel: s})
	})
	return nodes
}

func (n *node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n *node) Text() string {
	return n.sel.Text()
}

func (n *node) Parent() (Node, bool) {
	return wrap(n.sel.Parent())
}

func (n *node) NextElementSibling() (Node, bool) {
	return wrap(n.sel.Next())
}
