package pathengine

import (
	"bytes"
	"fmt"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/usestring/recordflat/pkg/contenttype"
)

// htmlEngine runs XPath over HTML parsed with the HTML5 algorithm, so
// records can be table rows or repeated list items of a web page.
type htmlEngine struct {
	compiler xpathCompiler
}

// NewHTML creates the HTML engine.
func NewHTML(opts ...Option) Engine {
	return &htmlEngine{compiler: newXPathCompiler(opts)}
}

func (e *htmlEngine) Format() contenttype.Format {
	return contenttype.HTML
}

func (e *htmlEngine) Parse(data []byte) (*Document, error) {
	root, err := htmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &SourceError{Err: fmt.Errorf("invalid HTML: %w", err)}
	}

	order := make(map[any]int)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		order[n] = len(order)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return &Document{format: contenttype.HTML, root: root, order: order}, nil
}

func (e *htmlEngine) SelectRecords(doc *Document, iterator string) ([]Record, error) {
	root, ok := rootOf[*html.Node](doc)
	if !ok {
		return nil, wrongDocument(e, doc)
	}
	x, err := e.compiler.compile(roleIterator, iterator)
	if err != nil {
		return nil, err
	}
	return selectNodes(doc, x, iterator, htmlquery.CreateXPathNavigator(root), htmlCurrent)
}

func (e *htmlEngine) ExtractField(rec Record, reference string) (Value, error) {
	node, ok := rec.node.(*html.Node)
	if !ok || rec.doc == nil {
		return Value{}, wrongDocument(e, rec.doc)
	}
	x, err := e.compiler.compile(roleReference, reference)
	if err != nil {
		return Value{}, err
	}
	return fieldValue(rec.doc, x, htmlquery.CreateXPathNavigator(node), htmlCurrent), nil
}

func (e *htmlEngine) ValidateIterator(iterator string) error {
	_, err := e.compiler.compile(roleIterator, iterator)
	return err
}

func (e *htmlEngine) ValidateReference(reference string) error {
	_, err := e.compiler.compile(roleReference, reference)
	return err
}

func htmlCurrent(nav xpath.NodeNavigator) *html.Node {
	return nav.(*htmlquery.NodeNavigator).Current()
}
