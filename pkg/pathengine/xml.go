package pathengine

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/usestring/recordflat/pkg/contenttype"
)

type xmlEngine struct {
	compiler xpathCompiler
}

// NewXML creates the XML engine.
func NewXML(opts ...Option) Engine {
	return &xmlEngine{compiler: newXPathCompiler(opts)}
}

func (e *xmlEngine) Format() contenttype.Format {
	return contenttype.XML
}

// Parse builds the xmlquery tree and indexes its nodes in pre-order.
func (e *xmlEngine) Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &SourceError{Err: fmt.Errorf("invalid XML: %w", err)}
	}
	if !hasXMLElement(root) {
		return nil, &SourceError{Err: errors.New("invalid XML: no root element")}
	}

	order := make(map[any]int)
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		order[n] = len(order)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return &Document{format: contenttype.XML, root: root, order: order}, nil
}

func (e *xmlEngine) SelectRecords(doc *Document, iterator string) ([]Record, error) {
	root, ok := rootOf[*xmlquery.Node](doc)
	if !ok {
		return nil, wrongDocument(e, doc)
	}
	x, err := e.compiler.compile(roleIterator, iterator)
	if err != nil {
		return nil, err
	}
	return selectNodes(doc, x, iterator, xmlquery.CreateXPathNavigator(root), xmlCurrent)
}

func (e *xmlEngine) ExtractField(rec Record, reference string) (Value, error) {
	node, ok := rec.node.(*xmlquery.Node)
	if !ok || rec.doc == nil {
		return Value{}, wrongDocument(e, rec.doc)
	}
	x, err := e.compiler.compile(roleReference, reference)
	if err != nil {
		return Value{}, err
	}
	return fieldValue(rec.doc, x, xmlquery.CreateXPathNavigator(node), xmlCurrent), nil
}

func (e *xmlEngine) ValidateIterator(iterator string) error {
	_, err := e.compiler.compile(roleIterator, iterator)
	return err
}

func (e *xmlEngine) ValidateReference(reference string) error {
	_, err := e.compiler.compile(roleReference, reference)
	return err
}

func xmlCurrent(nav xpath.NodeNavigator) *xmlquery.Node {
	return nav.(*xmlquery.NodeNavigator).Current()
}

func hasXMLElement(root *xmlquery.Node) bool {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}

func rootOf[N any](doc *Document) (N, bool) {
	var zero N
	if doc == nil {
		return zero, false
	}
	n, ok := doc.root.(N)
	return n, ok
}
