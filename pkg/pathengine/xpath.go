package pathengine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/antchfx/xpath"
)

// xpathExpr guards a compiled expression: evaluating an *xpath.Expr mutates
// its query state, so one evaluation runs at a time.
type xpathExpr struct {
	mu   sync.Mutex
	expr *xpath.Expr
}

type xpathCompiler struct {
	exprs *exprCache[*xpathExpr]
}

func newXPathCompiler(opts []Option) xpathCompiler {
	o := buildOptions(opts)
	return xpathCompiler{exprs: newExprCache[*xpathExpr](o.cacheSize)}
}

func (c xpathCompiler) compile(r role, expr string) (*xpathExpr, error) {
	return c.exprs.get(r, expr, func() (*xpathExpr, error) {
		if strings.TrimSpace(expr) == "" {
			return nil, exprError(r, expr, errors.New("empty expression"))
		}
		x, err := xpath.Compile(expr)
		if err != nil {
			return nil, exprError(r, expr, err)
		}
		return &xpathExpr{expr: x}, nil
	})
}

// match is one node-set result: its string value and the tree node that
// orders it. For attributes the node is the owning element.
type match[N comparable] struct {
	text string
	node N
}

// xpathResult holds either a node-set or a scalar (string, number, boolean).
type xpathResult[N comparable] struct {
	matches  []match[N]
	scalar   string
	isScalar bool
}

func evaluate[N comparable](x *xpathExpr, nav xpath.NodeNavigator, current func(xpath.NodeNavigator) N) xpathResult[N] {
	x.mu.Lock()
	defer x.mu.Unlock()

	switch v := x.expr.Evaluate(nav).(type) {
	case *xpath.NodeIterator:
		var res xpathResult[N]
		for v.MoveNext() {
			cur := v.Current()
			res.matches = append(res.matches, match[N]{text: cur.Value(), node: current(ownerNavigator(cur))})
		}
		return res
	case string:
		return xpathResult[N]{scalar: v, isScalar: true}
	case float64:
		return xpathResult[N]{scalar: formatXPathNumber(v), isScalar: true}
	case bool:
		return xpathResult[N]{scalar: strconv.FormatBool(v), isScalar: true}
	default:
		return xpathResult[N]{scalar: fmt.Sprint(v), isScalar: true}
	}
}

// ownerNavigator moves an attribute position to its owning element, which is
// the node the document order index knows about.
func ownerNavigator(nav xpath.NodeNavigator) xpath.NodeNavigator {
	if nav.NodeType() != xpath.AttributeNode {
		return nav
	}
	owner := nav.Copy()
	owner.MoveToParent()
	return owner
}

// sortDocumentOrder stably sorts matches by pre-order position in doc.
func sortDocumentOrder[N comparable](doc *Document, ms []match[N]) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, _ := doc.position(ms[i].node)
		b, _ := doc.position(ms[j].node)
		return a < b
	})
}

// selectNodes runs an iterator and returns its nodes as records.
func selectNodes[N comparable](doc *Document, x *xpathExpr, iterator string, nav xpath.NodeNavigator, current func(xpath.NodeNavigator) N) ([]Record, error) {
	res := evaluate(x, nav, current)
	if res.isScalar {
		return nil, pathError(iterator, fmt.Errorf("iterator must select nodes, got scalar %q", res.scalar))
	}

	sortDocumentOrder(doc, res.matches)
	recs := make([]Record, 0, len(res.matches))
	for _, m := range res.matches {
		recs = append(recs, Record{node: m.node, doc: doc})
	}
	return recs, nil
}

// fieldValue runs a reference and converts its result into a Value.
func fieldValue[N comparable](doc *Document, x *xpathExpr, nav xpath.NodeNavigator, current func(xpath.NodeNavigator) N) Value {
	res := evaluate(x, nav, current)
	if res.isScalar {
		return SingleValue(res.scalar)
	}

	sortDocumentOrder(doc, res.matches)
	texts := make([]string, len(res.matches))
	for i, m := range res.matches {
		texts[i] = m.text
	}
	return FromMatches(texts)
}

// formatXPathNumber follows the XPath number-to-string rules.
func formatXPathNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
