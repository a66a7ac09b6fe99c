package rules

import (
	"fmt"
	"sync"

	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/solver"
)

// Codec converts rule source text to *Expr and back. It implements graph.FieldCodec.
// Parsed rules are cached by source, so domains sharing a rule text share one Expr.
type Codec struct {
	mu    sync.RWMutex
	cache map[string]*Expr
}

var _ graph.FieldCodec = (*Codec)(nil)

// NewCodec returns an empty Codec.
func NewCodec() *Codec {
	return &Codec{cache: make(map[string]*Expr)}
}

// Decode accepts source text, an *Expr or nil. Empty text decodes to nil (no rule).
func (c *Codec) Decode(field string, raw any) (any, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case *Expr:
		return x, nil
	case string:
		if x == "" {
			return nil, nil
		}
		return c.parse(x)
	default:
		return nil, fmt.Errorf("rules: field %q: want rule source, got %T", field, raw)
	}
}

// Encode returns the rule's source text. Non-rule values pass through unchanged.
func (c *Codec) Encode(_ string, value any) (any, error) {
	if e, ok := value.(*Expr); ok {
		return e.Source(), nil
	}

	return value, nil
}

// Len is the number of cached rules.
func (c *Codec) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cache)
}

func (c *Codec) parse(src string) (*Expr, error) {
	c.mu.RLock()
	e, ok := c.cache[src]
	c.mu.RUnlock()
	if ok {
		return e, nil
	}

	e, err := Parse(src)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[src] = e
	c.mu.Unlock()

	return e, nil
}

// NewSerializer returns a NodeSerializer decoding the "test" and "action" fields as rules.
func NewSerializer() *graph.NodeSerializer {
	c := NewCodec()

	return graph.NewNodeSerializer(map[string]graph.FieldCodec{
		solver.FieldTest:   c,
		solver.FieldAction: c,
	})
}
