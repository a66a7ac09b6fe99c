// SPDX-License-Identifier: MIT
//
// File: serializer.go
// Role: Node <-> Record mapping with pluggable per-field codecs.
// Policy:
//   - Typed search attributes are stored as the reserved fields weight, reference, context_id.
//   - Field failures are collected, not short-circuited, and reported as one SerializationError.

package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FieldCodec converts a single field between its stored (raw) and live form.
//
// Decode receives values coming from a Record or from CreateNode options and may be
// handed an already-live value; implementations must accept both.
type FieldCodec interface {
	Decode(field string, raw any) (any, error)
	Encode(field string, value any) (any, error)
}

// FieldError reports a codec failure on one field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("field %q: %v", e.Field, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

// SerializationError aggregates every FieldError raised while (de)serializing one node.
type SerializationError struct {
	NodeID string
	Fields []*FieldError
}

func (e *SerializationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		parts[i] = fe.Error()
	}

	return fmt.Sprintf("graph: serialize node %q: %s", e.NodeID, strings.Join(parts, "; "))
}

// Unwrap exposes the individual field errors to errors.Is / errors.As.
func (e *SerializationError) Unwrap() []error {
	out := make([]error, len(e.Fields))
	for i, fe := range e.Fields {
		out[i] = fe
	}

	return out
}

// NodeSerializer maps Node values to Records and back.
// A nil *NodeSerializer behaves like one without codecs.
type NodeSerializer struct {
	codecs map[string]FieldCodec
}

// NewNodeSerializer returns a serializer applying codecs by field name.
func NewNodeSerializer(codecs map[string]FieldCodec) *NodeSerializer {
	s := &NodeSerializer{codecs: make(map[string]FieldCodec, len(codecs))}
	for name, c := range codecs {
		s.codecs[name] = c
	}

	return s
}

// DefaultSerializer stores field values unchanged.
func DefaultSerializer() *NodeSerializer { return NewNodeSerializer(nil) }

// Codec returns the codec registered for field, if any.
func (s *NodeSerializer) Codec(field string) (FieldCodec, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.codecs[field]

	return c, ok
}

// ToRecord encodes n. Every codec runs even after a failure so the error lists all bad fields.
func (s *NodeSerializer) ToRecord(n *Node) (Record, error) {
	if n == nil {
		return Record{}, ErrNilNode
	}
	rec := Record{
		ID:     n.ID,
		InIDs:  n.InIDs.IDs(),
		OutIDs: n.OutIDs.IDs(),
		Fields: make(map[string]any, len(n.Fields)+3),
	}

	var errs []*FieldError
	for _, name := range sortedKeys(n.Fields) {
		v := n.Fields[name]
		if c, ok := s.Codec(name); ok {
			enc, err := c.Encode(name, v)
			if err != nil {
				errs = append(errs, &FieldError{Field: name, Err: err})
				continue
			}
			v = enc
		}
		rec.Fields[name] = v
	}
	if n.Weight != nil {
		rec.Fields[FieldWeight] = *n.Weight
	}
	if n.Reference != "" {
		rec.Fields[FieldReference] = n.Reference
	}
	if n.ContextID != "" {
		rec.Fields[FieldContextID] = n.ContextID
	}
	if len(errs) > 0 {
		return Record{}, &SerializationError{NodeID: n.ID, Fields: errs}
	}

	return rec, nil
}

// FromRecord decodes rec into a fresh Node.
func (s *NodeSerializer) FromRecord(rec Record) (*Node, error) {
	n := &Node{
		ID:     rec.ID,
		InIDs:  NewIDSet(rec.InIDs...),
		OutIDs: NewIDSet(rec.OutIDs...),
	}

	raw := make(map[string]any, len(rec.Fields))
	var errs []*FieldError
	for name, v := range rec.Fields {
		switch name {
		case FieldWeight:
			w, err := toFloat(v)
			if err != nil {
				errs = append(errs, &FieldError{Field: name, Err: err})
				continue
			}
			n.SetWeight(w)
		case FieldReference:
			n.Reference = toString(v)
		case FieldContextID:
			n.ContextID = toString(v)
		default:
			raw[name] = v
		}
	}

	fields, err := s.DecodeFields(n.ID, raw)
	if err != nil {
		var se *SerializationError
		if errors.As(err, &se) {
			errs = append(errs, se.Fields...)
		}
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })

		return nil, &SerializationError{NodeID: rec.ID, Fields: errs}
	}
	n.Fields = fields

	return n, nil
}

// DecodeFields runs the registered codecs over fields and returns the live map.
// The input map is not modified.
func (s *NodeSerializer) DecodeFields(nodeID string, fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	var errs []*FieldError
	for _, name := range sortedKeys(fields) {
		v := fields[name]
		if c, ok := s.Codec(name); ok {
			dec, err := c.Decode(name, v)
			if err != nil {
				errs = append(errs, &FieldError{Field: name, Err: err})
				continue
			}
			v = dec
		}
		out[name] = v
	}
	if len(errs) > 0 {
		return nil, &SerializationError{NodeID: nodeID, Fields: errs}
	}

	return out, nil
}

// toFloat accepts the numeric kinds produced by the in-memory path and by decoders.
func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
