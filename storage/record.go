// Package storage provides persistent graph.Collection backends.
//
// Records are stored as msgpack documents: BadgerCollection keeps them under a key
// prefix in a badger database, SQLiteCollection in a two-column table of a SQLite
// file (modernc.org/sqlite, no cgo). Both allocate node ids from a durable sequence,
// so a reopened collection never hands out a live id.
//
// Only serializable field values survive a round trip: strings, booleans, numbers,
// nil, and nested []any / map[string]any. Numbers come back as int64, uint64 or float64.
// Graphs whose fields hold Go functions must stay on graph.MemoryCollection, or
// register a graph.FieldCodec that encodes them (package rules does this for rules).
package storage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/katalvlaran/lvplan/graph"
)

// Closer is a graph.Collection that owns resources.
type Closer interface {
	graph.Collection
	io.Closer
}

// EncodeRecord serializes rec to msgpack.
func EncodeRecord(rec graph.Record) ([]byte, error) {
	b, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("storage: encode %s: %w", rec.ID, err)
	}

	return b, nil
}

// DecodeRecord parses a msgpack record. Integers decode as int64 / uint64 regardless
// of their encoded width, nested maps as map[string]any.
func DecodeRecord(b []byte) (graph.Record, error) {
	var rec graph.Record
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&rec); err != nil {
		return graph.Record{}, fmt.Errorf("storage: decode record: %w", err)
	}

	return rec, nil
}
