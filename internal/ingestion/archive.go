package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"core-indexer/internal/chain"
)

// ArchiveWriter appends logs as JSON lines. An archive written during
// indexing can be replayed into a fresh store without eth_getLogs.
type ArchiveWriter struct {
	enc *json.Encoder
}

// NewArchiveWriter creates an archive writer over w.
func NewArchiveWriter(w io.Writer) *ArchiveWriter {
	return &ArchiveWriter{enc: json.NewEncoder(w)}
}

// Write appends logs in order.
func (a *ArchiveWriter) Write(logs []chain.Log) error {
	for _, l := range logs {
		if err := a.enc.Encode(l); err != nil {
			return fmt.Errorf("archive log %s/%d: %w", l.Raw.TxHash.Hex(), l.Raw.Index, err)
		}
	}
	return nil
}

// ReadArchive calls fn for every log in r, in file order.
func ReadArchive(ctx context.Context, r io.Reader, fn func(chain.Log) error) error {
	dec := json.NewDecoder(r)
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var l chain.Log
		err := dec.Decode(&l)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive record %d: %w", n, err)
		}
		if err := fn(l); err != nil {
			return err
		}
	}
}
