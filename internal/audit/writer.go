package audit

import (
	"context"

	"github.com/samber/oops"

	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

// Writer persists audit records.
type Writer interface {
	Write(ctx context.Context, rec Record) error
}

// StoreWriter writes records through a dedicated raw handle so that the write
// itself is never intercepted.
type StoreWriter struct {
	opener store.RawOpener
}

// NewStoreWriter builds a StoreWriter over opener.
func NewStoreWriter(opener store.RawOpener) *StoreWriter {
	return &StoreWriter{opener: opener}
}

// Write implements Writer. The raw handle is released before returning.
func (w *StoreWriter) Write(ctx context.Context, rec Record) error {
	errb := oops.In("audit").With("action", rec.Action).With("target_id", rec.TargetID)
	handle, err := w.opener.OpenRaw(ctx)
	if err != nil {
		return errb.Code("AUDIT_HANDLE").Wrapf(err, "open raw handle")
	}
	defer handle.Close()

	_, err = handle.ExecRaw(ctx, store.Operation{
		Entity: Entity,
		Verb:   store.VerbCreate,
		Data:   rec.toRow(),
	})
	if err != nil {
		return errb.Code("AUDIT_WRITE").Wrapf(err, "insert audit record")
	}
	return nil
}
