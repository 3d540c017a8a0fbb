package booking

import (
	"context"
	"errors"

	"staynest/internal/app/outbox"
	"staynest/internal/app/uow"
	"staynest/internal/domain/shared/events"
)

var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

type eventSource interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

// finisher tracks whether this handler owns the unit of work boundary.
// When the transaction middleware already opened one, commit and
// rollback become no-ops here.
type finisher struct {
	unit      uow.UnitOfWork
	managed   bool
	committed bool
}

func beginIfNeeded(ctx context.Context, factory uow.Factory, opts uow.TxOptions) (context.Context, uow.UnitOfWork, *finisher, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return ctx, unit, &finisher{unit: unit}, nil
	}
	if factory == nil {
		return ctx, nil, nil, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return ctx, nil, nil, err
	}
	return uow.ContextWithUnitOfWork(ctx, unit), unit, &finisher{unit: unit, managed: true}, nil
}

func (f *finisher) commit(ctx context.Context) error {
	if !f.managed {
		return nil
	}
	if err := f.unit.Commit(ctx); err != nil {
		return err
	}
	f.committed = true
	return nil
}

func (f *finisher) rollbackUnlessCommitted(ctx context.Context) {
	if f.managed && !f.committed {
		_ = f.unit.Rollback(ctx)
	}
}

// drainEvents moves pending aggregate events into the outbox.
func drainEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, sources ...eventSource) error {
	for _, src := range sources {
		pending := src.PendingEvents()
		src.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, box, encoder, pending); err != nil {
			return err
		}
	}
	return nil
}

func (h *RequestBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}
