package catalog

import (
	"context"
	"strings"
)

// SignalKind is the shape of an inbound chat event.
type SignalKind string

const (
	SignalText   SignalKind = "text"
	SignalButton SignalKind = "button"
	SignalList   SignalKind = "list"
)

// Signal is one inbound event reduced to what matching needs. Title is the
// button or row title the user tapped, when known.
type Signal struct {
	Kind  SignalKind
	Value string
	Title string
}

// Fallback names how an unmatched interactive id was reinterpreted.
type Fallback string

const (
	NoFallback      Fallback = ""
	FallbackDoctor  Fallback = "doctor"
	FallbackSlot    Fallback = "slot"
	FallbackBooking Fallback = "booking"
)

// Resolution is the outcome of matching a signal. Trigger is nil when the
// match came from a fallback or when nothing matched.
type Resolution struct {
	Trigger  *Trigger
	Next     *Template
	Fallback Fallback
	EntityID string
}

// Matched reports whether the signal resolved to anything.
func (r Resolution) Matched() bool {
	return r.Trigger != nil || r.Fallback != NoFallback
}

// EntityLookup answers the existence checks used to reinterpret raw ids.
type EntityLookup interface {
	HasDoctor(ctx context.Context, id string) bool
	HasBooking(ctx context.Context, id string) bool
}

type Resolver struct {
	catalog  *Catalog
	entities EntityLookup
}

func NewResolver(c *Catalog, entities EntityLookup) *Resolver {
	return &Resolver{catalog: c, entities: entities}
}

// Resolve matches a signal against the catalog. Unmatched interactive ids
// are reinterpreted as a doctor id, a slot button or a booking id, in that
// order.
func (r *Resolver) Resolve(ctx context.Context, sig Signal) Resolution {
	var tr *Trigger
	switch sig.Kind {
	case SignalText:
		if matches := r.catalog.MatchText(sig.Value); len(matches) > 0 {
			tr = matches[0]
		}
	case SignalButton:
		tr = r.catalog.MatchInteractive(ButtonID, sig.Value)
	case SignalList:
		tr = r.catalog.MatchInteractive(ListRowID, sig.Value)
	}
	if tr != nil {
		res := Resolution{Trigger: tr}
		if tr.TargetID != "" {
			res.Next, _ = r.catalog.Template(tr.TargetID)
		}
		return res
	}
	if sig.Kind == SignalText || sig.Value == "" {
		return Resolution{}
	}
	return r.fallback(ctx, sig.Value)
}

func (r *Resolver) fallback(ctx context.Context, id string) Resolution {
	switch {
	case r.entities != nil && r.entities.HasDoctor(ctx, id):
		next, _ := r.catalog.Template(DoctorSlots)
		return Resolution{Fallback: FallbackDoctor, EntityID: id, Next: next}
	case strings.HasPrefix(id, SlotButtonPrefix):
		next, _ := r.catalog.Template(ConfirmAppointment)
		return Resolution{Fallback: FallbackSlot, EntityID: id, Next: next}
	case r.entities != nil && r.entities.HasBooking(ctx, id):
		return Resolution{Fallback: FallbackBooking, EntityID: id}
	}
	return Resolution{}
}

// MatchText returns every live keyword trigger contained in text, in
// declaration order.
func (c *Catalog) MatchText(text string) []*Trigger {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	var out []*Trigger
	for _, tr := range c.keywords {
		if tr.expired(now) {
			continue
		}
		for _, kw := range tr.Keywords {
			if kw != "" && strings.Contains(normalized, strings.ToLower(kw)) {
				cp := *tr
				out = append(out, &cp)
				break
			}
		}
	}
	return out
}

// MatchInteractive returns the newest live trigger of kind for value.
func (c *Catalog) MatchInteractive(kind TriggerKind, value string) *Trigger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	for _, tr := range c.interactive {
		if tr.Kind == kind && tr.Value == value && !tr.expired(now) {
			cp := *tr
			return &cp
		}
	}
	return nil
}
