package log

import (
	"context"
	"log/slog"
)

// SlogAdapter forwards protocol events to an slog.Logger at debug level,
// interleaving them with an application's operational logs during
// development.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps the given slog.Logger as a protocol event sink.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log emits one "protocol" record carrying the event as attributes.
func (a *SlogAdapter) Log(event Event) {
	attrs := make([]slog.Attr, 0, 10)
	attrs = append(attrs,
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	)
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}
	attrs = appendPayloadAttrs(attrs, event)

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// appendPayloadAttrs adds the attributes of whichever payload the event
// carries. Events without a payload gain nothing.
func appendPayloadAttrs(attrs []slog.Attr, event Event) []slog.Attr {
	switch {
	case event.Datagram != nil:
		return append(attrs,
			slog.Int("datagram_size", event.Datagram.Size),
			slog.Bool("truncated", event.Datagram.Truncated),
		)
	case event.Packet != nil:
		return appendPacketAttrs(attrs, event.Packet)
	case event.StateChange != nil:
		sc := event.StateChange
		attrs = append(attrs,
			slog.String("entity", sc.Entity.String()),
			slog.String("old_state", sc.OldState),
			slog.String("new_state", sc.NewState),
		)
		if sc.Reason != "" {
			attrs = append(attrs, slog.String("reason", sc.Reason))
		}
		return attrs
	case event.Error != nil:
		return append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}
	return attrs
}

func appendPacketAttrs(attrs []slog.Attr, p *PacketEvent) []slog.Attr {
	attrs = append(attrs, slog.String("kind", p.Kind.String()))
	if p.Kind == KindBundle {
		return append(attrs,
			slog.Uint64("timetag", p.Timetag),
			slog.Int("messages", p.Messages),
			slog.Int("depth", p.Depth),
		)
	}
	return append(attrs,
		slog.String("address", p.Address),
		slog.String("types", p.TypeTags),
		slog.Int("args", p.Arguments),
	)
}

var _ Logger = (*SlogAdapter)(nil)
