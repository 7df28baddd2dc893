// This file wires the guard, router, and responder into the dispatch entry
// point invoked for every inbound interaction event.
package dispatch

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// genericFailureMsg is shown for any unexpected handler error. Details stay
// in the logs; the user only learns that the action did not go through.
const genericFailureMsg = "Something went wrong while handling that. Please try again."

// unrecognizedMsg is shown when no handler matches the route key, rather
// than leaving the interaction hanging with no acknowledgement.
const unrecognizedMsg = "That control is not recognized. It may belong to an older version of a message."

// Dispatcher fans inbound interactions out to registered handlers while
// enforcing dedup and fault isolation: one bad interaction never takes the
// event loop down.
type Dispatcher struct {
	guard  *Guard
	router *Router
	log    zerolog.Logger
}

// NewDispatcher builds a Dispatcher around the given guard and router.
func NewDispatcher(guard *Guard, router *Router, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{guard: guard, router: router, log: log}
}

// Router exposes the routing table for handler registration.
func (d *Dispatcher) Router() *Router { return d.router }

// Guard exposes the dedup guard (for the scheduler's TTL sweep).
func (d *Dispatcher) Guard() *Guard { return d.guard }

// SweepGuard runs one guard TTL pass and records the result.
func (d *Dispatcher) SweepGuard() {
	if n := d.guard.Sweep(time.Now()); n > 0 {
		guardSwept.Add(float64(n))
		d.log.Warn().Int("removed", n).Msg("dedup guard entries expired without completion")
	}
}

// Dispatch handles one interaction end to end: dedup, route, run, classify.
// It never panics and never returns an error; every failure mode ends in a
// log line and, where possible, a user-facing notice.
func (d *Dispatcher) Dispatch(ctx context.Context, ic *Interaction, rsp Responder) {
	key := ic.RouteKey()

	if !d.guard.ShouldProcess(ic.ID, key, ic.UserID) {
		interactionsDeduped.Inc()
		d.log.Debug().
			Str("interaction_id", ic.ID).
			Str("route_key", key).
			Msg("duplicate interaction delivery dropped")
		return
	}
	defer d.guard.MarkComplete(ic.ID)

	handler, ok := d.router.Route(key)
	if !ok {
		interactionsUnrouted.Inc()
		_ = rsp.Reply(Reply{Content: unrecognizedMsg, Ephemeral: true})
		d.log.Info().
			Str("interaction_id", ic.ID).
			Str("route_key", key).
			Msg("unrouted interaction")
		return
	}

	routePrefix := registeredPrefix(key)
	interactionsTotal.WithLabelValues(ic.Kind, routePrefix).Inc()

	// Correlate all log lines for this interaction.
	lg := d.log.With().
		Str("correlation_id", uuid.NewString()).
		Str("interaction_id", ic.ID).
		Str("route_key", key).
		Str("guild_id", ic.GuildID).
		Str("user_id", ic.UserID).
		Logger()
	ctx = lg.WithContext(ctx)

	tr := otel.Tracer("dispatch")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("interaction.kind", ic.Kind),
			attribute.String("interaction.route", routePrefix),
		),
	)
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			interactionsFailed.WithLabelValues(routePrefix).Inc()
			lg.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered in interaction handler")
			_ = rsp.Reply(Reply{Content: genericFailureMsg, Ephemeral: true})
		}
	}()

	err := handler(ctx, ic, rsp)
	switch {
	case err == nil:
	case IsBenign(err):
		lg.Debug().Err(err).Msg("benign interaction race")
	default:
		interactionsFailed.WithLabelValues(routePrefix).Inc()
		lg.Error().Err(err).Msg("interaction handler failed")
		_ = rsp.Reply(Reply{Content: genericFailureMsg, Ephemeral: true})
	}
}

// registeredPrefix reduces a raw route key to its registered prefix for
// metric labels, stripping the ":"-separated payload wizards and buttons
// append to custom ids.
func registeredPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
