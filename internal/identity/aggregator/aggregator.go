// Package aggregator resolves an arbitrary login handle to a single
// canonical account across every registered identity store.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/asaskevich/govalidator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"sigede/internal/identity/models"
	"sigede/internal/identity/store"
	dErrors "sigede/pkg/domain-errors"
	"sigede/pkg/platform/sentinel"
)

var nationalIDPattern = regexp.MustCompile(`^[0-9]{6,18}$`)

// Aggregator fans a lookup out to all stores concurrently and returns the
// highest-priority match. A store failure is fault-isolated: it is logged
// and treated as no match, so one unreachable store never blocks resolution
// through the others.
type Aggregator struct {
	stores []store.IdentityStore
	logger *slog.Logger
	tracer trace.Tracer
}

// New builds an aggregator over the given stores. Store order does not
// matter; priority comes from each store's tier.
func New(logger *slog.Logger, stores ...store.IdentityStore) *Aggregator {
	sorted := make([]store.IdentityStore, len(stores))
	copy(sorted, stores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Tier() < sorted[j].Tier()
	})
	return &Aggregator{
		stores: sorted,
		logger: logger,
		tracer: otel.Tracer("sigede/identity/aggregator"),
	}
}

// Resolve maps a login handle to a canonical account. Pure read; latency is
// bounded by the slowest store. Returns CodeIdentityNotFound when no store
// matches.
func (a *Aggregator) Resolve(ctx context.Context, identifier string) (models.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return models.Account{}, dErrors.New(dErrors.CodeInvalidInput, "identifier must not be empty")
	}

	ctx, span := a.tracer.Start(ctx, "identity.resolve",
		trace.WithAttributes(attribute.Int("identity.stores", len(a.stores))))
	defer span.End()

	kinds := classify(identifier)
	span.SetAttributes(attribute.Int("identity.kinds", len(kinds)))

	// One result slot per store, so priority order survives the fan-out.
	// No ordering is required among the lookups themselves.
	results := make([]*models.Account, len(a.stores))
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range a.stores {
		supported := intersect(st.Kinds(), kinds)
		if len(supported) == 0 {
			continue
		}
		g.Go(func() error {
			for _, kind := range supported {
				account, err := st.FindByHandle(gctx, kind, identifier)
				if err == nil {
					results[i] = &account
					return nil
				}
				if !errors.Is(err, sentinel.ErrNotFound) {
					// Fault isolation: a broken store is a non-match,
					// not an aborting failure.
					a.logger.WarnContext(gctx, "identity store lookup failed",
						"store", st.Name(),
						"kind", string(kind),
						"error", err,
					)
					span.AddEvent("store_error", trace.WithAttributes(
						attribute.String("store", st.Name()),
					))
				}
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; they record matches

	for i, match := range results {
		if match != nil {
			span.SetAttributes(attribute.String("identity.matched_store", a.stores[i].Name()))
			return *match, nil
		}
	}
	return models.Account{}, dErrors.New(dErrors.CodeIdentityNotFound, "no account matches identifier")
}

// classify maps an identifier to the handle kinds it could plausibly be.
// An ambiguous identifier is queried under every plausible kind; the store
// adapters decide what actually matches.
func classify(identifier string) []models.HandleKind {
	if govalidator.IsEmail(identifier) {
		return []models.HandleKind{models.HandleEmail}
	}
	if nationalIDPattern.MatchString(identifier) {
		return []models.HandleKind{models.HandlePrimaryID, models.HandleNationalID}
	}
	return []models.HandleKind{models.HandleUsername, models.HandlePrimaryID}
}

func intersect(supported, wanted []models.HandleKind) []models.HandleKind {
	var out []models.HandleKind
	for _, k := range wanted {
		for _, s := range supported {
			if k == s {
				out = append(out, k)
				break
			}
		}
	}
	return out
}
