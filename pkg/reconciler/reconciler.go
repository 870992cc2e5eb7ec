// Package reconciler drives a best-effort tag synchronization run.
//
// A run enumerates root objects from a sources.Source, expands each root
// into bindings (a target plus its ordered sources), merges the source labels
// last-writer-wins, and writes only the labels the target is missing. Every
// failed external call is converted into a degraded result plus a log entry;
// Run itself never fails.
package reconciler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/tagsync/pkg/errors"
	"github.com/agentstation/tagsync/pkg/labels"
	"github.com/agentstation/tagsync/pkg/logging"
	"github.com/agentstation/tagsync/pkg/sources"
)

// Reconciler runs one source variant. It holds no state between runs.
type Reconciler struct {
	src  sources.Source
	opts *options
}

// New creates a new Reconciler for src.
func New(src sources.Source, opts ...Option) (*Reconciler, error) {
	if src == nil {
		return nil, &errors.ValidationError{
			Field:   "source",
			Message: "cannot be nil",
		}
	}

	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &Reconciler{src: src, opts: options}, nil
}

// Run performs a single reconciliation pass and returns its summary.
// When ctx is cancelled or the configured timeout expires, the remaining
// objects are left unprocessed and the summary is marked Interrupted.
func (r *Reconciler) Run(ctx context.Context) *Summary {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.timeout)
		defer cancel()
	}
	if r.opts.logger != nil && !logging.HasLogger(ctx) {
		ctx = logging.WithLogger(ctx, r.opts.logger)
	}
	ctx = logging.WithSource(ctx, r.src.ID().String())
	logger := logging.FromContext(ctx)

	summary := newSummary(r.src.ID(), r.opts)
	defer func() {
		summary.FinishedAt = r.opts.now()
	}()

	logger.Info().
		Str("account", r.opts.account).
		Str("region", r.opts.region).
		Bool("dry_run", r.opts.dryRun).
		Msg("Starting tag synchronization")

	roots, err := r.src.Roots(ctx)
	if err != nil {
		err = asListing(err, "roots", "")
		logger.Error().Err(err).Msg("Listing failed, nothing to process")
		summary.recordError("%s", err.Error())
		return summary
	}
	logger.Info().Int("count", len(roots)).Msg("Found objects to process")

	for _, root := range roots {
		if r.interrupted(ctx, summary) {
			break
		}

		bindings, err := r.src.Expand(ctx, root)
		if err != nil {
			err = asListing(err, "bindings", root.ID)
			logger.Error().Err(err).Str("root", root.String()).Msg("Listing failed, skipping")
			summary.recordError("%s", err.Error())
			continue
		}
		if len(bindings) == 0 {
			logger.Info().Str("root", root.String()).Msg("No associated objects found")
			continue
		}

		for _, b := range bindings {
			if r.interrupted(ctx, summary) {
				break
			}
			r.reconcile(ctx, b, summary)
		}
	}

	logger.Info().
		Int("processed", summary.ObjectsProcessed).
		Int("tagged", summary.ObjectsTagged).
		Int("labels_added", summary.LabelsAdded).
		Int("errors", len(summary.Errors)).
		Bool("interrupted", summary.Interrupted).
		Msg("Tag synchronization finished")

	return summary
}

// reconcile processes one binding to completion.
func (r *Reconciler) reconcile(ctx context.Context, b sources.Binding, summary *Summary) {
	summary.ObjectsProcessed++

	ctx = logging.WithTarget(ctx, string(b.Target.Kind), b.Target.ID)
	logger := logging.FromContext(ctx)

	if len(b.Sources) == 0 {
		logger.Info().Msg("No sources attached to target")
		return
	}

	sets := make([]labels.Set, 0, len(b.Sources))
	for _, src := range b.Sources {
		set := r.labels(ctx, logger, src)
		if len(set) == 0 {
			logger.Info().Str("from", src.String()).Msg("No labels found on source")
		} else {
			logger.Debug().Str("from", src.String()).Stringer("labels", set).Msg("Found source labels")
		}
		sets = append(sets, set)
	}

	merged := labels.Merge(sets...)
	if len(merged) == 0 {
		logger.Info().Msg("No source labels to apply")
		return
	}

	current := r.labels(ctx, logger, b.Target)
	delta := labels.Delta(merged, current)

	if r.opts.dryRun {
		if len(delta) > 0 {
			logger.Info().Stringer("labels", delta).Msg("Dry run: would apply missing labels")
		}
		summary.ObjectsTagged++
		summary.LabelsAdded += len(delta)
		return
	}

	written, err := labels.Apply(ctx, func(ctx context.Context, d labels.Set) error {
		return r.src.Apply(ctx, b.Target, d)
	}, delta)
	if err != nil {
		if !errors.IsApply(err) {
			err = errors.NewApplyError(string(b.Target.Kind), b.Target.ID, delta.Keys(), err)
		}
		logger.Error().Err(err).Stringer("labels", delta).Msg("Failed to apply labels")
		summary.recordError("%s", err.Error())
		return
	}

	summary.ObjectsTagged++
	if !written {
		logger.Info().Msg("Target already has all source labels")
		return
	}
	summary.LabelsAdded += len(delta)
	logger.Info().Stringer("labels", delta).Msg("Applied missing labels")
}

// labels fetches the labels of obj, degrading to an empty set on failure.
func (r *Reconciler) labels(ctx context.Context, logger *zerolog.Logger, obj sources.Object) labels.Set {
	set, err := r.src.Labels(ctx, obj)
	if err != nil {
		if !errors.IsLabelFetch(err) {
			err = errors.NewLabelFetchError(string(obj.Kind), obj.ID, err)
		}
		logger.Error().Err(err).Str("object", obj.String()).Msg("Failed to fetch labels, treating as empty")
		return labels.Set{}
	}
	if set == nil {
		return labels.Set{}
	}
	return set
}

func (r *Reconciler) interrupted(ctx context.Context, summary *Summary) bool {
	if ctx.Err() == nil {
		return false
	}
	if !summary.Interrupted {
		summary.Interrupted = true
		logging.FromContext(ctx).Warn().Err(ctx.Err()).Msg("Run interrupted, remaining objects left unprocessed")
	}
	return true
}

func asListing(err error, scope, id string) error {
	if errors.IsListing(err) {
		return err
	}
	return errors.NewListingError(scope, id, err)
}
