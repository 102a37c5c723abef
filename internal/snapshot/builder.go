package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/epg"
	"github.com/m3undle/lineup/internal/fetch"
	"github.com/m3undle/lineup/internal/metrics"
	"github.com/m3undle/lineup/internal/playlist"
	"github.com/m3undle/lineup/internal/reconcile"
)

// Builder owns the two entry points that produce a new snapshot generation
// for the active provider/profile pair: a full refresh (fetch, reconcile,
// build) and a build-only pass that reassembles the catalog's current state
// without touching the upstream.
type Builder struct {
	Store          *catalog.Store
	Fetcher        *fetch.Fetcher
	SnapshotRoot   string
	RetentionCount int
}

// NewBuilder returns a Builder with the given dependencies. retentionCount
// falls back to 3 when zero, matching the configured default.
func NewBuilder(store *catalog.Store, fetcher *fetch.Fetcher, snapshotRoot string, retentionCount int) *Builder {
	if retentionCount <= 0 {
		retentionCount = 3
	}
	return &Builder{Store: store, Fetcher: fetcher, SnapshotRoot: snapshotRoot, RetentionCount: retentionCount}
}

// selectInput resolves the unique active+enabled Provider and the enabled
// Profile with lowest priority among those associated with it.
// Either being absent is a no-op, signaled by a nil provider/profile and a
// nil error — callers must check for nil rather than treat ErrNotFound as
// fatal.
func (b *Builder) selectInput(ctx context.Context) (*catalog.Provider, *catalog.Profile, error) {
	provider, err := b.Store.ActiveProvider(ctx)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: select active provider: %w", err)
	}

	profile, err := b.Store.ActiveProviderProfile(ctx, provider.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: select profile for provider %s: %w", provider.ID, err)
	}
	return provider, profile, nil
}

// BuildFull fetches the provider's playlist, reconciles it into the
// catalog, and builds a new snapshot from the result. A fetch or parse
// failure is recorded on the FetchRun and aborts before any snapshot is
// touched: the previously active snapshot keeps serving unchanged, per the
// last-known-good contract.
func (b *Builder) BuildFull(ctx context.Context) error {
	provider, profile, err := b.selectInput(ctx)
	if err != nil {
		return err
	}
	if provider == nil || profile == nil {
		return nil
	}

	runID := uuid.NewString()
	if err := b.Store.StartFetchRun(ctx, runID, provider.ID, catalog.FetchRunSnapshot); err != nil {
		return fmt.Errorf("snapshot: start fetch run: %w", err)
	}

	result, err := b.Fetcher.Fetch(ctx, fetch.Request{
		URL: provider.PlaylistURL, Headers: provider.Headers,
		UserAgent: provider.UserAgent, TimeoutSeconds: provider.TimeoutSeconds,
	})
	if err != nil {
		metrics.IncFetchFailure(provider.Name, "fetch_failed")
		return b.failFetchRun(runID, err)
	}
	metrics.RecordFetchBytes(provider.Name, "playlist", result.Bytes)

	entries, err := playlist.Parse(bytes.NewReader(result.Body))
	if err != nil {
		metrics.IncFetchFailure(provider.Name, "parse_failed")
		return b.failFetchRun(runID, fetch.WrapParseFailure(err))
	}

	summary, err := reconcile.Reconcile(ctx, b.Store, provider.ID, runID, entries, time.Now())
	if err != nil {
		return b.failFetchRun(runID, err)
	}

	if err := b.Store.FinishFetchRun(ctx, runID, catalog.FetchRunOK, result.Bytes, summary.ChannelCountSeen, ""); err != nil {
		return fmt.Errorf("snapshot: finish fetch run: %w", err)
	}

	guide := b.fetchGuide(ctx, provider)
	return b.build(ctx, provider, profile, guide, "")
}

// failFetchRun records a FetchRun failure using a context that survives
// cancellation of the calling request, so a canceled refresh still persists
// as a failed run rather than leaving it stuck at "running" forever.
func (b *Builder) failFetchRun(runID string, cause error) error {
	finishCtx := context.WithoutCancel(context.Background())
	if err := b.Store.FinishFetchRun(finishCtx, runID, catalog.FetchRunFail, 0, 0, cause.Error()); err != nil {
		return fmt.Errorf("snapshot: record fetch run failure: %w (original: %v)", err, cause)
	}
	return cause
}

// fetchGuide retrieves and parses the provider's guide document. Any
// failure — no guide configured, fetch failure, or a malformed document —
// is non-fatal: it falls back to a minimal empty guide rather than aborting
// the snapshot.
func (b *Builder) fetchGuide(ctx context.Context, provider *catalog.Provider) *epg.TV {
	if provider.GuideURL == "" {
		return epg.Empty()
	}
	result, err := b.Fetcher.Fetch(ctx, fetch.Request{
		URL: provider.GuideURL, Headers: provider.Headers,
		UserAgent: provider.UserAgent, TimeoutSeconds: provider.TimeoutSeconds,
	})
	if err != nil {
		return epg.Empty()
	}
	tv, err := epg.Parse(bytes.NewReader(result.Body))
	if err != nil {
		return epg.Empty()
	}
	return tv
}

// BuildOnly reassembles the current catalog state into a new snapshot
// without contacting the upstream, reusing the previous active snapshot's
// guide file unchanged.
func (b *Builder) BuildOnly(ctx context.Context) error {
	provider, profile, err := b.selectInput(ctx)
	if err != nil {
		return err
	}
	if provider == nil || profile == nil {
		return nil
	}

	var reuseGuidePath string
	prior, err := b.Store.ActiveSnapshot(ctx, profile.ID)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("snapshot: load active snapshot: %w", err)
	}
	if prior != nil {
		reuseGuidePath = prior.GuidePath
	}

	return b.build(ctx, provider, profile, epg.Empty(), reuseGuidePath)
}
