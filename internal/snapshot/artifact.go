package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/epg"
	"github.com/m3undle/lineup/internal/fsutil"
	"github.com/m3undle/lineup/internal/metrics"
)

// build assembles the emitted channel list, writes both artifact files into
// a fresh snapshot directory, stages and promotes the Snapshot row, and
// sweeps anything beyond the retention count. guide is used verbatim unless
// reuseGuidePath is set, in which case the prior active's guide file is
// copied unchanged, per the build-only contract.
func (b *Builder) build(ctx context.Context, provider *catalog.Provider, profile *catalog.Profile, guide *epg.TV, reuseGuidePath string) error {
	entries, err := assemble(ctx, b.Store, provider, profile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(b.SnapshotRoot, 0o755); err != nil {
		return fmt.Errorf("snapshot: create snapshot root: %w", err)
	}

	snapshotID := uuid.NewString()
	dir, err := fsutil.ConfineRelPath(b.SnapshotRoot, filepath.Join(profile.OutputName, snapshotID))
	if err != nil {
		return fmt.Errorf("snapshot: confine snapshot directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: create snapshot directory: %w", err)
	}

	indexPath := filepath.Join(dir, "channel_index.json")
	if err := writeChannelIndex(indexPath, entries); err != nil {
		return err
	}

	guidePath := filepath.Join(dir, "guide.xml")
	if reuseGuidePath != "" {
		if err := copyFileAtomically(reuseGuidePath, guidePath); err != nil {
			return fmt.Errorf("snapshot: copy prior guide: %w", err)
		}
	} else if err := epg.Write(guide, guidePath); err != nil {
		return fmt.Errorf("snapshot: write guide: %w", err)
	}

	snap := &catalog.Snapshot{
		ID:                    snapshotID,
		ProfileID:             profile.ID,
		Status:                catalog.SnapshotStaged,
		ChannelIndexPath:      indexPath,
		GuidePath:             guidePath,
		ChannelCountPublished: len(entries),
	}
	if err := b.Store.InsertStagedSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("snapshot: insert staged snapshot: %w", err)
	}
	if err := b.Store.PromoteSnapshot(ctx, profile.ID, snap.ID); err != nil {
		return fmt.Errorf("snapshot: promote snapshot: %w", err)
	}

	if err := b.sweepRetention(ctx, profile.ID); err != nil {
		return err
	}

	retained, err := b.Store.ListSnapshots(ctx, profile.ID)
	if err != nil {
		return fmt.Errorf("snapshot: list retained snapshots: %w", err)
	}
	metrics.RecordSnapshotPublished(profile.OutputName, len(entries), len(retained))
	return nil
}

// sweepRetention deletes every snapshot beyond the configured retention
// count for a profile, file tree first (best-effort) then the catalog row,
// matching the ownership rule: the Snapshot Builder owns files on disk, the
// Catalog Store owns row state.
func (b *Builder) sweepRetention(ctx context.Context, profileID string) error {
	beyond, err := b.Store.SnapshotsBeyondRetention(ctx, profileID, b.RetentionCount)
	if err != nil {
		return fmt.Errorf("snapshot: list retention tail: %w", err)
	}
	for _, snap := range beyond {
		if snap.GuidePath != "" {
			_ = os.RemoveAll(filepath.Dir(snap.GuidePath))
		}
		if err := b.Store.DeleteSnapshot(ctx, snap.ID); err != nil {
			return fmt.Errorf("snapshot: delete retired snapshot %s: %w", snap.ID, err)
		}
	}
	return nil
}

func writeChannelIndex(path string, entries []ChannelIndexEntry) error {
	if entries == nil {
		entries = []ChannelIndexEntry{}
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal channel index: %w", err)
	}
	return writeBytesAtomically(path, out)
}

func copyFileAtomically(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	return writeBytesAtomically(dst, data)
}

func writeBytesAtomically(path string, data []byte) error {
	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", path, err)
	}
	defer pendingFile.Cleanup()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return pendingFile.CloseAtomicallyReplace()
}
