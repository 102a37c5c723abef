package catalog

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
)

func TestGroupDeactivationSweepPreservesRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	providerID, groupID := setupProviderAndGroup(t, s, ctx)

	if err := s.WithTx(ctx, func(tx *sql.Tx) error {
		return DeactivateGroupsNotIn(ctx, tx, providerID, nil)
	}); err != nil {
		t.Fatalf("deactivate sweep: %v", err)
	}

	g, err := s.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if g.Active {
		t.Fatal("group should be inactive after sweep")
	}
	if g.ChannelCount != 0 {
		t.Fatalf("channel count = %d, want 0", g.ChannelCount)
	}
}

func TestGroupReconcileIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := newProvider("p1")
	if err := s.CreateProvider(ctx, p); err != nil {
		t.Fatalf("create provider: %v", err)
	}

	var firstID, secondID string
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		firstID, err = UpsertGroup(ctx, tx, uuid.NewString(), UpsertGroupInput{
			ProviderID: p.ID, RawName: "News", ChannelCnt: 2, ContentType: GroupLive,
		})
		return err
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		secondID, err = UpsertGroup(ctx, tx, uuid.NewString(), UpsertGroupInput{
			ProviderID: p.ID, RawName: "News", ChannelCnt: 3, ContentType: GroupLive,
		})
		return err
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if firstID != secondID {
		t.Fatalf("group identity changed across reconciles: %s != %s", firstID, secondID)
	}

	g, err := s.GetGroup(ctx, firstID)
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if g.ChannelCount != 3 {
		t.Fatalf("channel count = %d, want 3 (refreshed)", g.ChannelCount)
	}
}
