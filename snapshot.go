package auction

import (
	"fmt"
	"strings"

	"github.com/0x5487/double-auction/structure"
)

// BookSnapshot contains the partitions of a FourHeap, each listed top first.
type BookSnapshot struct {
	SchemaVersion int     `json:"schema_version"`
	MatchedBids   []Shout `json:"matched_bids"`   // Lowest first
	MatchedAsks   []Shout `json:"matched_asks"`   // Highest first
	UnmatchedBids []Shout `json:"unmatched_bids"` // Best (highest) first
	UnmatchedAsks []Shout `json:"unmatched_asks"` // Best (lowest) first
}

// Snapshot copies the current partitions.
func (fh *FourHeap) Snapshot() *BookSnapshot {
	return &BookSnapshot{
		SchemaVersion: SnapshotSchemaVersion,
		MatchedBids:   collect(fh.bIn),
		MatchedAsks:   collect(fh.sIn),
		UnmatchedBids: collect(fh.bOut),
		UnmatchedAsks: collect(fh.sOut),
	}
}

func collect(h *structure.Heap[*Shout]) []Shout {
	shouts := make([]Shout, 0, h.Len())
	h.Ascend(func(_ structure.Key, s *Shout) bool {
		cpy := *s
		cpy.loc = partitionNone
		shouts = append(shouts, cpy)
		return true
	})
	return shouts
}

// Restore replaces the book content with snap, keeping every shout in the
// partition it was recorded in. The restored book is checked against the
// book invariants; on failure the book is left empty.
func (fh *FourHeap) Restore(snap *BookSnapshot) error {
	if snap.SchemaVersion != SnapshotSchemaVersion {
		return fmt.Errorf("%w: snapshot schema version %d, want %d", ErrInvalidParam, snap.SchemaVersion, SnapshotSchemaVersion)
	}
	fh.Reset()

	groups := []struct {
		shouts []Shout
		side   Side
		p      partition
	}{
		{snap.MatchedBids, Bid, partitionMatchedBids},
		{snap.MatchedAsks, Ask, partitionMatchedAsks},
		{snap.UnmatchedBids, Bid, partitionUnmatchedBids},
		{snap.UnmatchedAsks, Ask, partitionUnmatchedAsks},
	}
	for _, g := range groups {
		for i := range g.shouts {
			s := g.shouts[i]
			if err := s.Validate(); err != nil {
				fh.Reset()
				return err
			}
			if s.Side != g.side {
				fh.Reset()
				return fmt.Errorf("%w: shout %d is on the wrong side of partition %s", ErrInvalidParam, s.ID, g.p)
			}
			if _, ok := fh.shouts[s.ID]; ok || s.ID == 0 {
				fh.Reset()
				return fmt.Errorf("%w: invalid or duplicate shout id %d", ErrInvalidParam, s.ID)
			}
			if s.Origin == 0 {
				s.Origin = s.ID
			}
			stored := &s
			fh.track(stored)
			fh.place(stored, g.p)
			if o, ok := fh.ids.(interface{ Observe(ShoutID) }); ok {
				o.Observe(s.ID)
			}
		}
	}

	if err := fh.CheckInvariants(); err != nil {
		fh.Reset()
		return err
	}
	return nil
}

// String renders the snapshot for debugging.
func (snap *BookSnapshot) String() string {
	var b strings.Builder
	write := func(title string, shouts []Shout) {
		fmt.Fprintf(&b, "%s:\n", title)
		for i := range shouts {
			fmt.Fprintf(&b, "  %s\n", shouts[i].String())
		}
	}
	write("matched bids", snap.MatchedBids)
	write("matched asks", snap.MatchedAsks)
	write("unmatched bids", snap.UnmatchedBids)
	write("unmatched asks", snap.UnmatchedAsks)
	return b.String()
}
