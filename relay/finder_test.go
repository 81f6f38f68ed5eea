package relay

import (
	"context"
	"testing"

	"github.com/Machine-Labz/cloak-scramble/registry"
)

func view(key byte, status registry.Status, expiresAtSlot uint64, consumedCount, maxConsumes uint16, batchHash [32]byte, revealedAtSlot uint64) registry.ClaimView {
	return registry.ClaimView{
		Key: []byte{key},
		Claim: &registry.Claim{
			Status:         status,
			ExpiresAtSlot:  expiresAtSlot,
			ConsumedCount:  consumedCount,
			MaxConsumes:    maxConsumes,
			BatchHash:      batchHash,
			RevealedAtSlot: revealedAtSlot,
		},
	}
}

func TestFinderSelectFiltersIneligible(t *testing.T) {
	batch := [32]byte{0xAB}
	views := []registry.ClaimView{
		view(1, registry.StatusMined, 1000, 0, 1, batch, 10),      // wrong status
		view(2, registry.StatusRevealed, 5, 0, 1, batch, 10),      // expired
		view(3, registry.StatusRevealed, 1000, 1, 1, batch, 10),   // fully consumed
		view(4, registry.StatusRevealed, 1000, 0, 1, [32]byte{0xFF}, 10), // batch mismatch
		view(5, registry.StatusRevealed, 1000, 0, 1, batch, 10),   // eligible
	}
	finder := NewFinder(func(ctx context.Context) ([]registry.ClaimView, error) { return views, nil })

	got, err := finder.Select(context.Background(), batch, 100)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Key[0] != 5 {
		t.Fatalf("selected key = %d, want 5", got.Key[0])
	}
}

func TestFinderSelectAcceptsWildcard(t *testing.T) {
	views := []registry.ClaimView{
		view(1, registry.StatusRevealed, 1000, 0, 1, [32]byte{}, 10),
	}
	finder := NewFinder(func(ctx context.Context) ([]registry.ClaimView, error) { return views, nil })

	got, err := finder.Select(context.Background(), [32]byte{0xAB}, 100)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Key[0] != 1 {
		t.Fatal("wildcard claim must be selected regardless of expected_batch_hash")
	}
}

func TestFinderSelectNoClaimAvailable(t *testing.T) {
	finder := NewFinder(func(ctx context.Context) ([]registry.ClaimView, error) { return nil, nil })

	_, err := finder.Select(context.Background(), [32]byte{}, 100)
	if err != ErrNoClaimAvailable {
		t.Fatalf("err = %v, want ErrNoClaimAvailable", err)
	}
}

func TestFinderSelectTieBreaksOldestThenCapacity(t *testing.T) {
	batch := [32]byte{0xAB}
	views := []registry.ClaimView{
		view(1, registry.StatusRevealed, 1000, 0, 5, batch, 20), // newer, high capacity
		view(2, registry.StatusRevealed, 1000, 3, 5, batch, 10), // oldest, capacity 2
		view(3, registry.StatusRevealed, 1000, 0, 5, batch, 10), // oldest, capacity 5
	}
	finder := NewFinder(func(ctx context.Context) ([]registry.ClaimView, error) { return views, nil })

	got, err := finder.Select(context.Background(), batch, 100)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Key[0] != 2 {
		t.Fatalf("selected key = %d, want 2 (oldest, smallest remaining capacity)", got.Key[0])
	}
}

func TestFinderSelectExpiresAtSlotBoundary(t *testing.T) {
	batch := [32]byte{0xAB}
	views := []registry.ClaimView{
		view(1, registry.StatusRevealed, 100, 0, 1, batch, 10),
	}
	finder := NewFinder(func(ctx context.Context) ([]registry.ClaimView, error) { return views, nil })

	if _, err := finder.Select(context.Background(), batch, 100); err != ErrNoClaimAvailable {
		t.Fatal("claim at exactly expires_at_slot must not be selectable by the relay at that slot")
	}
	if _, err := finder.Select(context.Background(), batch, 99); err != nil {
		t.Fatalf("claim must be selectable one slot before expiry, got %v", err)
	}
}
