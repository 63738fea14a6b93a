package discovery

import "testing"

func TestCarouselBounds(t *testing.T) {
	t.Parallel()

	c := candidate("A", 3)
	var cs carousel
	cs.resetFor(&c)

	if cs.prev() {
		t.Fatalf("expected prev at first image to be a no-op")
	}
	if cs.index != 0 {
		t.Fatalf("expected index 0, got %d", cs.index)
	}

	for i := 1; i <= 2; i++ {
		if !cs.next() || cs.index != i {
			t.Fatalf("expected next to move to %d, got %d", i, cs.index)
		}
	}

	if cs.next() {
		t.Fatalf("expected next at last image to be a no-op")
	}
	if cs.index != 2 {
		t.Fatalf("expected index to stay at 2, got %d", cs.index)
	}

	if !cs.prev() || cs.index != 1 {
		t.Fatalf("expected prev to move back to 1, got %d", cs.index)
	}
}

func TestCarouselSingleImage(t *testing.T) {
	t.Parallel()

	c := candidate("A", 1)
	var cs carousel
	cs.resetFor(&c)

	if cs.next() || cs.prev() {
		t.Fatalf("expected single image carousel to stay put")
	}
}

func TestCarouselResetFor(t *testing.T) {
	t.Parallel()

	c := candidate("A", 4)
	cs := carousel{index: 3, count: 4}

	cs.resetFor(&c)
	if cs.index != 0 || cs.count != 4 {
		t.Fatalf("unexpected carousel after reset: %+v", cs)
	}

	cs.resetFor(nil)
	if cs.index != 0 || cs.count != 0 {
		t.Fatalf("expected empty carousel, got %+v", cs)
	}
	if cs.next() || cs.prev() {
		t.Fatalf("expected empty carousel to ignore navigation")
	}
}
