package selection_test

import (
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/pkg/selection"
)

func result(n, confidence int, needsHighRes bool) domain.CrossingResult {
	return domain.CrossingResult{
		BorderNumber: n,
		Detection: domain.Detection{
			HasClouds:    needsHighRes,
			NeedsHighRes: needsHighRes,
			Confidence:   confidence,
		},
	}
}

func numbers(rs []domain.CrossingResult) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.BorderNumber
	}
	return out
}

func TestSelect_Empty(t *testing.T) {
	s := selection.New(selection.DefaultTop, selection.DefaultRandom, rand.NewPCG(1, 2))

	if got := s.Select(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
	none := []domain.CrossingResult{result(1, 90, false), result(2, 80, false)}
	if got := s.Select(none); len(got) != 0 {
		t.Errorf("expected nothing selected, got %v", numbers(got))
	}
}

func TestSelect_TopTwoFirst(t *testing.T) {
	s := selection.New(2, 3, rand.NewPCG(7, 7))
	in := []domain.CrossingResult{
		result(1, 35, true),
		result(2, 75, true),
		result(3, 0, false),
		result(4, 55, true),
		result(5, 75, true),
		result(6, 35, true),
		result(7, 35, true),
		result(8, 35, true),
		result(9, 35, true),
	}

	got := s.Select(in)
	if len(got) != 5 {
		t.Fatalf("expected 5 results, got %d", len(got))
	}
	// ties keep input order
	if got[0].BorderNumber != 2 || got[1].BorderNumber != 5 {
		t.Errorf("expected top two [2 5], got %v", numbers(got[:2]))
	}

	seen := map[int]bool{}
	for _, r := range got {
		if !r.Detection.NeedsHighRes {
			t.Errorf("border %d does not need high-res", r.BorderNumber)
		}
		if seen[r.BorderNumber] {
			t.Errorf("border %d selected twice", r.BorderNumber)
		}
		seen[r.BorderNumber] = true
	}
}

func TestSelect_FewerThanLimit(t *testing.T) {
	s := selection.New(2, 3, nil)
	got := s.Select([]domain.CrossingResult{result(1, 35, true), result(2, 55, true), result(3, 75, true)})
	if !slices.Equal(numbers(got), []int{3, 2, 1}) {
		t.Errorf("expected [3 2 1], got %v", numbers(got))
	}

	got = s.Select([]domain.CrossingResult{result(4, 35, true)})
	if !slices.Equal(numbers(got), []int{4}) {
		t.Errorf("expected [4], got %v", numbers(got))
	}
}

func TestSelect_SeededIsReproducible(t *testing.T) {
	var in []domain.CrossingResult
	for i := 1; i <= 30; i++ {
		in = append(in, result(i, 35, true))
	}

	a := selection.New(2, 3, rand.NewPCG(42, 99)).Select(in)
	b := selection.New(2, 3, rand.NewPCG(42, 99)).Select(in)
	if !slices.Equal(numbers(a), numbers(b)) {
		t.Errorf("same seed gave %v and %v", numbers(a), numbers(b))
	}
	if in[0].BorderNumber != 1 || in[29].BorderNumber != 30 {
		t.Error("input slice must not be reordered")
	}
}

func TestSelect_Bounds(t *testing.T) {
	s := selection.New(2, 3, rand.NewPCG(3, 4))
	if s.Limit() != 5 {
		t.Fatalf("expected limit 5, got %d", s.Limit())
	}

	var in []domain.CrossingResult
	for i := 1; i <= 50; i++ {
		in = append(in, result(i, i%3*20+35, i%4 != 0))
	}
	for range 20 {
		if got := s.Select(in); len(got) > 5 {
			t.Fatalf("selected %d > 5", len(got))
		}
	}

	if got := selection.New(-1, -1, nil).Select(in); len(got) != 0 {
		t.Errorf("negative counts should select nothing, got %d", len(got))
	}
}

func TestSelect_Concurrent(t *testing.T) {
	s := selection.New(2, 3, rand.NewPCG(5, 6))
	var in []domain.CrossingResult
	for i := 1; i <= 20; i++ {
		in = append(in, result(i, 35, true))
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := s.Select(in); len(got) != 5 {
				t.Errorf("expected 5, got %d", len(got))
			}
		}()
	}
	wg.Wait()
}
