package maps

import (
	"context"
	"testing"
)

type growingView struct {
	*fakeView
}

func (g growingView) Count(_ context.Context, sel string) (int, error) {
	if sel == `.HlvSq` {
		return 0, nil
	}
	return g.scrolls + 1, nil
}

func scrollOpts() ScrollOptions {
	opts := DefaultScrollOptions()
	opts.Settle = 0
	return opts
}

func TestExpand_StopsWhenCountIsStable(t *testing.T) {
	view := &fakeView{pages: []string{listPage(article("Only One", "", ""))}}

	n := Expand(context.Background(), view, `[role="article"]`, 50, scrollOpts())
	if n != 1 {
		t.Errorf("Expected count 1, got %d", n)
	}
	if view.scrolls != 1 {
		t.Errorf("Expected a single scroll, got %d", view.scrolls)
	}
}

func TestExpand_BoundedByMaxIterations(t *testing.T) {
	view := growingView{&fakeView{}}
	opts := scrollOpts()

	Expand(context.Background(), view, `[role="article"]`, 0, opts)
	if view.scrolls != opts.MaxIterations {
		t.Errorf("Expected %d scrolls, got %d", opts.MaxIterations, view.scrolls)
	}
}

func TestExpand_TargetAlreadyMet(t *testing.T) {
	view := bakeryView()

	n := Expand(context.Background(), view, `[role="article"]`, 2, scrollOpts())
	if n != 2 || view.scrolls != 0 {
		t.Errorf("Expected no scrolling, got count %d after %d scrolls", n, view.scrolls)
	}
}

func TestExpand_EndOfList(t *testing.T) {
	view := &fakeView{pages: []string{listPage(article("A Place", "", ""), `<span class="HlvSq">You've reached the end of the list.</span>`)}}

	Expand(context.Background(), view, `[role="article"]`, 10, scrollOpts())
	if view.scrolls != 0 {
		t.Errorf("Expected no scrolling past the end marker, got %d", view.scrolls)
	}
}

func TestExpand_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	view := growingView{&fakeView{}}

	Expand(ctx, view, `[role="article"]`, 0, scrollOpts())
	if view.scrolls > 1 {
		t.Errorf("Expected cancellation to stop scrolling, got %d scrolls", view.scrolls)
	}
}
