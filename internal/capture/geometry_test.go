package capture

import "testing"

func TestWindowClientBox(t *testing.T) {
	tests := []struct {
		name   string
		window Rect
		client Rect
		origin Point
		want   Box
	}{
		{
			name:   "titled window",
			window: Rect{Left: 100, Top: 50, Right: 916, Bottom: 689},
			client: Rect{Right: 800, Bottom: 600},
			origin: Point{X: 108, Y: 81},
			want:   Box{Left: 1, Top: 31, Right: 801, Bottom: 631, Back: 1},
		},
		{
			name:   "borderless window",
			window: Rect{Left: 0, Top: 0, Right: 640, Bottom: 480},
			client: Rect{Right: 640, Bottom: 480},
			origin: Point{},
			want:   Box{Left: 1, Top: 0, Right: 641, Bottom: 480, Back: 1},
		},
		{
			name:   "minimized",
			window: Rect{Left: -32000, Top: -32000, Right: -31840, Bottom: -31972},
			client: Rect{},
			origin: Point{X: -32000, Y: -32000},
			want:   Box{Left: 1, Top: 0, Right: 1, Bottom: 0, Back: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WindowClientBox(tt.window, tt.client, tt.origin)
			if got != tt.want {
				t.Fatalf("WindowClientBox() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDisplayBox(t *testing.T) {
	got := DisplayBox(Rect{Left: -1920, Top: 0, Right: 0, Bottom: 1080})
	want := Box{Right: 1920, Bottom: 1080, Back: 1}
	if got != want {
		t.Fatalf("DisplayBox() = %+v, want %+v", got, want)
	}
	if got.Size() != (Size{Width: 1920, Height: 1080}) {
		t.Fatalf("Size() = %v, want 1920x1080", got.Size())
	}
}

func TestBoxEmptyAndWithin(t *testing.T) {
	b := Box{Left: 1, Top: 31, Right: 801, Bottom: 631, Back: 1}
	if b.Empty() {
		t.Fatal("Empty() = true, want false")
	}
	if !b.Within(Size{Width: 816, Height: 639}) {
		t.Fatal("Within(816x639) = false, want true")
	}
	if b.Within(Size{Width: 800, Height: 639}) {
		t.Fatal("Within(800x639) = true, want false")
	}
	if !(Box{Left: 1, Right: 1, Bottom: 10, Back: 1}).Empty() {
		t.Fatal("zero-width box should be empty")
	}
}
