package genre

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want []Bucket
	}{
		{"rap", []string{"Hip-Hop", "underground"}, []Bucket{HipHop}},
		{"r&b", []string{"R&B"}, []Bucket{HipHop}},
		{"stoner rock is both", []string{"stoner rock"}, []Bucket{Rock, Metal}},
		{"post-metal is both", []string{"post-metal"}, []Bucket{Rock, Metal}},
		{"sludge", []string{"Sludge"}, []Bucket{Metal}},
		{"indie", []string{"indie", "alternative"}, []Bucket{Rock}},
		{"mixed tags", []string{"rap", "punk", "doom"}, []Bucket{HipHop, Rock, Metal}},
		{"no match", []string{"jazz", "ambient"}, nil},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.tags)
			if len(got) != len(tt.want) {
				t.Fatalf("Classify(%v) = %v, want %v", tt.tags, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Classify(%v)[%d] = %v, want %v", tt.tags, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWeights(t *testing.T) {
	var w Weights
	if !w.IsZero() {
		t.Error("zero Weights should report IsZero")
	}

	w.Add(Rock)
	w.Add(Rock)
	w.Add(Metal)

	if w.Get(Rock) != 2 || w.Get(Metal) != 1 || w.Get(HipHop) != 0 {
		t.Errorf("unexpected weights %v", w)
	}
	if w.Total() != 3 {
		t.Errorf("Total() = %d, want 3", w.Total())
	}

	u := Uniform()
	for _, b := range Buckets {
		if u.Get(b) != 1 {
			t.Errorf("Uniform().Get(%v) = %d, want 1", b, u.Get(b))
		}
	}
}

func TestParseBucket(t *testing.T) {
	for _, b := range Buckets {
		got, err := ParseBucket(b.String())
		if err != nil {
			t.Fatalf("ParseBucket(%q) error = %v", b.String(), err)
		}
		if got != b {
			t.Errorf("ParseBucket(%q) = %v, want %v", b.String(), got, b)
		}
	}

	if _, err := ParseBucket("polka"); err == nil {
		t.Error("ParseBucket(polka) expected error")
	}
}
