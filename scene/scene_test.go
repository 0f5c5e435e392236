package scene

import (
	"image"
	"testing"

	"go.uber.org/zap/zapcore"
	"roomify/conditioning"
)

func TestEdgeDensityBucket(t *testing.T) {
	tests := []struct {
		ratio     float64
		wantB     Bucket
		wantScale float64
		wantSeed  int64
	}{
		{0, BucketEmpty, 0.3, SparseSeed},
		{0.0399, BucketEmpty, 0.3, SparseSeed},
		{0.04, BucketSemi, 0.4, SparseSeed},
		{0.0699, BucketSemi, 0.4, SparseSeed},
		{0.07, BucketFurnished, 0.5, FurnishedSeed},
		{0.5, BucketFurnished, 0.5, FurnishedSeed},
		{1, BucketFurnished, 0.5, FurnishedSeed},
	}

	for _, tt := range tests {
		b, scale, seed := EdgeDensityBucket(tt.ratio)
		if b != tt.wantB || scale != tt.wantScale || seed != tt.wantSeed {
			t.Errorf("EdgeDensityBucket(%v) = (%s, %v, %d), want (%s, %v, %d)",
				tt.ratio, b, scale, seed, tt.wantB, tt.wantScale, tt.wantSeed)
		}
	}
}

func TestEdgeDensityBucket_Monotonic(t *testing.T) {
	rank := map[Bucket]int{BucketEmpty: 0, BucketSemi: 1, BucketFurnished: 2}
	prev := -1
	for i := 0; i <= 1000; i++ {
		b, _, _ := EdgeDensityBucket(float64(i) / 1000)
		if rank[b] < prev {
			t.Fatalf("bucket decreased at ratio %v", float64(i)/1000)
		}
		prev = rank[b]
	}
}

func TestClassifyEdges(t *testing.T) {
	edges := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := 0; i < 5; i++ {
		edges.Pix[i] = 255
	}

	s := ClassifyEdges(edges)
	if s.EdgeRatio != 0.05 || s.Bucket != BucketSemi || s.ConditioningScale != 0.4 || s.Seed != SparseSeed {
		t.Errorf("ClassifyEdges() = %+v", s)
	}
}

func segMap(ids ...uint16) *conditioning.SegmentationMap {
	return &conditioning.SegmentationMap{Width: len(ids), Height: 1, Classes: ids}
}

func TestLabelPresent(t *testing.T) {
	windowpane, _ := conditioning.ADE20K.Lookup("windowpane")
	curtain, _ := conditioning.ADE20K.Lookup("curtain")

	tests := []struct {
		name     string
		m        *conditioning.SegmentationMap
		keywords []string
		want     bool
	}{
		{"windowpane present", segMap(0, uint16(windowpane), 3), WindowKeywords, true},
		{"no window", segMap(0, 3, 5, 7), WindowKeywords, false},
		{"curtain present", segMap(uint16(curtain)), CurtainKeywords, true},
		{"curtain is not a window", segMap(uint16(curtain)), WindowKeywords, false},
		{"case insensitive keyword", segMap(uint16(windowpane)), []string{"WINDOW"}, true},
		{"out of range ids ignored", segMap(999), WindowKeywords, false},
		{"nil map", nil, WindowKeywords, false},
		{"no keywords", segMap(uint16(windowpane)), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LabelPresent(tt.m, conditioning.ADE20K, tt.keywords); got != tt.want {
				t.Errorf("LabelPresent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchedLabels(t *testing.T) {
	table := conditioning.LabelTable{"wall", "Window Frame", "drape", "bay window"}
	got := MatchedLabels(segMap(0, 1, 2, 3, 1), table, WindowKeywords)
	if len(got) != 2 || got[0] != "window frame" || got[1] != "bay window" {
		t.Errorf("MatchedLabels() = %v", got)
	}
}

func TestSignals_MarshalLogObject(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	s := Signals{EdgeRatio: 0.1, Bucket: BucketFurnished, ConditioningScale: 0.5, Seed: 42, HasWindow: true, WindowChecked: true}
	if err := s.MarshalLogObject(enc); err != nil {
		t.Fatal(err)
	}
	if enc.Fields["has_window"] != true {
		t.Errorf("has_window = %v", enc.Fields["has_window"])
	}
	if _, ok := enc.Fields["has_curtain"]; ok {
		t.Error("has_curtain logged although curtain detection did not run")
	}
	if enc.Fields["seed"] != int64(42) {
		t.Errorf("seed = %v", enc.Fields["seed"])
	}
}
