package pattern

import "testing"

func TestCompileShape(t *testing.T) {
	cases := []struct {
		pat     string
		wantErr bool
		prefix  string
		width   int
		suffix  string
	}{
		{"image_#####.png", false, "image_", 5, ".png"},
		{"########_#.png", true, "", 0, ""}, // two runs separated by literal '_'
		{"noplaceholder.png", true, "", 0, ""},
		{"###mid###", true, "", 0, ""},
	}
	for _, c := range cases {
		tmpl, err := Compile(c.pat)
		if c.wantErr {
			if err == nil {
				t.Errorf("Compile(%q): expected error, got none", c.pat)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Compile(%q): unexpected error: %v", c.pat, err)
		}
		if tmpl.Prefix != c.prefix || tmpl.Width != c.width || tmpl.Suffix != c.suffix {
			t.Errorf("Compile(%q) = %+v, want prefix=%q width=%d suffix=%q", c.pat, tmpl, c.prefix, c.width, c.suffix)
		}
	}
}

func TestTemplateParsesHashRuns(t *testing.T) {
	tmpl, err := Compile("image_#####.png")
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Prefix != "image_" || tmpl.Width != 5 || tmpl.Suffix != ".png" {
		t.Fatalf("unexpected compile result: %+v", tmpl)
	}

	if idx, ok := tmpl.Parse("image_00042.png"); !ok || idx != 42 {
		t.Errorf("Parse(image_00042.png) = (%d, %v), want (42, true)", idx, ok)
	}
	if _, ok := tmpl.Parse("image_42.png"); ok {
		t.Errorf("Parse(image_42.png) should fail: wrong width")
	}
	if got := tmpl.Format(42); got != "image_00042.png" {
		t.Errorf("Format(42) = %q, want image_00042.png", got)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	tmpl, err := Compile("frame_####.tif")
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []uint64{0, 1, 42, 9999} {
		name := tmpl.Format(n)
		got, ok := tmpl.Parse(name)
		if !ok || got != n {
			t.Errorf("round trip failed for %d: formatted %q, parsed (%d, %v)", n, name, got, ok)
		}
	}
}

func TestFormatWidthIsMinimum(t *testing.T) {
	tmpl, err := Compile("frame_####.tif")
	if err != nil {
		t.Fatal(err)
	}
	got := tmpl.Format(123456)
	if got != "frame_123456.tif" {
		t.Errorf("Format(123456) = %q, want frame_123456.tif (no truncation)", got)
	}
}

func TestParseRejectsOverflow(t *testing.T) {
	tmpl, err := Compile("frame_####################.tif") // 20 digits: can overflow uint64
	if err != nil {
		t.Fatal(err)
	}
	// 20 nines overflows uint64 (max is ~1.8e19, 20 nines is ~9.99e19)
	name := tmpl.Prefix + "99999999999999999999" + tmpl.Suffix
	if _, ok := tmpl.Parse(name); ok {
		t.Errorf("Parse should reject overflowing digit run")
	}
}

func TestParseRejectsShortNameWithOverlappingPrefixSuffix(t *testing.T) {
	tmpl, err := Compile("a#a")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tmpl.Parse("a"); ok {
		t.Errorf("Parse(%q) should fail, not panic, when name is shorter than prefix+suffix", "a")
	}
	if _, ok := tmpl.Parse(""); ok {
		t.Error("Parse(\"\") should fail, not panic")
	}
}

func TestMatches(t *testing.T) {
	tmpl, err := Compile("img_###.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if !tmpl.Matches("img_007.jpg") {
		t.Error("expected match")
	}
	if tmpl.Matches("img_7.jpg") {
		t.Error("expected no match: wrong width")
	}
	if tmpl.Matches("other_007.jpg") {
		t.Error("expected no match: wrong prefix")
	}
}
