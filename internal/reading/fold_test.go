package reading

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", ""},
		{"ねこ", "ねこ"},
		{"ネコ", "ねこ"},
		{"猫", "猫"},
		{"チキンカレー", "ちきんかれー"},
		{"ｶﾚｰ", "かれー"},
		{"ｶﾞｽ", "がす"},
		{"ＡＢＣ　Curry", "abc curry"},
		{"ヴィーガン", "ゔぃーがん"},
		{"  鶏肉のカレー  ", "鶏肉のかれー"},
	}
	for _, tt := range tests {
		got, err := Fold(tt.input)
		if err != nil {
			t.Fatalf("Fold(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFold_Idempotent(t *testing.T) {
	for _, s := range []string{"ネコ", "ｶﾞｽ", "ＡＢＣ　Curry", "鶏肉のカレー にんじん", "100%オフ", "ヵヶ"} {
		once, err := Fold(s)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := Fold(once)
		if err != nil {
			t.Fatal(err)
		}
		if once != twice {
			t.Errorf("Fold not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestKatakanaToHiragana_BlockEdges(t *testing.T) {
	if got := KatakanaToHiragana("ァヶー・"); got != "ぁゖー・" {
		t.Fatalf("got %q", got)
	}
}

func TestKatakanaToHiragana_IterationMarks(t *testing.T) {
	tests := []struct{ input, want string }{
		{"ヽ", "ゝ"},
		{"ヾ", "ゞ"},
		{"イスヾ", "いすゞ"},
		{"ゝゞ", "ゝゞ"},
		{"ヿ", "ヿ"},
	}
	for _, tt := range tests {
		if got := KatakanaToHiragana(tt.input); got != tt.want {
			t.Errorf("KatakanaToHiragana(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"あいうえお", 3, "あいう"},
		{"あいう", 3, "あいう"},
		{"abc", 10, "abc"},
		{"abc", 0, "abc"},
		{"", 2, ""},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.s, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
		}
	}
}
