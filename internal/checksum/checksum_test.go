package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestMatchesAny(t *testing.T) {
	sum := Sum([]byte("x"))
	cases := []struct {
		header string
		want   bool
	}{
		{ETag(sum), true},
		{sum, true},
		{`"other", ` + ETag(sum), true},
		{"W/" + ETag(sum), true},
		{"*", true},
		{`"other"`, false},
		{"", false},
	}
	for _, c := range cases {
		if got := MatchesAny(c.header, sum); got != c.want {
			t.Errorf("MatchesAny(%q) = %v, want %v", c.header, got, c.want)
		}
	}
}
