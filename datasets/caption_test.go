package datasets

import "testing"

func TestPreCaption(t *testing.T) {
	cases := []struct {
		in       string
		maxWords int
		want     string
	}{
		{"The man's RED car, on the left!", 30, "the mans red car on the left"},
		{"The man's RED car, on the left!", 4, "the mans red car"},
		{"a dog-walker / <person> in  black", 30, "a dog walker person in black"},
		{"  (tracked) \"object\": #1;~  \n", 30, "tracked object 1"},
		{"keep every word", 0, "keep every word"},
		{"", 10, ""},
	}
	for _, c := range cases {
		if got := PreCaption(c.in, c.maxWords); got != c.want {
			t.Fatalf("PreCaption(%q, %d) = %q, want %q", c.in, c.maxWords, got, c.want)
		}
	}
}
