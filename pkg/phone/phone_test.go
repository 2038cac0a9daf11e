package phone

import "testing"

func TestLast10(t *testing.T) {
	cases := map[string]string{
		"+91 98765-43210": "9876543210",
		"919876543210":    "9876543210",
		"9876543210":      "9876543210",
		"12345":           "12345",
		"":                "",
	}
	for in, want := range cases {
		if got := Last10(in); got != want {
			t.Errorf("Last10(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSameSubscriber(t *testing.T) {
	if !SameSubscriber("+1 (234) 567-8900", "12345678900") {
		t.Fatal("expected formatted and bare numbers to match")
	}
	if SameSubscriber("", "") {
		t.Fatal("empty numbers must not match")
	}
	if SameSubscriber("9876543210", "9876543211") {
		t.Fatal("different numbers matched")
	}
}

func TestFormatIndia(t *testing.T) {
	cases := map[string]string{
		"98765 43210":   "919876543210",
		"919876543210":  "919876543210",
		"+1 5550000001": "15550000001",
		// ten digits that already start with 91 are left alone
		"9112345678": "9112345678",
	}
	for in, want := range cases {
		if got := FormatIndia(in); got != want {
			t.Errorf("FormatIndia(%q) = %q, want %q", in, got, want)
		}
	}
}
