package email

import (
	"strings"
	"testing"
)

func TestValid(t *testing.T) {
	valid := []string{
		"alice@gmail.com",
		"a.l.i.c.e@gmail.com",
		"alice+tag@googlemail.com",
		"o'brien@example.co.uk",
		"x@y.z",
	}
	for _, a := range valid {
		if !Valid(a) {
			t.Errorf("Valid(%q) = false, want true", a)
		}
	}

	invalid := []string{
		"",
		"alice",
		"alice@",
		"@gmail.com",
		"alice@gmail",          // single-label host
		"al ice@gmail.com",     // space
		"alice@@gmail.com",     // double at
		"alice@-gmail.com",     // label starts with hyphen
		strings.Repeat("a", 65) + "@gmail.com",       // local too long
		"a@" + strings.Repeat("b", 250) + ".com.net", // host too long
	}
	for _, a := range invalid {
		if Valid(a) {
			t.Errorf("Valid(%q) = true, want false", a)
		}
	}
}

func TestCanonicalizeFolding(t *testing.T) {
	n := New("gmail.com")

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Alice@Gmail.Com", "alice@gmail.com", true},
		{"a.l.i.c.e@gmail.com", "alice@gmail.com", true},
		{"alice+foo@gmail.com", "alice@gmail.com", true},
		{"alice.b+x@googlemail.com", "aliceb@gmail.com", true},
		{"alice@yahoo.com", "", false}, // outside restricted domain
		{"not-an-email", "", false},
		{"...@gmail.com", "", false}, // folds to empty local part
	}
	for _, c := range cases {
		got, ok := n.Canonicalize(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("Canonicalize(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	n := New("gmail.com")
	first, ok := n.Canonicalize("A.lice+work@googlemail.com")
	if !ok {
		t.Fatal("first canonicalization failed")
	}
	second, ok := n.Canonicalize(first)
	if !ok || second != first {
		t.Errorf("Canonicalize(%q) = (%q, %v), want fixed point", first, second, ok)
	}
}

func TestSameIdentity(t *testing.T) {
	n := New("gmail.com")

	// Reflexive for valid, never for invalid.
	if !n.Same("alice@gmail.com", "alice@gmail.com") {
		t.Error("valid address should equal itself")
	}
	if n.Same("not-an-email", "not-an-email") {
		t.Error("invalid address must not equal itself")
	}
	if n.Same("alice@yahoo.com", "alice@yahoo.com") {
		t.Error("non-accepted domain must not equal itself under restriction")
	}

	// Alias folding.
	pairs := []struct {
		a, b string
		want bool
	}{
		{"alice+foo@gmail.com", "alice+bar@gmail.com", true},
		{"a.l.i.c.e@gmail.com", "al.ice@gmail.com", true},
		{"alice@gmail.com", "alice@googlemail.com", true},
		{"alice@gmail.com", "alice@g.mail.com", false},
		{"alice@gmail.com", "bob@gmail.com", false},
	}
	for _, p := range pairs {
		if got := n.Same(p.a, p.b); got != p.want {
			t.Errorf("Same(%q, %q) = %v, want %v", p.a, p.b, got, p.want)
		}
		// Symmetry.
		if got := n.Same(p.b, p.a); got != p.want {
			t.Errorf("Same(%q, %q) = %v, want %v (symmetry)", p.b, p.a, got, p.want)
		}
	}
}

func TestUnrestrictedDomainPolicy(t *testing.T) {
	n := New("")

	if !n.Same("alice@example.org", "ALICE@example.org") {
		t.Error("unrestricted normalizer should accept any valid domain")
	}
	// Gmail folding still applies opportunistically.
	if !n.Same("a.lice+x@gmail.com", "alice@googlemail.com") {
		t.Error("gmail folding should apply even without a domain restriction")
	}
	// Dot-stripping is a Gmail rule only.
	if n.Same("a.lice@example.org", "alice@example.org") {
		t.Error("dot folding must not apply to non-gmail domains")
	}
}
