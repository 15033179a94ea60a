// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package names

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercases", "Zhang San", "zhang san"},
		{"trims and collapses whitespace", "  Zhang   San ", "zhang san"},
		{"separator punctuation becomes spaces", "J.-P. Sartre", "j p sartre"},
		{"middle dot", "阿不都·热合曼", "阿不都 热合曼"},
		{"comma and semicolon", "Zhang, Xi; MIT", "zhang xi mit"},
		{"keeps diacritics", "José García", "josé garcía"},
		{"slash and underscore", "a/b_c", "a b c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fold(tt.in)
			if got != tt.want {
				t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
			}
			// Idempotence: folding a folded string changes nothing.
			if again := Fold(got); again != got {
				t.Errorf("Fold not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestCompactToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Zhang San", "zhangsan"},
		{"hyphenated", "Zhang-San", "zhangsan"},
		{"dotted initials", "Z. San", "zsan"},
		{"strips diacritics", "José García", "josegarcia"},
		{"keeps digits", "Author 2nd", "author2nd"},
		{"han compacts to empty", "张三", ""},
		{"mixed script keeps latin", "张三 Zhang", "zhang"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompactToken(tt.in)
			if got != tt.want {
				t.Errorf("CompactToken(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := CompactToken(got); again != got {
				t.Errorf("CompactToken not idempotent: %q -> %q", got, again)
			}
		})
	}
}

// Equal compact tokens are the dedup and matching identity: every spacing,
// casing, punctuation, and diacritic rendering of one name must map to one
// token.
func TestCompactTokenEquivalenceClasses(t *testing.T) {
	classes := [][]string{
		{"Zhang San", "zhang san", "Zhang-San", "ZhangSan", "Zhang.San", "ZHANG SAN"},
		{"José García", "Jose Garcia", "jose-garcia"},
		{"J. P. Sartre", "J.-P. Sartre", "jp sartre"},
	}
	for _, class := range classes {
		want := CompactToken(class[0])
		for _, s := range class[1:] {
			if got := CompactToken(s); got != want {
				t.Errorf("CompactToken(%q) = %q, want %q (same class as %q)", s, got, want, class[0])
			}
		}
	}
}
