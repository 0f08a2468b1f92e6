package web

import "testing"

func TestParseAcctResource(t *testing.T) {
	cases := []struct {
		resource string
		name     string
		domain   string
		wantErr  bool
	}{
		{"acct:alice@local.example", "alice", "local.example", false},
		{"alice@local.example", "alice", "local.example", false},
		{"acct:@alice@local.example", "alice", "local.example", false},
		{"acct:alice", "", "", true},
		{"acct:@local.example", "", "", true},
		{"", "", "", true},
		{"acct:a@b@c", "", "", true},
	}
	for _, c := range cases {
		name, domain, err := parseAcctResource(c.resource)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseAcctResource(%q) expected error", c.resource)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAcctResource(%q) failed: %v", c.resource, err)
			continue
		}
		if name != c.name || domain != c.domain {
			t.Errorf("parseAcctResource(%q) = %q, %q; want %q, %q", c.resource, name, domain, c.name, c.domain)
		}
	}
}
