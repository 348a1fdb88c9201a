package pages

import (
	"errors"
	"testing"
)

func TestSelect(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	cases := []struct {
		path string
		want string
	}{
		{"/", "jobs"},
		{"/unemployment", "unemployment"},
		{"/housing", "housing"},
		{"/foo", "jobs"},
		{"", "jobs"},
		{"/housing/extra", "jobs"},
		{"/Housing", "jobs"},
	}
	for _, tc := range cases {
		if got := c.Select(tc.path).Name; got != tc.want {
			t.Fatalf("Select(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestDefaultCatalogContent(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	jobs := c.Select("/")
	if len(jobs.Series) != 12 || jobs.Table != "jobs" || !jobs.HasChart() {
		t.Fatalf("unexpected jobs page: %+v", jobs)
	}
	codes := ""
	for _, s := range jobs.Series {
		codes += s.Code + " "
	}
	if codes != "C EHS FA I LH M NRM OS PBS PA TTU U " {
		t.Fatalf("unexpected series codes %q", codes)
	}
	for _, s := range jobs.Series {
		if s.Label != s.Column {
			t.Fatalf("jobs legend label %q should be the full column name %q", s.Label, s.Column)
		}
	}

	unemp := c.Select("/unemployment")
	if got := unemp.Columns(); len(got) != 2 || got[0] != "SJ Unemployment" || got[1] != "SJ Metro Unemployment" {
		t.Fatalf("unexpected unemployment columns %v", got)
	}
	if unemp.Series[1].Label != "Metro Unemployment" {
		t.Fatalf("unexpected label %q", unemp.Series[1].Label)
	}

	housing := c.Select("/housing")
	if housing.HasChart() || housing.Title != "San Jose Housing Prices" || housing.Placeholder != "Coming Soon!" {
		t.Fatalf("unexpected housing page: %+v", housing)
	}

	nav := c.Pages()
	if len(nav) != 3 || nav[0].Nav != "Jobs by Sector" || nav[2].Nav != "Housing" {
		t.Fatalf("unexpected nav order %+v", nav)
	}
	if keys := c.Tables(); len(keys) != 2 || keys[0] != "jobs" || keys[1] != "unemployment" {
		t.Fatalf("unexpected table keys %v", keys)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load([]byte("pages: []")); !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
	if _, err := Load([]byte("pages: [")); err == nil {
		t.Fatalf("expected parse error")
	}
	dup := []byte("pages:\n  - {name: a, path: /}\n  - {name: b, path: /}\n")
	if _, err := Load(dup); err == nil {
		t.Fatalf("expected duplicate path error")
	}
	missing := []byte("pages:\n  - {name: a}\n")
	if _, err := Load(missing); err == nil {
		t.Fatalf("expected missing path error")
	}
}
