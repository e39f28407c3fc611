package pkginfo

import (
	"reflect"
	"testing"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		id   string
		want Update
	}{
		{
			id:   "chromium;120.0.6099;armhf;raspbian",
			want: Update{ID: "chromium;120.0.6099;armhf;raspbian", Name: "chromium", Version: "120.0.6099", Arch: "armhf", Origin: "raspbian"},
		},
		{
			id:   "pkgA;1.0",
			want: Update{ID: "pkgA;1.0", Name: "pkgA", Version: "1.0"},
		},
		{
			id:   "bare",
			want: Update{ID: "bare", Name: "bare"},
		},
		{
			id:   "",
			want: Update{},
		},
	}

	for _, tt := range tests {
		got := ParseID(tt.id)
		if got != tt.want {
			t.Errorf("ParseID(%q) = %+v, want %+v", tt.id, got, tt.want)
		}
	}
}

func TestSupersedes(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		installed string
		want      bool
	}{
		{"newer semantic", "2.1.0", "2.0.0", true},
		{"older semantic", "1.9.0", "2.0.0", false},
		{"equal semantic", "2.0.0", "2.0.0", false},
		{"no installed version", "2.0.0", "", true},
		{"debian epoch differs", "1:2.3-1", "1:2.2-1", true},
		{"debian epoch equal", "1:2.3-1", "1:2.3-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Update{Version: tt.candidate}
			if got := u.Supersedes(tt.installed); got != tt.want {
				t.Errorf("Supersedes(%q vs %q) = %v, want %v", tt.candidate, tt.installed, got, tt.want)
			}
		})
	}
}

func TestFilterForPlatformTargetKeepsAll(t *testing.T) {
	updates := []Update{
		{ID: "a;1.0;amd64;repo", Arch: "amd64"},
		{ID: "b;1.0;armhf;repo", Arch: "armhf"},
	}
	got := FilterForPlatform(updates, true)
	if !reflect.DeepEqual(got, updates) {
		t.Errorf("target platform filter changed the set: %+v", got)
	}
}

func TestFilterForPlatformExcludesForeignArch(t *testing.T) {
	updates := []Update{
		{ID: "a;1.0;armhf;repo", Arch: "armhf"},
		{ID: "b;1.0;amd64;repo", Arch: "amd64"},
		{ID: "c;1.0;all;repo", Arch: "all"},
	}
	got := FilterForPlatform(updates, false)
	want := []Update{updates[0], updates[2]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterForPlatform = %+v, want %+v", got, want)
	}
}

func TestFilterForPlatformPure(t *testing.T) {
	updates := []Update{
		{ID: "a;1.0;armhf;repo", Arch: "armhf"},
		{ID: "b;1.0;amd64;repo", Arch: "amd64"},
	}
	first := FilterForPlatform(updates, false)
	for i := 0; i < 10; i++ {
		again := FilterForPlatform(updates, false)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("filter not pure: run %d gave %+v, first gave %+v", i, again, first)
		}
	}
}

func TestFilterForPlatformPreservesOrder(t *testing.T) {
	updates := []Update{
		{ID: "z;1.0;armhf;repo", Arch: "armhf"},
		{ID: "a;1.0;armhf;repo", Arch: "armhf"},
		{ID: "m;1.0;amd64;repo", Arch: "amd64"},
		{ID: "b;1.0;all;repo", Arch: "all"},
	}
	got := IDs(FilterForPlatform(updates, false))
	want := []string{"z;1.0;armhf;repo", "a;1.0;armhf;repo", "b;1.0;all;repo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order not preserved: got %v, want %v", got, want)
	}
}
