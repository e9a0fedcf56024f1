package cask

import "testing"

func strPtr(s string) *string { return &s }

func TestNewPackageInfo(t *testing.T) {
	tests := []struct {
		name  string
		entry RawEntry
		check func(t *testing.T, info PackageInfo)
	}{
		{
			name: "display name from name array",
			entry: RawEntry{
				Token:     "firefox",
				FullToken: "firefox",
				Tap:       DefaultTap,
				Name:      []string{"Mozilla Firefox", "Firefox"},
			},
			check: func(t *testing.T, info PackageInfo) {
				if info.Name != "Mozilla Firefox" {
					t.Errorf("Name = %q; want %q", info.Name, "Mozilla Firefox")
				}
			},
		},
		{
			name: "display name falls back to token",
			entry: RawEntry{
				Token:     "gettext",
				FullToken: "gettext",
			},
			check: func(t *testing.T, info PackageInfo) {
				if info.Name != "gettext" {
					t.Errorf("Name = %q; want token fallback", info.Name)
				}
			},
		},
		{
			name: "pkg installer detected from URL suffix",
			entry: RawEntry{
				Token:     "gettext",
				FullToken: "gettext",
				URL:       "https://example.com/downloads/gettext-1.0.PKG",
			},
			check: func(t *testing.T, info PackageInfo) {
				if !info.PkgInstaller {
					t.Error("PkgInstaller = false; want true for .pkg URL")
				}
			},
		},
		{
			name: "dmg artifact is not a pkg installer",
			entry: RawEntry{
				Token:     "firefox",
				FullToken: "firefox",
				URL:       "https://example.com/Firefox.dmg",
			},
			check: func(t *testing.T, info PackageInfo) {
				if info.PkgInstaller {
					t.Error("PkgInstaller = true; want false for .dmg URL")
				}
			},
		},
		{
			name: "deprecation fields carried over",
			entry: RawEntry{
				Token:             "oldapp",
				FullToken:         "oldapp",
				Deprecated:        true,
				DeprecationDate:   strPtr("2024-01-15"),
				DeprecationReason: strPtr("unmaintained"),
				Replacement:       strPtr("newapp"),
			},
			check: func(t *testing.T, info PackageInfo) {
				if !info.Deprecated || info.DeprecationDate != "2024-01-15" ||
					info.DeprecationReason != "unmaintained" || info.Replacement != "newapp" {
					t.Errorf("deprecation fields not carried: %+v", info)
				}
			},
		},
		{
			name: "nil nullable fields stay empty",
			entry: RawEntry{
				Token:     "app",
				FullToken: "app",
			},
			check: func(t *testing.T, info PackageInfo) {
				if info.Caveats != "" || info.DeprecationDate != "" || info.DisableReason != "" {
					t.Errorf("nullable fields should stay empty: %+v", info)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, NewPackageInfo(tt.entry))
		})
	}
}

func TestRawEntryValid(t *testing.T) {
	if (RawEntry{Token: "a"}).Valid() {
		t.Error("entry without full token should be invalid")
	}
	if (RawEntry{FullToken: "a"}).Valid() {
		t.Error("entry without token should be invalid")
	}
	if !(RawEntry{Token: "a", FullToken: "a"}).Valid() {
		t.Error("entry with both tokens should be valid")
	}
}

func TestAnalyticsCountDegradesToZero(t *testing.T) {
	a := Analytics{"firefox": 120000}

	if got := a.Count("firefox"); got != 120000 {
		t.Errorf("Count(firefox) = %d; want 120000", got)
	}
	if got := a.Count("absent-token"); got != 0 {
		t.Errorf("Count(absent) = %d; want 0", got)
	}

	var nilMap Analytics
	if got := nilMap.Count("anything"); got != 0 {
		t.Errorf("nil Analytics Count = %d; want 0", got)
	}
}

func TestChunkPairs(t *testing.T) {
	mk := func(n int) []*Package {
		pkgs := make([]*Package, n)
		for i := range pkgs {
			pkgs[i] = NewPackage(PackageInfo{Token: "t", FullToken: "t"}, false, false, 0)
		}
		return pkgs
	}

	tests := []struct {
		n          int
		wantChunks int
		wantLast   int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{2, 1, 2},
		{5, 3, 1},
		{6, 3, 2},
	}

	for _, tt := range tests {
		chunks := ChunkPairs(mk(tt.n))
		if len(chunks) != tt.wantChunks {
			t.Errorf("ChunkPairs(%d): %d chunks; want %d", tt.n, len(chunks), tt.wantChunks)
			continue
		}
		if tt.wantChunks > 0 && len(chunks[len(chunks)-1]) != tt.wantLast {
			t.Errorf("ChunkPairs(%d): last chunk size %d; want %d", tt.n, len(chunks[len(chunks)-1]), tt.wantLast)
		}
	}
}

func TestPackageStateAccessors(t *testing.T) {
	p := NewPackage(PackageInfo{Token: "x", FullToken: "x"}, true, false, 42)

	if !p.Installed() || p.Outdated() || p.DownloadCount() != 42 {
		t.Fatalf("initial flags wrong: installed=%v outdated=%v downloads=%d",
			p.Installed(), p.Outdated(), p.DownloadCount())
	}
	if p.State().Phase != PhaseIdle {
		t.Errorf("initial phase = %v; want idle", p.State().Phase)
	}

	p.SetInstalled(false)
	p.SetOutdated(true)
	p.SetState(ProgressState{Phase: PhaseBusy, Label: "Installing"})

	if p.Installed() || !p.Outdated() {
		t.Error("flag mutation not visible")
	}
	if st := p.State(); st.Phase != PhaseBusy || st.Label != "Installing" {
		t.Errorf("state = %+v; want busy/Installing", st)
	}
}
