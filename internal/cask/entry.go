package cask

import (
	"strings"
)

// RawEntry mirrors one element of the formulae.brew.sh cask.json array. Only
// the fields the catalog consumes are declared; unknown fields are ignored by
// the decoder. Nullable API fields use pointer types so absence and empty
// string stay distinguishable.
type RawEntry struct {
	Token             string   `json:"token"`
	FullToken         string   `json:"full_token"`
	Tap               string   `json:"tap"`
	Name              []string `json:"name"`
	Desc              string   `json:"desc"`
	Homepage          string   `json:"homepage"`
	Caveats           *string  `json:"caveats"`
	URL               string   `json:"url"`
	Deprecated        bool     `json:"deprecated"`
	DeprecationDate   *string  `json:"deprecation_date"`
	DeprecationReason *string  `json:"deprecation_reason"`
	Replacement       *string  `json:"deprecation_replacement"`
	Disabled          bool     `json:"disabled"`
	DisableDate       *string  `json:"disable_date"`
	DisableReason     *string  `json:"disable_reason"`
}

// DefaultTap is the tap casks come from unless contributed by a third-party
// repository.
const DefaultTap = "homebrew/cask"

// Valid reports whether the entry carries enough identity to build a package.
func (e RawEntry) Valid() bool {
	return e.Token != "" && e.FullToken != ""
}

// NewPackageInfo builds the immutable metadata record from a raw catalog
// entry.
func NewPackageInfo(e RawEntry) PackageInfo {
	name := e.Token
	if len(e.Name) > 0 && e.Name[0] != "" {
		name = e.Name[0]
	}

	info := PackageInfo{
		Token:        e.Token,
		FullToken:    e.FullToken,
		Tap:          e.Tap,
		Name:         name,
		Description:  e.Desc,
		Homepage:     e.Homepage,
		PkgInstaller: strings.HasSuffix(strings.ToLower(e.URL), ".pkg"),
		Deprecated:   e.Deprecated,
		Disabled:     e.Disabled,
	}

	if e.Caveats != nil {
		info.Caveats = *e.Caveats
	}
	if e.DeprecationDate != nil {
		info.DeprecationDate = *e.DeprecationDate
	}
	if e.DeprecationReason != nil {
		info.DeprecationReason = *e.DeprecationReason
	}
	if e.Replacement != nil {
		info.Replacement = *e.Replacement
	}
	if e.DisableDate != nil {
		info.DisableDate = *e.DisableDate
	}
	if e.DisableReason != nil {
		info.DisableReason = *e.DisableReason
	}

	return info
}

// Analytics maps short cask tokens to 365-day install counts. Keys are the
// short token, not the full token; Count degrades to 0 for absent tokens.
type Analytics map[string]int

// Count returns the install count for token, or 0 when the token is absent.
func (a Analytics) Count(token string) int {
	if a == nil {
		return 0
	}
	return a[token]
}
