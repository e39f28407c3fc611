package pkginfo

import (
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// idSeparator splits the fields of a PackageKit package ID,
// "name;version;arch;origin".
const idSeparator = ";"

// foreignArchMarker tags packages that must never be auto-updated on
// machines that are not the target platform.
const foreignArchMarker = "amd64"

// Update describes one pending package update. The ID is the raw backend
// package ID and is the only field round-tripped back to the backend.
type Update struct {
	ID      string
	Name    string
	Version string
	Arch    string
	Origin  string
}

// ParseID splits a backend package ID into an Update. Missing trailing
// fields are left empty; the ID is preserved verbatim.
func ParseID(id string) Update {
	u := Update{ID: id}
	parts := strings.SplitN(id, idSeparator, 4)
	if len(parts) > 0 {
		u.Name = parts[0]
	}
	if len(parts) > 1 {
		u.Version = parts[1]
	}
	if len(parts) > 2 {
		u.Arch = parts[2]
	}
	if len(parts) > 3 {
		u.Origin = parts[3]
	}
	return u
}

// Supersedes reports whether this update is a real upgrade over the
// installed version. When both versions parse semantically the comparison
// is numeric; otherwise any difference counts, since distro version
// strings (epochs, tildes) routinely defeat semantic parsing.
func (u Update) Supersedes(installed string) bool {
	if installed == "" {
		return true
	}
	cand, errC := goversion.NewVersion(u.Version)
	cur, errI := goversion.NewVersion(installed)
	if errC == nil && errI == nil {
		return cand.GreaterThan(cur)
	}
	return u.Version != installed
}

// FilterForPlatform applies the architecture safety filter. On the target
// platform every update is included. Elsewhere, updates whose architecture
// carries the foreign-arch marker are dropped: those packages are never
// safe to auto-update off the target platform. Input order is preserved.
func FilterForPlatform(updates []Update, targetPlatform bool) []Update {
	if targetPlatform {
		return updates
	}
	filtered := make([]Update, 0, len(updates))
	for _, u := range updates {
		if strings.Contains(u.Arch, foreignArchMarker) {
			continue
		}
		filtered = append(filtered, u)
	}
	return filtered
}

// IDs returns the package IDs of the given updates in order.
func IDs(updates []Update) []string {
	ids := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}
	return ids
}
