// Package model defines the uniform package data model shared by every
// backend, cache tier, and wire format in the engine.
package model

// Source identifies where a package record came from.
type Source string

const (
	SourceOfficial    Source = "official"
	SourceThirdParty  Source = "third-party"
)

// Reason is why a LocalPackage is installed.
type Reason string

const (
	ReasonExplicit   Reason = "explicit"
	ReasonDependency Reason = "dependency"
)

// Package is the minimal uniform record returned by search and listings.
type Package struct {
	Name        string
	Version     string
	Description string
	Source      Source
	Installed   bool
}

// SyncPackage is an available record from a repository.
type SyncPackage struct {
	Name         string
	Version      string
	Description  string
	URL          string
	Licenses     []string
	Depends      []string
	InstallSize  int64
	DownloadSize int64
	Repo         string
	Filename     string
	Source       Source
}

// LocalPackage is an installed record.
type LocalPackage struct {
	Name        string
	Version     string
	Description string
	Reason      Reason
	InstallDate int64 // unix seconds, 0 if unknown
}

// DetailedPackageInfo is the join of SyncPackage and LocalPackage exposed
// over RPC and by the package index.
type DetailedPackageInfo struct {
	Name         string
	Version      string
	Description  string
	URL          string
	InstallSize  int64
	DownloadSize int64
	Repo         string
	Filename     string
	Depends      []string
	Licenses     []string
	Source       Source
	Installed    bool
}

// ToPackage projects a DetailedPackageInfo down to a Package.
func (d DetailedPackageInfo) ToPackage() Package {
	return Package{
		Name:        d.Name,
		Version:     d.Version,
		Description: d.Description,
		Source:      d.Source,
		Installed:   d.Installed,
	}
}

// UpdateInfo describes an available upgrade. It exists iff NewVersion is
// greater than OldVersion under the ecosystem's version ordering.
type UpdateInfo struct {
	Name       string
	OldVersion string
	NewVersion string
	Repo       string
}

// StatusResult is the system-wide package status snapshot.
type StatusResult struct {
	TotalPackages         int
	ExplicitPackages      int
	OrphanPackages        int
	UpdatesAvailable      int
	SecurityVulnerabilities int
	RuntimeVersions       []RuntimeVersion
}

// RuntimeVersion is a (runtime name, active version) pair. The runtimes
// that populate this are out of scope for this engine; the field exists
// for wire compatibility and is always empty here.
type RuntimeVersion struct {
	Name    string
	Version string
}
