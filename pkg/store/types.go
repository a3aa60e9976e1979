package store

import "time"

// FileKind mirrors spec §3's file kind enum.
type FileKind string

const (
	FileRegular FileKind = "regular"
	FileDir     FileKind = "dir"
	FileSymlink FileKind = "symlink"
	FileFIFO    FileKind = "fifo"
	FileChar    FileKind = "char"
	FileBlock   FileKind = "block"
)

// DepKind mirrors a plan's three dependency kinds as stored on a package
// row (replaces/conflicts/provides/optional are resolved at install
// time and not persisted as dependency edges).
type DepKind string

const (
	DepBuild   DepKind = "build"
	DepLink    DepKind = "link"
	DepRuntime DepKind = "runtime"
)

// Package is one installed-package record.
type Package struct {
	ID           int64
	Name         string
	Version      string
	Release      int
	Arch         string
	Description  string
	License      string
	URL          string
	Maintainer   string
	InstalledAt  time.Time
	InstallSize  int64
	ArchiveHash  string
	PostInstall  string
	PostUpgrade  string
	PreRemove    string
}

// File is one row in an installed package's file manifest.
type File struct {
	ID        int64
	PackageID int64
	Path      string
	Kind      FileKind
	Mode      uint32
	Size      int64
	Hash      string
	IsConfig  bool
}

// Dependency is one forward dependency edge from a package.
type Dependency struct {
	ID                 int64
	PackageID          int64
	DependsOn          string
	VersionConstraint  string
	Kind               DepKind
}

// Provide is a virtual name a package satisfies.
type Provide struct {
	ID        int64
	PackageID int64
	Name      string
}

// Shadow records a file-ownership overlap created by a forced install:
// Path was originally owned by OwnerPackage but is currently shadowed by
// ShadowedByPackage. BackupPath, when set, holds the pre-overwrite bytes
// of Path so removing ShadowedByPackage can restore them.
type Shadow struct {
	ID                int64
	Path              string
	OwnerPackage      string
	ShadowedByPackage string
	BackupPath        string
	CreatedAt         time.Time
}

// TxnStatus is a transaction journal entry's state.
type TxnStatus string

const (
	TxnPending     TxnStatus = "pending"
	TxnCompleted   TxnStatus = "completed"
	TxnRolledBack  TxnStatus = "rolled_back"
)

// TxnOp is the kind of operation a journal entry records.
type TxnOp string

const (
	OpInstall TxnOp = "install"
	OpUpgrade TxnOp = "upgrade"
	OpRemove  TxnOp = "remove"
	OpAssume  TxnOp = "assume"
)

// Transaction is one append-only journal entry.
type Transaction struct {
	ID          int64
	UUID        string
	Timestamp   time.Time
	Operation   TxnOp
	PackageName string
	OldVersion  string
	NewVersion  string
	Status      TxnStatus
	BackupPath  string
}

// Assumed is an externally-provided package satisfying constraints
// without file tracking.
type Assumed struct {
	ID        int64
	Name      string
	Version   string
	UpdatedAt time.Time
}
