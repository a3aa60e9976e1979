// Package plan parses, validates, and canonicalizes Wright plan files —
// the declarative description of one source package, including its MVP
// bootstrap overlays and split sub-packages.
package plan

import "github.com/wright-pm/wright/pkg/version"

// DockyardLevel is the isolation level a stage runs under.
type DockyardLevel string

const (
	LevelNone    DockyardLevel = "none"
	LevelRelaxed DockyardLevel = "relaxed"
	LevelStrict  DockyardLevel = "strict"
)

// DeliveryMode is how an executor receives a stage's script body.
type DeliveryMode string

const (
	DeliveryTempfile DeliveryMode = "tempfile"
	DeliveryStdin    DeliveryMode = "stdin"
)

// BuildType labels the NPROC modifier the resource scheduler applies.
type BuildType string

const (
	BuildDefault BuildType = "default"
	BuildMake    BuildType = "make"
	BuildRust    BuildType = "rust"
	BuildGo      BuildType = "go"
	BuildHeavy   BuildType = "heavy"
	BuildSerial  BuildType = "serial"
	BuildCustom  BuildType = "custom"
)

// DefaultStageOrder is the built-in lifecycle pipeline; a plan's
// [stages] table may name any subset, and a custom `stage_order` list
// overrides this order verbatim.
var DefaultStageOrder = []string{
	"fetch", "verify", "extract", "prepare", "configure", "compile", "check", "package", "post_package",
}

// Dependency is one build/link/runtime dependency entry, optionally
// constrained by a version comparison.
type Dependency struct {
	Name       string
	Constraint *version.Constraint
}

// Dependencies groups a plan's (or an MVP overlay's) dependency lists by
// kind. Replaces/Conflicts/Provides/Optional are informational lists of
// bare names or constrained specs; they never trigger a rebuild the way
// Link does.
type Dependencies struct {
	Build     []Dependency
	Link      []Dependency
	Runtime   []Dependency
	Replaces  []Dependency
	Conflicts []Dependency
	Provides  []string
	Optional  []Dependency
}

// Source is one fetchable input with its expected checksum ("SKIP" for
// local paths and git refs).
type Source struct {
	URI    string
	SHA256 string
}

// Options carries the per-plan build knobs from spec §3 "Options".
type Options struct {
	Strip         bool
	Static        bool
	Debug         bool
	CCache        bool
	Env           map[string]string
	BuildType     BuildType
	MemoryLimitMB int
	CPUTimeLimit  int
	Timeout       int
	Jobs          int
	SkipFHSCheck  bool
}

// Stage is one lifecycle stage: which executor runs it, at what
// isolation level, with what extra environment, and its script body.
type Stage struct {
	Executor string
	Level    DockyardLevel
	Env      map[string]string
	Script   string
}

// MVPOverlay replaces lifecycle stages and/or a dependency kind during
// bootstrap passes. Absent stage keys fall back to the main lifecycle;
// a present dependency kind entirely replaces the main kind's list.
type MVPOverlay struct {
	Lifecycle    map[string]Stage
	Dependencies Dependencies
	hasDeps      map[string]bool // which Dependencies fields were set, for merge
}

// Split is a sub-package produced by the same build, with its own
// metadata and dependency set.
type Split struct {
	Name         string
	Description  string
	Dependencies Dependencies
	Package      Stage
	License      string
	URL          string
}

// InstallScripts run on the live root outside any dockyard.
type InstallScripts struct {
	PostInstall string
	PostUpgrade string
	PreRemove   string
}

// Plan is the fully parsed and validated form of one plan file.
type Plan struct {
	Name         string
	Version      version.Version
	Release      int
	Arch         string
	Description  string
	License      string
	URL          string
	Maintainer   string
	Dependencies Dependencies
	Sources      []Source
	Options      Options
	StageOrder   []string
	Stages       map[string]Stage
	MVP          *MVPOverlay
	Splits       []Split
	Install      InstallScripts
	BackupFiles  []string

	// Dir is the directory the plan file was loaded from, used to resolve
	// plan-relative local sources.
	Dir string
}

// AllNames returns the main package name plus every split name, the set
// checked for uniqueness by Validate.
func (p *Plan) AllNames() []string {
	names := make([]string, 0, 1+len(p.Splits))
	names = append(names, p.Name)
	for _, s := range p.Splits {
		names = append(names, s.Name)
	}
	return names
}
