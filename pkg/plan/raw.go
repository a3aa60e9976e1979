package plan

// rawPlan mirrors the on-disk TOML shape before normalization. Unknown
// top-level keys are rejected by decoding with go-toml/v2's strict mode
// in Parse.
type rawPlan struct {
	Name        string `toml:"name" validate:"required,plan_name,max=64"`
	Version     string `toml:"version" validate:"required"`
	Release     int    `toml:"release" validate:"required,min=1"`
	Arch        string `toml:"arch" validate:"required"`
	Description string `toml:"description" validate:"required"`
	License     string `toml:"license" validate:"required"`
	URL         string `toml:"url"`
	Maintainer  string `toml:"maintainer"`

	Dependencies rawDependencies `toml:"dependencies"`
	Sources      []rawSource     `toml:"sources"`
	Options      rawOptions      `toml:"options"`
	StageOrder   []string        `toml:"stage_order"`
	Stages       map[string]rawStage `toml:"stages"`
	MVP          *rawMVP             `toml:"mvp"`
	Split        map[string]rawSplit `toml:"split"`
	Install      rawInstall          `toml:"install"`
	BackupFiles  []string            `toml:"backup_files"`
}

type rawDependencies struct {
	Build     []string `toml:"build"`
	Link      []string `toml:"link"`
	Runtime   []string `toml:"runtime"`
	Replaces  []string `toml:"replaces"`
	Conflicts []string `toml:"conflicts"`
	Provides  []string `toml:"provides"`
	Optional  []string `toml:"optional"`
}

type rawSource struct {
	URI    string `toml:"uri" validate:"required"`
	SHA256 string `toml:"sha256" validate:"required"`
}

type rawOptions struct {
	Strip         bool              `toml:"strip"`
	Static        bool              `toml:"static"`
	Debug         bool              `toml:"debug"`
	CCache        bool              `toml:"ccache"`
	Env           map[string]string `toml:"env"`
	BuildType     string            `toml:"build_type"`
	MemoryLimitMB int               `toml:"memory_limit"`
	CPUTimeLimit  int               `toml:"cpu_time_limit"`
	Timeout       int               `toml:"timeout"`
	Jobs          int               `toml:"jobs"`
	SkipFHSCheck  bool              `toml:"skip_fhs_check"`
}

type rawStage struct {
	Executor string            `toml:"executor"`
	Level    string            `toml:"level"`
	Env      map[string]string `toml:"env"`
	Script   string            `toml:"script"`
}

type rawMVP struct {
	Lifecycle    map[string]rawStage `toml:"lifecycle"`
	Dependencies *rawDependencies    `toml:"dependencies"`
}

type rawSplit struct {
	Description  string          `toml:"description"`
	License      string          `toml:"license"`
	URL          string          `toml:"url"`
	Dependencies rawDependencies `toml:"dependencies"`
	Package      rawStage        `toml:"package"`
}

type rawInstall struct {
	PostInstall string `toml:"post_install"`
	PostUpgrade string `toml:"post_upgrade"`
	PreRemove   string `toml:"pre_remove"`
}
