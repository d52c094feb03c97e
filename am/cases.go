package am

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/carlospaes120/scapegoat/errors"
)

// Case is one entry of a case manifest: an interaction file and the
// per-case overrides applied on top of the loaded Config.
type Case struct {
	Name         string   `toml:"-" json:"name"`
	Input        string   `toml:"input" json:"input"`
	TargetID     string   `toml:"target" json:"target,omitempty"`
	LeaderID     string   `toml:"leader" json:"leader,omitempty"`
	WindowSize   string   `toml:"window" json:"window,omitempty"`
	WindowStep   string   `toml:"step" json:"step,omitempty"`
	LabelColumns []string `toml:"label_columns" json:"label_columns,omitempty"`
}

// LoadCases decodes a manifest of the form
//
//	[cases.alpha]
//	input = "alpha.csv"
//	target = "V001"
//
// Relative input paths resolve against the manifest's directory. Cases come
// back sorted by name. Unknown keys are an ErrInvalidConfig so typos do not
// silently fall back to defaults.
func LoadCases(path string) ([]Case, error) {
	var manifest struct {
		Cases map[string]Case `toml:"cases"`
	}
	md, err := toml.DecodeFile(path, &manifest)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode case manifest %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrInvalidConfig, "case manifest %s: unknown keys %s", path, strings.Join(keys, ", ")),
			"allowed keys: input, target, leader, window, step, label_columns",
		)
	}
	if len(manifest.Cases) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "case manifest %s defines no [cases.*] tables", path)
	}

	dir := filepath.Dir(path)
	cases := make([]Case, 0, len(manifest.Cases))
	for name, c := range manifest.Cases {
		if c.Input == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "case %q has no input", name)
		}
		if !filepath.IsAbs(c.Input) {
			c.Input = filepath.Join(dir, c.Input)
		}
		c.Name = name
		cases = append(cases, c)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].Name < cases[j].Name })
	return cases, nil
}

// Apply returns a copy of cfg with the case's overrides.
func (c Case) Apply(cfg Config) Config {
	cfg.Input.Path = c.Input
	if c.TargetID != "" {
		cfg.Target.ID = c.TargetID
	}
	if c.LeaderID != "" {
		cfg.Target.LeaderID = c.LeaderID
	}
	if c.WindowSize != "" {
		cfg.Window.Size = c.WindowSize
	}
	if c.WindowStep != "" {
		cfg.Window.Step = c.WindowStep
	}
	if len(c.LabelColumns) > 0 {
		cfg.Input.LabelColumns = append([]string(nil), c.LabelColumns...)
	}
	return cfg
}
