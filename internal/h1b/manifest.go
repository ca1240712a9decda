package h1b

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/h1b-counting/internal/model"
)

// Manifest lists the jobs of a batch run.
type Manifest struct {
	Jobs []model.Job `yaml:"jobs"`
}

// LoadManifest reads a batch manifest from a YAML file. Relative local paths are
// resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "manifest: parse")
	}
	if len(m.Jobs) == 0 {
		return nil, eris.Errorf("manifest: %s lists no jobs", path)
	}

	base := filepath.Dir(path)
	for i := range m.Jobs {
		job := &m.Jobs[i]
		if job.Input == "" || job.Occupations == "" || job.States == "" {
			return nil, eris.Errorf("manifest: job %d needs input, occupations, and states", i+1)
		}
		if !IsRemote(job.Input) {
			job.Input = resolveRelative(base, job.Input)
		}
		job.Occupations = resolveRelative(base, job.Occupations)
		job.States = resolveRelative(base, job.States)
	}
	return &m, nil
}

func resolveRelative(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
