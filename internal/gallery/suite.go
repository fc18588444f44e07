package gallery

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Suite is a YAML-defined selection of figure cases.
type Suite struct {
	Version int         `yaml:"version"`
	Name    string      `yaml:"name"`
	Cases   []SuiteCase `yaml:"cases"`
}

// SuiteCase names a registered case. ExpectWarning, when set, replaces the
// case's expected warning; "none" expects no warning.
type SuiteCase struct {
	Name          string `yaml:"name"`
	ExpectWarning string `yaml:"expect_warning,omitempty"`
	Skip          bool   `yaml:"skip,omitempty"`
}

// LoadSuite reads a suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}
	return ParseSuite(data)
}

// ParseSuite decodes a suite from YAML.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse suite YAML: %w", err)
	}
	return &s, nil
}

// Resolve returns the suite's cases with its overrides applied. Skipped
// cases are left out.
func (s *Suite) Resolve() ([]Case, error) {
	out := make([]Case, 0, len(s.Cases))
	for _, sc := range s.Cases {
		if sc.Skip {
			continue
		}
		c, ok := Lookup(sc.Name)
		if !ok {
			return nil, fmt.Errorf("suite %s: unknown figure case %q", s.Name, sc.Name)
		}
		switch sc.ExpectWarning {
		case "":
		case "none":
			c.ExpectWarning = ""
		default:
			c.ExpectWarning = sc.ExpectWarning
		}
		out = append(out, c)
	}
	return out, nil
}

// DefaultSuite lists every registered case with its expectations.
func DefaultSuite() *Suite {
	s := &Suite{Version: 1, Name: "map-plotting"}
	for _, c := range Cases() {
		s.Cases = append(s.Cases, SuiteCase{Name: c.Name, ExpectWarning: c.ExpectWarning})
	}
	return s
}

// Marshal encodes the suite as YAML.
func (s *Suite) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
