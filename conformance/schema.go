// Package conformance is a YAML-driven test harness: each case describes
// a source, a pipeline of transformer stages, how many elements to
// consume before round-tripping the resulting iterator through the
// codec, and the values the restored iterator must still yield.
package conformance

// TestSuite is one YAML file: a named group of related cases.
type TestSuite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Tests       []TestCase `yaml:"tests"`
}

// SourceSpec describes the iterator source a case starts from.
type SourceSpec struct {
	Type string `yaml:"type"` // list | range | chars | map

	Ints    []int64           `yaml:"ints,omitempty"`
	Strs    []string          `yaml:"strs,omitempty"`
	Start   int64             `yaml:"start,omitempty"`
	End     int64             `yaml:"end,omitempty"`
	Step    int64             `yaml:"step,omitempty"`
	Chars   string      `yaml:"chars,omitempty"`
	Entries []MapEntry  `yaml:"entries,omitempty"` // ordered, since map iteration order is part of what's under test
}

// MapEntry is one key/value pair of a "map" source, kept as an ordered
// list (rather than a YAML mapping) so insertion order survives parsing.
type MapEntry struct {
	Key   string `yaml:"key"`
	Value int64  `yaml:"value"`
}

// StageSpec describes one transformer stage layered over the previous
// stage's output (or the source, for the first stage).
type StageSpec struct {
	Op      string `yaml:"op"` // filter | map | flat_map | unique | limit | skip | grouped
	Closure string `yaml:"closure,omitempty"` // name into the builtin closure registry
	N       int64  `yaml:"n,omitempty"`       // limit/skip/grouped size argument
}

// Expectation is the value list a case's restored iterator must drain to.
type Expectation struct {
	Ints  []int64  `yaml:"ints,omitempty"`
	Strs  []string `yaml:"strs,omitempty"`
}

// TestCase is a single named checkpoint/restore scenario.
type TestCase struct {
	Name                    string      `yaml:"name"`
	Description             string      `yaml:"description,omitempty"`
	Skip                    interface{} `yaml:"skip,omitempty"` // bool or string
	Source                  SourceSpec  `yaml:"source"`
	Pipeline                []StageSpec `yaml:"pipeline,omitempty"`
	ConsumeBeforeCheckpoint int         `yaml:"consume_before_checkpoint"`
	Expect                  Expectation `yaml:"expect"`
}

// IsSkipped reports whether a case opts out, and why.
func (tc *TestCase) IsSkipped() (bool, string) {
	switch v := tc.Skip.(type) {
	case nil:
		return false, ""
	case bool:
		return v, "skipped"
	case string:
		return true, v
	default:
		return false, ""
	}
}
