package conformance

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TestDir is the default YAML suite directory, relative to this package.
const TestDir = "testdata"

// LoadedTest pairs a case with the suite and file it came from.
type LoadedTest struct {
	File  string
	Suite TestSuite
	Test  TestCase
}

// LoadAllTests walks dir (TestDir if empty) and loads every *.yaml suite.
func LoadAllTests(dir string) ([]LoadedTest, error) {
	if dir == "" {
		dir = TestDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("conformance: resolving %s: %w", dir, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("conformance: test directory %s: %w", abs, err)
	}

	var loaded []LoadedTest
	err = filepath.Walk(abs, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}
		tests, err := loadSuiteFile(path)
		if err != nil {
			return fmt.Errorf("conformance: %s: %w", path, err)
		}
		rel, _ := filepath.Rel(abs, path)
		for _, t := range tests {
			t.File = rel
			loaded = append(loaded, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

func loadSuiteFile(path string) ([]LoadedTest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, err
	}
	out := make([]LoadedTest, 0, len(suite.Tests))
	for _, tc := range suite.Tests {
		out = append(out, LoadedTest{Suite: suite, Test: tc})
	}
	return out, nil
}
