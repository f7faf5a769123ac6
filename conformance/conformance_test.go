package conformance

import "testing"

func TestConformanceSuites(t *testing.T) {
	tests, err := LoadAllTests("")
	if err != nil {
		t.Fatalf("loading suites: %v", err)
	}
	if len(tests) == 0 {
		t.Fatal("no cases loaded from testdata")
	}

	runner := NewRunner()
	results := runner.RunAll(tests)

	byFile := make(map[string][]CaseResult)
	for _, r := range results {
		byFile[r.Test.File] = append(byFile[r.Test.File], r)
	}

	for file, group := range byFile {
		t.Run(file, func(t *testing.T) {
			for _, r := range group {
				r := r
				t.Run(r.Test.Test.Name, func(t *testing.T) {
					if r.Skipped {
						t.Skipf("skipped: %s", r.Reason)
					}
					if r.Err != nil {
						t.Errorf("%v", r.Err)
					}
				})
			}
		})
	}

	t.Logf("%s", ComputeStats(results))
}

func TestLoadAllTestsFindsSuites(t *testing.T) {
	tests, err := LoadAllTests("")
	if err != nil {
		t.Fatalf("loading suites: %v", err)
	}
	for _, lt := range tests {
		if lt.Test.Name == "" {
			t.Errorf("case in %s has no name", lt.File)
		}
		if lt.Test.Source.Type == "" {
			t.Errorf("case %q in %s has no source", lt.Test.Name, lt.File)
		}
	}
}
