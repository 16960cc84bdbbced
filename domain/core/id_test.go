package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	valid := NewRunID()

	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{valid.String(), valid, false},
		{"run-123", "", true},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseRunID(test.input)
		if test.hasError && !IsInvalidConfiguration(err) {
			t.Errorf("Expected invalid configuration for input '%s', got %v", test.input, err)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestComputeParamsHashOrderIndependent tests that map iteration order does not leak into the hash
func TestComputeParamsHashOrderIndependent(t *testing.T) {
	a := ComputeParamsHash(map[string]interface{}{"alpha": 0.05, "seed": 7, "m": "4,8"})
	b := ComputeParamsHash(map[string]interface{}{"m": "4,8", "seed": 7, "alpha": 0.05})
	if !a.Equals(b) {
		t.Errorf("Expected equal hashes, got %s and %s", a, b)
	}

	c := ComputeParamsHash(map[string]interface{}{"alpha": 0.05, "seed": 8, "m": "4,8"})
	if a.Equals(c) {
		t.Error("Expected different seeds to produce different hashes")
	}
	if len(a.Short()) != 12 {
		t.Errorf("Expected 12-char short hash, got %q", a.Short())
	}
}

// TestSentinelHelpers tests the errors.Is based classification helpers
func TestSentinelHelpers(t *testing.T) {
	err := NewValidationError("m", "must be positive")
	if !IsInvalidConfiguration(err) || !IsMisuseError(err) {
		t.Errorf("Expected %v to be an invalid configuration misuse error", err)
	}
	if IsWorkerFailure(err) {
		t.Errorf("Did not expect %v to be a worker failure", err)
	}
	if IsMisuseError(ErrWorkerFailure) {
		t.Error("Worker failure must not be classified as misuse")
	}
}
