package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pq.Error{Code: "23505"}

	if !isUniqueViolation(unique) {
		t.Errorf("bare pq unique_violation not detected")
	}
	if !isUniqueViolation(fmt.Errorf("committing transaction: %w", unique)) {
		t.Errorf("wrapped unique_violation not detected")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Errorf("foreign-key violation misclassified as duplicate")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Errorf("plain error misclassified as duplicate")
	}
	if isUniqueViolation(nil) {
		t.Errorf("nil misclassified as duplicate")
	}
}
