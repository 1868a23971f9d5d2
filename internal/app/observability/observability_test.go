package observability

import "testing"

func TestNormalizedPath(t *testing.T) {
	got := normalizedPath("/api/v1/submissions/123/answers")
	want := "/api/v1/submissions/{id}/answers"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}
}

func TestExtractSubmissionID(t *testing.T) {
	if id := extractSubmissionID("/api/v1/submissions/456/submit"); id != 456 {
		t.Fatalf("expected 456, got %d", id)
	}
	if id := extractSubmissionID("/api/v1/forms/1"); id != 0 {
		t.Fatalf("expected 0 for non-submission path, got %d", id)
	}
}
