package gcs

import "testing"

func TestParseURI(t *testing.T) {
	cases := []struct {
		in             string
		bucket, object string
		ok             bool
	}{
		{"gs://reports/quarra/dati.xlsx", "reports", "quarra/dati.xlsx", true},
		{" gs://b/o ", "b", "o", true},
		{"gs://bucket-only", "", "", false},
		{"gs:///object", "", "", false},
		{"/tmp/dati.xlsx", "", "", false},
	}
	for _, tc := range cases {
		b, o, err := ParseURI(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("%q: err=%v", tc.in, err)
		}
		if tc.ok && (b != tc.bucket || o != tc.object) {
			t.Fatalf("%q: got %q %q", tc.in, b, o)
		}
	}
}

func TestIsURIAndFileName(t *testing.T) {
	if !IsURI("gs://b/x.xlsx") || IsURI("data/x.xlsx") {
		t.Fatalf("IsURI misclassified")
	}
	if got := FileName("gs://b/reports/dati.xlsx"); got != "dati.xlsx" {
		t.Fatalf("FileName = %q", got)
	}
}
