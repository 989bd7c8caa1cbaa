package writer

import (
	"testing"
	"time"

	appconfig "floatflow/config"
	"floatflow/logger"
)

func TestArtifactKey(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Storage.S3.Prefix = "/reports/"

	u := &ArtifactUploader{config: cfg, runID: "run-1", log: logger.GetLogger()}

	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	got := u.artifactKey("low_float.csv", now)
	want := "reports/2026/08/23/run-1/low_float.csv"
	if got != want {
		t.Errorf("artifactKey = %q, want %q", got, want)
	}
}

func TestArtifactKeyWithoutPrefix(t *testing.T) {
	cfg := appconfig.Default()

	u := &ArtifactUploader{config: cfg, runID: "run-2", log: logger.GetLogger()}

	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	got := u.artifactKey("low_float.parquet", now)
	want := "2026/01/02/run-2/low_float.parquet"
	if got != want {
		t.Errorf("artifactKey = %q, want %q", got, want)
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"out/low_float.csv":     "text/csv",
		"out/low_float.parquet": "application/octet-stream",
		"out/low_float":         "application/octet-stream",
	}
	for path, want := range cases {
		if got := contentTypeFor(path); got != want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", path, got, want)
		}
	}
}
