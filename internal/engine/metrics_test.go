package engine

import (
	"strings"
	"testing"
)

func TestFormatMetrics(t *testing.T) {
	out := FormatMetrics()
	for _, k := range []string{"backend_load_info", "resolve_failures", "browse_cache_hits", "prefetch_batches"} {
		if !strings.Contains(out, k+" ") {
			t.Errorf("FormatMetrics() missing %q:\n%s", k, out)
		}
	}
	if len(GetMetrics()) != strings.Count(out, "\n") {
		t.Errorf("GetMetrics and FormatMetrics disagree:\n%s", out)
	}
}
