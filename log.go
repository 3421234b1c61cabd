package smoketest

import (
	"log/slog"

	"github.com/giantswarm/smoketest/internal/core"
)

// SetLogger replaces the package-level logger used by smoketest. The
// provided logger should already carry any desired attributes; per-node
// entries add a "node" attribute.
//
// If l is nil, the logger resets to slog.Default() with a "component"
// attribute. Call SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently, but nodes created earlier keep the
// logger they were created with. Call it in TestMain before m.Run.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
