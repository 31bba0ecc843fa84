package orchestrator_test

import (
	"contentops/internal/output"
	"contentops/internal/store"
)

func storeGuard(status output.Status) store.OutputGuard {
	return store.OutputGuard{Status: status}
}

func scriptPatch(script *string) store.OutputPatch {
	return store.OutputPatch{Script: script}
}
