package core

const (
	// DefaultCompactionBase is the additive term of the compaction threshold:
	// threshold = 2 * records in the active segment + base. It keeps the
	// threshold above zero for an empty store while still compacting soon
	// after a burst of writes to a small one.
	DefaultCompactionBase = 371

	compactionFactor = 2

	keyDirDegree = 32

	compactDirPattern = "kvs-compact-*"
)

func compactionThreshold(activeRecords, base int) int {
	return compactionFactor*activeRecords + base
}
