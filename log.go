package lazyframe

// Fields used in the log entries of the executor.
const (
	HashLogField       = "hash"
	ComplexityLogField = "complexity"
	TableLogField      = "table"
	JobLogField        = "job"
	ClusterLogField    = "cluster"
	IterationLogField  = "iteration"
)
