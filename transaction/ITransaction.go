package transaction

// Interface describes the lifecycle operations a caller drives directly;
// Mgr implements it alongside the page-level Get/Set operations.
type Interface interface {
	Commit() error
	Rollback() error
	Recover() error
}
