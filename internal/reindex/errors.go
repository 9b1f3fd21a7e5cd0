package reindex

import "fmt"

// InitializationError aborts a run before any record is mutated, for example when
// the corpus cannot be listed or the backup snapshot fails.
type InitializationError struct {
	Step    string
	Message string
	Cause   error
}

func (e *InitializationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("reindex initialization failed at %s: %s: %v", e.Step, e.Message, e.Cause)
	}
	return fmt.Sprintf("reindex initialization failed at %s: %s", e.Step, e.Message)
}

func (e *InitializationError) Unwrap() error {
	return e.Cause
}

// WriteError reports a batch commit that the store rejected. None of the batch's
// staged records were written.
type WriteError struct {
	Batch   int
	Records int
	Cause   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("batch %d: failed to commit %d records: %v", e.Batch, e.Records, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// StateError reports an illegal state transition.
type StateError struct {
	From State
	To   State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal reindex transition %s -> %s", e.From, e.To)
}
