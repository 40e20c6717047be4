package watch

import "fmt"

// CaptureError marks a navigation or render failure. The page is skipped
// for the cycle and no log entry is written.
type CaptureError struct {
	URL string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.URL, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// RepositoryError marks a query/insert failure against the check log or
// webpage tables. Never fatal to a loop.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// StorageError marks an artifact upload/delete/list failure. Resulting
// drift is tolerated and repaired by the reconciler.
type StorageError struct {
	Op   string
	Name string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("artifact store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("artifact store %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NotifierError marks a delivery failure. The log entry stands; the one
// notification is simply lost.
type NotifierError struct {
	Recipient string
	Err       error
}

func (e *NotifierError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Recipient, e.Err)
}

func (e *NotifierError) Unwrap() error { return e.Err }
