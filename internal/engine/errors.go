package engine

import "fmt"

// AssemblyError marks which pipeline stage a run died in. Stage names are
// stable and show up in status records and logs.
type AssemblyError struct {
	Stage string
	Err   error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) *AssemblyError {
	return &AssemblyError{Stage: stage, Err: err}
}
