package domain

import (
	"errors"
	"fmt"
)

// ErrAuth indicates a bad or expired access token. Fatal: no entry-level
// work has meaningfully started when it surfaces.
var ErrAuth = errors.New("authentication failed")

// CatalogStage identifies which stage of a catalog fetch failed.
type CatalogStage string

const (
	StageClients        CatalogStage = "clients"
	StageProjects       CatalogStage = "projects"
	StageTasks          CatalogStage = "tasks"
	StageTimingProjects CatalogStage = "timing projects"
)

// CatalogFetchError reports a failed catalog fetch. Partial results are
// always discarded; a command that needed the catalog must abort.
type CatalogFetchError struct {
	Stage CatalogStage
	Err   error
}

func (e *CatalogFetchError) Error() string {
	return fmt.Sprintf("catalog fetch failed at %s stage: %v", e.Stage, e.Err)
}

func (e *CatalogFetchError) Unwrap() error { return e.Err }
