// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoResults is returned when the initial similarity search finds no
// candidates. Callers should ask the user to adjust the query.
var ErrNoResults = errors.New("no results: adjust the query parameters")

// ErrNoChat is returned by Ask when no chat model is configured.
var ErrNoChat = errors.New("chat model is required to answer questions")

// ErrTimeout is returned by Race when the timeout elapses first.
var ErrTimeout = errors.New("query timed out")

// Collaborator names used in CollaboratorError.
const (
	CollaboratorEmbedder = "embedder"
	CollaboratorEdges    = "citation_store"
	CollaboratorIndex    = "similarity_index"
	CollaboratorChat     = "chat"
)

// CollaboratorError reports a failure of an external collaborator.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

func collaboratorErr(name string, err error) error {
	return &CollaboratorError{Collaborator: name, Err: err}
}

// IsCollaboratorError reports whether err came from a collaborator.
func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
