package models

import "errors"

// Graph invariant violations shared by the client-side store and the backend services.
var (
	ErrSourceIsDone   = errors.New("a done node cannot be the source of a connection")
	ErrTargetIsStart  = errors.New("a start node cannot be the target of a connection")
	ErrSelfConnection = errors.New("only loop connections may connect a node to itself")
	ErrStartNodeFixed = errors.New("the start node cannot be deleted or recategorized")
	ErrDuplicateStart = errors.New("a workflow has exactly one start node")
)
