package planner

import (
	"errors"

	"github.com/samcharles93/pipeplan/internal/profile"
)

var (
	ErrEmptyModel       = errors.New("planner: model has no layers")
	ErrInfeasible       = errors.New("planner: no feasible pipeline template")
	ErrNotSolved        = errors.New("planner: node count not solved")
	ErrInvalidNodeCount = errors.New("planner: invalid node count")

	// Re-exported so callers can match every planning failure from one package.
	ErrProfileNotFound = profile.ErrProfileNotFound
	ErrInvalidRange    = profile.ErrInvalidRange
)
