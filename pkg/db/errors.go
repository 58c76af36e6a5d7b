package db

import "errors"

var (
	ErrRaceNotFound = errors.New("race not found")
	ErrRaceExists   = errors.New("race already exists")

	// ErrVersionConflict means another writer saved the race first; reload and retry
	ErrVersionConflict = errors.New("race version conflict")
)
