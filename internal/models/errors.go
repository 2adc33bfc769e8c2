package models

import "errors"

var (
	// ErrIngestion marks a document that could not be read; the file is skipped
	ErrIngestion = errors.New("ingestion error")
	// ErrIndexBuild is fatal at startup
	ErrIndexBuild = errors.New("index build error")
	// ErrIndexLoad means the persisted index is missing or corrupt and must be rebuilt
	ErrIndexLoad = errors.New("index load error")
	// ErrAnswerGeneration is isolated to the query that caused it
	ErrAnswerGeneration = errors.New("answer generation error")
)
