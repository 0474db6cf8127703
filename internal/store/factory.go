package store

import (
	"pipemail.dev/triage/core/db"
)

type Stores struct {
	db *db.DB
}

func NewStores(database *db.DB) *Stores {
	return &Stores{db: database}
}

func (s *Stores) Analyses() AnalysisStore {
	return newAnalysisStore(s.db)
}
