package models

import "time"

type State struct {
	RetryDelay uint64
	JobID      string
	Owner      string
	Creator    string
	Signers    []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
