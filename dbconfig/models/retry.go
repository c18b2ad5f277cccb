package models

import "time"

type RetryRecord struct {
	Subject     string
	Tag         string
	AttemptedAt uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
