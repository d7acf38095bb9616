package models

import "time"

type OutboxEvent struct {
	ID            uint64
	Topic         string
	Key           string
	Payload       []byte
	Attempts      int32
	LastError     *string
	NextAttemptAt time.Time
	CreatedAt     time.Time
}
