package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// ParticipationStartKey returns the cache key for a user's exam session start time.
func (r *CacheKeyStruct) ParticipationStartKey(examID, userID string) string {
	return fmt.Sprintf("user:%s:exam:%s:session_start", userID, examID)
}

// ParticipationAnswersKey returns the cache key for a user's autosaved exam answers.
func (r *CacheKeyStruct) ParticipationAnswersKey(examID, userID string) string {
	return fmt.Sprintf("user:%s:exam:%s:answers", userID, examID)
}

// ExamCompletionTimeKey returns the cache key for an exam's completion time in seconds.
func (r *CacheKeyStruct) ExamCompletionTimeKey(examID string) string {
	return fmt.Sprintf("exam:%s:completion_time", examID)
}

// ProcessedEventKey returns the fast-path dedup key for a processor webhook event.
// The durable dedup lives in PostgreSQL; this only short-circuits hot retries.
func (r *CacheKeyStruct) ProcessedEventKey(eventID string) string {
	return fmt.Sprintf("webhook:event:%s", eventID)
}

// AccessStatusKey returns the cache key for a user's entitlement status snapshot.
func (r *CacheKeyStruct) AccessStatusKey(userID string) string {
	return fmt.Sprintf("user:%s:access_status", userID)
}

var CacheKey = NewCacheKeyStruct()
