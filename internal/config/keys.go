package config

// KeyPrefix namespaces every Redis key this service owns.
const KeyPrefix = "akademi:"

type CacheKeyStruct struct{}

// ExamPayloadKey holds an exam's redacted participant payload.
// Only the answer-free variant is ever stored under this key.
func (CacheKeyStruct) ExamPayloadKey(examID string) string {
	return KeyPrefix + "exam:" + examID + ":payload"
}

// UserEventsChannel is the Pub/Sub channel carrying one user's events.
func (CacheKeyStruct) UserEventsChannel(userID string) string {
	return KeyPrefix + "user:" + userID + ":events"
}

var CacheKey CacheKeyStruct

type WorkerKeyStruct struct {
	// ReissueCertificatesQueue lists attempt ids whose certificate
	// could not be written at submit time.
	ReissueCertificatesQueue string
}

var WorkerKey = WorkerKeyStruct{
	ReissueCertificatesQueue: KeyPrefix + "certificate_reissue_queue",
}
