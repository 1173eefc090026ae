package config

const (
	// TopicVision is the NSQ topic for image text detection jobs.
	TopicVision = "jobs.vision"

	// TopicTranscribe is the NSQ topic for audio transcription jobs.
	TopicTranscribe = "jobs.transcribe"

	// TopicIndex is the NSQ topic for search index ingestion jobs.
	TopicIndex = "jobs.index"

	// TopicJobResult is the NSQ topic remote processors publish results to.
	TopicJobResult = "jobs.result"
)
