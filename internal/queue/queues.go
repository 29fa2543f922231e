package queue

// Pipeline queues. All are durable classic queues with per-queue dead-letter
// companions bound through the shared dead-letter exchange.
const (
	// EmbeddingTasks carries object keys of freshly stored reports.
	EmbeddingTasks = "embedding-tasks"
	// ExtractionTasks carries embedded documents ready for indicator extraction.
	ExtractionTasks = "extraction-tasks"
	// DashboardLinks fans registered dashboard URLs out to scraper workers.
	DashboardLinks = "dashboard_links_queue"
	// PollutionData carries scraped telemetry snapshots to the sink.
	PollutionData = "pollution_data_queue"

	// DeadLetterExchange receives every nacked message.
	DeadLetterExchange = "esg.dlx"
	// deadSuffix names each queue's dead-letter companion.
	deadSuffix = ".dead"
)

// AllQueues lists every queue the topology declares.
func AllQueues() []string {
	return []string{EmbeddingTasks, ExtractionTasks, DashboardLinks, PollutionData}
}

// DeadQueue returns the dead-letter companion name for a queue.
func DeadQueue(queue string) string {
	return queue + deadSuffix
}

// ExtractionTask is the JSON body published to the extraction queue.
type ExtractionTask struct {
	ObjectKey string `json:"object_key"`
}
