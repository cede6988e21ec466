// Package pipeline implements the asynchronous ingestion-and-delivery pipeline
// that moves media from the messaging source into photo albums.
//
// Architecture:
//
//	EnqueueContent
//	      |
//	 download queue --RunDownloadCycle--> upload queue
//	                  (MaxDownloads)          |
//	                                   RunUploadCycle
//	                                   UploadOne x MaxUploadItems (MaxUploads)
//	                                          |
//	                               per-destination token buffers
//	                                          |
//	                                     CommitCycle
//	                 delivered / token re-queued / fallback sink
//
// Failure handling:
//   - transient upload errors re-queue the item until MaxRetry, then the
//     item is written to the fallback sink
//   - a failed batch commit call re-queues all of its tokens
//   - a permanently rejected token is attributed through the history ring
//     and its item written to the fallback sink; if the ring has already
//     evicted it the failure is only logged
//
// Key types:
//   - Pipeline: coordinator owning queues, buffers and history
//   - Scheduler: two periodic ticks driving the cycles
//   - Limiter: counting semaphore for in-flight operations
//   - HistoryRing: bounded token to item record
//   - Aggregator: destination token buffers
package pipeline
