// Package worker provides a generic, bounded worker pool.
//
// A Pool runs a fixed number of goroutines that read work items of type T from
// a buffered channel and hand them to a processor function:
//
//	pool := worker.NewPool[job](4, 64, func(ctx context.Context, j job) error {
//	    return annotate(ctx, j)
//	})
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	for _, j := range jobs {
//	    if err := pool.SubmitWait(ctx, j); err != nil {
//	        return err
//	    }
//	}
//	return pool.Drain(ctx)
//
// # Submission
//
// Submit never blocks: a full queue returns ErrQueueFull and the item is
// counted as dropped. SubmitWait blocks until the item is queued, the context
// is done, or the pool is stopped. Batch callers that must not lose work use
// SubmitWait; message consumers that prefer shedding load use Submit.
//
// # Shutdown
//
// Drain closes the queue and waits for every queued item to be processed.
// Stop does the same with a deadline and returns ErrStopTimeout when workers
// are still busy after it. Both release blocked SubmitWait callers with
// ErrPoolStopped and are safe to call more than once.
//
// # Observability
//
// Statistics (submitted, processed, failed, dropped) are always tracked with
// atomics and returned by Stats. WithMetricsRegistry additionally registers
// Prometheus collectors named after the given prefix:
//
//	<prefix>_queue_depth
//	<prefix>_utilization
//	<prefix>_submitted_total
//	<prefix>_processed_total
//	<prefix>_failed_total
//	<prefix>_dropped_total
//	<prefix>_processing_duration_seconds{status}
//
// A prefix already present in the registry leaves the pool on statistics only.
//
// # Errors
//
// Pool errors are plain sentinels, compared with errors.Is. Processor errors
// are counted as failures and otherwise not interpreted.
package worker
