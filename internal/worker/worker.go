package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/meditext/labelengine/internal/ensemble"
	"github.com/meditext/labelengine/internal/queue"
	"github.com/meditext/labelengine/internal/review"
	"github.com/meditext/labelengine/internal/segmenter"
)

// Worker drains the classify-job stream: each document is segmented into
// sentences, every sentence is voted on by the ensemble, and each verdict is
// admitted through the review lifecycle.
type Worker struct {
	queue       *queue.RedisQueue
	segmenter   *segmenter.Segmenter
	voter       *ensemble.Voter
	reviews     *review.Service
	concurrency int
	batchSize   int
}

func New(
	q *queue.RedisQueue,
	seg *segmenter.Segmenter,
	voter *ensemble.Voter,
	reviews *review.Service,
	concurrency int,
	batchSize int,
) *Worker {
	return &Worker{
		queue:       q,
		segmenter:   seg,
		voter:       voter,
		reviews:     reviews,
		concurrency: concurrency,
		batchSize:   batchSize,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	log.Printf("Starting worker with concurrency=%d, batchSize=%d", w.concurrency, w.batchSize)

	jobs := make(chan queue.Message, w.concurrency*2)
	var wg sync.WaitGroup

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processJobs(ctx, workerID, jobs)
		}(i)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				close(jobs)
				return
			default:
				messages, err := w.queue.Consume(ctx, int64(w.batchSize), 5*time.Second)
				if err != nil {
					log.Printf("Error consuming messages: %v", err)
					time.Sleep(time.Second)
					continue
				}

				for _, msg := range messages {
					select {
					case jobs <- msg:
					case <-ctx.Done():
						close(jobs)
						return
					}
				}
			}
		}
	}()

	wg.Wait()
	return nil
}

func (w *Worker) processJobs(ctx context.Context, workerID int, jobs <-chan queue.Message) {
	for msg := range jobs {
		if err := w.processDocument(ctx, msg); err != nil {
			log.Printf("Worker %d: error processing %s: %v", workerID, msg.Job.ID, err)
			continue
		}

		if err := w.queue.Ack(ctx, msg.ID); err != nil {
			log.Printf("Worker %d: error acking %s: %v", workerID, msg.ID, err)
		}
	}
}

func (w *Worker) processDocument(ctx context.Context, msg queue.Message) error {
	job := msg.Job
	log.Printf("Processing document: %s", job.ID)

	sentences := w.segmenter.Segment(job.Text)
	if len(sentences) == 0 {
		log.Printf("Document %s produced no classifiable sentences", job.ID)
		return nil
	}

	verdicts := w.voter.ClassifyBatch(ctx, sentences)

	var queued, accepted int
	for _, v := range verdicts {
		sample, err := w.reviews.Admit(ctx, v, job.Source)
		if err != nil {
			return err
		}
		if sample.NeedsReview {
			queued++
		} else {
			accepted++
		}
	}

	log.Printf("Completed document %s: sentences=%d, auto-accepted=%d, queued for review=%d",
		job.ID, len(sentences), accepted, queued)

	return nil
}
