package workers

import (
	"context"
	"log"
	"reflect"

	"github.com/statline/statline-engine/internal/core/domain"
)

type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
}

type ReconcileJob struct {
	CategoryID string
}

// ReconcileWorker repairs categories in the background after writes: it
// rebuilds the display order lists against the stat and goal key sets and
// re-derives every quantitative goal's achieved flag. The write path only
// enqueues, so request latency never pays for the repair.
type ReconcileWorker struct {
	categoryRepo CategoryRepository
	jobs         chan ReconcileJob
}

func NewReconcileWorker(repo CategoryRepository) *ReconcileWorker {
	return &ReconcileWorker{
		categoryRepo: repo,
		jobs:         make(chan ReconcileJob, 100),
	}
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	go func() {
		log.Println("Reconcile Worker started in background...")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				log.Println("Reconcile Worker shutting down...")
				return
			}
		}
	}()
}

func (w *ReconcileWorker) Enqueue(categoryID string) {
	select {
	case w.jobs <- ReconcileJob{CategoryID: categoryID}:
	default:
		log.Printf("Reconcile Worker queue full! Dropping job for category %s", categoryID)
	}
}

func (w *ReconcileWorker) processJob(ctx context.Context, job ReconcileJob) {
	category, err := w.categoryRepo.GetByID(ctx, job.CategoryID)
	if err != nil {
		log.Printf("Worker Error fetching category %s: %v", job.CategoryID, err)
		return
	}

	before := category.Clone()
	category.Reconcile()
	category.RecomputeAchievements()

	if reflect.DeepEqual(before, category) {
		return
	}

	if err := w.categoryRepo.Update(ctx, category); err != nil {
		log.Printf("Worker Failed to reconcile category %s: %v", job.CategoryID, err)
	} else {
		log.Printf("Category reconciled: %s", category.Name)
	}
}
