package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how many items of a known total are being worked on
// and how many are done.
type ProgressBar struct {
	mu sync.Mutex

	id    string
	name  string
	start time.Time
	total uint64

	inProgress uint64
	finished   uint64
}

// IncrementInProgress marks more items as being worked on.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inProgress += amount
}

// MoveInProgressToFinished marks items that were being worked on as done.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if amount > b.inProgress {
		amount = b.inProgress
	}

	b.inProgress -= amount
	b.finished += amount
}

type progressRsp struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

func (b *ProgressBar) snapshot() progressRsp {
	b.mu.Lock()
	defer b.mu.Unlock()

	return progressRsp{
		ID:         b.id,
		Name:       b.name,
		StartTime:  b.start,
		Total:      b.total,
		Finished:   b.finished,
		InProgress: b.inProgress,
	}
}
