package services

import (
	"container/heap"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

// jobHeap is a min-heap of queued jobs ordered by NextRun.
type jobHeap []*domain.Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].NextRun.Equal(h[j].NextRun) {
		return h[i].CreatedAt.Before(h[j].CreatedAt)
	}
	return h[i].NextRun.Before(h[j].NextRun)
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*domain.Job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

func (h *jobHeap) push(job *domain.Job) {
	heap.Push(h, job)
}

func (h *jobHeap) pop() *domain.Job {
	return heap.Pop(h).(*domain.Job)
}

func (h jobHeap) peek() *domain.Job {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// removeFunc drops every job matching fn and restores the heap invariant.
func (h *jobHeap) removeFunc(fn func(*domain.Job) bool) {
	kept := (*h)[:0]
	for _, job := range *h {
		if !fn(job) {
			kept = append(kept, job)
		}
	}
	for i := len(kept); i < len(*h); i++ {
		(*h)[i] = nil
	}
	*h = kept
	heap.Init(h)
}
