/*
 * Copyright 2018 The Trickster Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package expire

import "container/heap"

// ocHeap is a binary min-heap over ObjectCore references keyed by
// TimerWhen. It implements container/heap.Interface; every swap reports
// the new slot back to the ObjectCore via timerIdx. The heap is
// single-writer (the expiry actor) and needs no internal locking of its
// own.
type ocHeap []*ObjectCore

func (h ocHeap) Len() int { return len(h) }

func (h ocHeap) Less(i, j int) bool { return h[i].TimerWhen.Before(h[j].TimerWhen) }

func (h ocHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].timerIdx = i
	h[j].timerIdx = j
}

func (h *ocHeap) Push(x any) {
	oc := x.(*ObjectCore)
	oc.timerIdx = len(*h)
	*h = append(*h, oc)
}

func (h *ocHeap) Pop() any {
	old := *h
	n := len(old)
	oc := old[n-1]
	old[n-1] = nil
	oc.timerIdx = noIndex
	*h = old[:n-1]
	return oc
}

// insert adds oc to the heap. oc must not already be present.
func (h *ocHeap) insert(oc *ObjectCore) {
	heap.Push(h, oc)
}

// delete removes oc from the heap if present; a no-op otherwise.
func (h *ocHeap) delete(oc *ObjectCore) {
	if oc.timerIdx == noIndex {
		return
	}
	heap.Remove(h, oc.timerIdx)
}

// reorder re-establishes heap order after oc.TimerWhen changed in place.
func (h *ocHeap) reorder(oc *ObjectCore) {
	if oc.timerIdx == noIndex {
		return
	}
	heap.Fix(h, oc.timerIdx)
}

// peek returns the root (minimum TimerWhen), or nil if the heap is empty.
func (h ocHeap) peek() *ObjectCore {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
