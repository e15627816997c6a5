package tilequeue

import (
	"sync"
	"testing"
)

func TestSplitPartitionsExactly(t *testing.T) {
	q := Split(37, 16)
	var got []Job
	for {
		j, ok := q.Dequeue()
		if !ok {
			break
		}
		got = append(got, j)
	}
	want := []Job{{0, 16}, {16, 32}, {32, 37}}
	if len(got) != len(want) {
		t.Fatalf("got %d jobs, want %d: %v", len(got), len(want), got)
	}
	for i, j := range got {
		if j != want[i] {
			t.Errorf("job %d = %+v, want %+v", i, j, want[i])
		}
	}
}

func TestSplitZeroRows(t *testing.T) {
	q := Split(0, 16)
	if _, ok := q.Dequeue(); ok {
		t.Fatal("expected no jobs for zero rows")
	}
}

func TestDequeueConcurrentDrainsEveryJobExactlyOnce(t *testing.T) {
	const rows, jobRows, workers = 500, 4, 8
	q := Split(rows, jobRows)

	var mu sync.Mutex
	seen := make(map[int]bool)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				j, ok := q.Dequeue()
				if !ok {
					return
				}
				mu.Lock()
				for r := j.RowStart; r < j.RowEnd; r++ {
					if seen[r] {
						t.Errorf("row %d claimed twice", r)
					}
					seen[r] = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != rows {
		t.Fatalf("saw %d distinct rows, want %d", len(seen), rows)
	}
}

func TestResetAllowsReuse(t *testing.T) {
	q := New()
	q.Enqueue(Job{0, 4})
	q.Close()
	if _, ok := q.Dequeue(); !ok {
		t.Fatal("expected first job")
	}
	q.Reset()
	q.Enqueue(Job{4, 8})
	q.Close()
	j, ok := q.Dequeue()
	if !ok || j != (Job{4, 8}) {
		t.Fatalf("got %+v, %v, want {4 8}, true", j, ok)
	}
}
