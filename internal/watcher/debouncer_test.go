package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow = 40 * time.Millisecond

// nextBatch waits for one batch or fails after a few windows.
func nextBatch(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(5 * testWindow):
		t.Fatal("no batch emitted")
		return nil
	}
}

func ev(path string, op Operation) FileEvent {
	return FileEvent{Path: path, Operation: op, Timestamp: time.Now()}
}

func TestDebouncer_CoalescesPerPath(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want Operation
	}{
		{"single create", []Operation{OpCreate}, OpCreate},
		{"create then writes stays create", []Operation{OpCreate, OpModify, OpModify}, OpCreate},
		{"modify then delete", []Operation{OpModify, OpDelete}, OpDelete},
		{"replaced file", []Operation{OpDelete, OpCreate}, OpModify},
		{"repeated modify", []Operation{OpModify, OpModify, OpModify}, OpModify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(testWindow)
			defer d.Stop()

			for _, op := range tt.ops {
				d.Add(ev("/inbox/notes.md", op))
			}

			batch := nextBatch(t, d)
			require.Len(t, batch, 1)
			assert.Equal(t, "/inbox/notes.md", batch[0].Path)
			assert.Equal(t, tt.want, batch[0].Operation)
		})
	}
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	// Given: a file that appears and vanishes inside one window
	d := NewDebouncer(testWindow)
	defer d.Stop()
	d.Add(ev("/inbox/tmp.txt", OpCreate))
	d.Add(ev("/inbox/tmp.txt", OpDelete))

	// Then: nothing is emitted
	select {
	case batch := <-d.Output():
		t.Fatalf("unexpected batch %v", batch)
	case <-time.After(4 * testWindow):
	}
}

func TestDebouncer_BatchSortedByPath(t *testing.T) {
	d := NewDebouncer(testWindow)
	defer d.Stop()

	d.Add(ev("/inbox/c.txt", OpDelete))
	d.Add(ev("/inbox/a.md", OpCreate))
	d.Add(ev("/inbox/b.txt", OpModify))

	batch := nextBatch(t, d)
	require.Len(t, batch, 3)
	assert.Equal(t, []string{"/inbox/a.md", "/inbox/b.txt", "/inbox/c.txt"},
		[]string{batch[0].Path, batch[1].Path, batch[2].Path})
}

func TestDebouncer_WindowRestartsOnEachEvent(t *testing.T) {
	// Given: events arriving faster than the window
	d := NewDebouncer(testWindow)
	defer d.Stop()

	for i := 0; i < 4; i++ {
		d.Add(ev("/inbox/big.md", OpModify))
		time.Sleep(testWindow / 4)
	}

	// Then: they come out as one batch
	batch := nextBatch(t, d)
	assert.Len(t, batch, 1)
}

func TestDebouncer_StopClosesOutputAndIgnoresAdds(t *testing.T) {
	d := NewDebouncer(testWindow)
	d.Add(ev("/inbox/late.md", OpCreate))

	d.Stop()
	d.Stop()
	d.Add(ev("/inbox/later.md", OpCreate))

	_, open := <-d.Output()
	assert.False(t, open)
}
