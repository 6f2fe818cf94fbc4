package transcript

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndUpdate(t *testing.T) {
	tr := New()
	msg := tr.Append(Message{Role: RoleModel, Status: StatusPending, StatusText: "Inisialisasi..."})
	require.NotEmpty(t, msg.ID)
	require.False(t, msg.CreatedAt.IsZero())

	got, ok := tr.Update(msg.ID, func(m *Message) {
		m.Status = StatusComplete
		m.StatusText = ""
		m.ID = "tampered"
	})
	require.True(t, ok)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, msg.ID, got.ID)

	_, ok = tr.Update("missing", func(*Message) {})
	assert.False(t, ok)
}

func TestRemoveWhereKeepsOrder(t *testing.T) {
	tr := New()
	a := tr.Append(NewMessage(RoleUser, "a"))
	sel := tr.Append(Message{Role: RoleModel, IsStyleSelector: true})
	c := tr.Append(NewMessage(RoleModel, "c"))

	removed := tr.RemoveWhere(func(m Message) bool { return m.IsStyleSelector })
	assert.Equal(t, []string{sel.ID}, removed)

	all := tr.All()
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, c.ID, all[1].ID)
	assert.False(t, tr.Has(sel.ID))

	_, ok := tr.Update(c.ID, func(m *Message) { m.Text = "c2" })
	assert.True(t, ok)
}

func TestLastUserAndReset(t *testing.T) {
	tr := New()
	_, ok := tr.LastUser()
	assert.False(t, ok)

	tr.Append(NewMessage(RoleUser, "first"))
	tr.Append(NewMessage(RoleUser, "second"))
	tr.Append(NewMessage(RoleModel, "reply"))
	last, ok := tr.LastUser()
	require.True(t, ok)
	assert.Equal(t, "second", last.Text)

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
}

func TestConcurrentUpdates(t *testing.T) {
	tr := New()
	msg := tr.Append(NewMessage(RoleModel, ""))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Update(msg.ID, func(m *Message) { m.PanelNumber++ })
			tr.Append(NewMessage(RoleUser, "x"))
		}()
	}
	wg.Wait()
	got, _ := tr.Get(msg.ID)
	assert.Equal(t, 20, got.PanelNumber)
	assert.Equal(t, 21, tr.Len())
}
