package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
)

type recordingStarter struct {
	mu   sync.Mutex
	jobs [][]entity.Entry
	ch   chan []entity.Entry
}

func (r *recordingStarter) StartJob(_ context.Context, entries []entity.Entry) (string, error) {
	r.mu.Lock()
	r.jobs = append(r.jobs, entries)
	n := len(r.jobs)
	r.mu.Unlock()
	if r.ch != nil {
		r.ch <- entries
	}
	return fmt.Sprintf("job-%d", n), nil
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const email = "From: Compras Soria <Pedidos@Soria-Materiales.es>\r\n" +
	"Subject: =?utf-8?q?Pedido_n=C2=BA_173082?=\r\n" +
	"Message-Id: <abc123@soria-materiales.es>\r\n" +
	"\r\n" +
	"Buenos dias, 2 platos Nature 140x80 blanco.\r\n"

func TestIngestDirectory(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "batch.json", `[{"entry_id":"E1","raw_text":"1 plato nature"},{"entry_id":"E2","raw_text":"  "}]`)
	write(t, dir, "wrapped.json", `{"entries":[{"entry_id":"E3","raw_text":"2 platos premium"}]}`)
	write(t, dir, "sub/pedido-77.txt", "3 platos neo 100x70 gris")
	write(t, dir, "copy.txt", "3 platos neo 100x70 gris")
	write(t, dir, "mail.eml", email)
	write(t, dir, "broken.json", `{"entries":`)
	write(t, dir, ".hidden/skip.txt", "ignored")
	write(t, dir, "notes.md", "ignored")

	starter := &recordingStarter{}
	inbox := NewInbox(starter, nil)
	results, stats, err := inbox.IngestDirectory(context.Background(), dir, true)
	require.NoError(t, err)

	assert.Equal(t, uint32(6), stats.Matched)
	assert.Equal(t, uint32(5), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Len(t, results, 6)
	require.Len(t, starter.jobs, 4)

	byID := map[string]entity.Entry{}
	for _, job := range starter.jobs {
		for _, e := range job {
			byID[e.EntryID] = e
		}
	}
	assert.Contains(t, byID, "E1")
	assert.NotContains(t, byID, "E2", "blank entries are dropped")
	assert.Contains(t, byID, "E3")

	txt := byID["pedido-77"]
	if _, ok := byID["copy"]; ok {
		txt = byID["copy"]
	}
	assert.Equal(t, "3 platos neo 100x70 gris", txt.RawText)

	mail, ok := byID["abc123@soria-materiales.es"]
	require.True(t, ok)
	assert.Equal(t, "Pedido nº 173082", mail.Subject)
	assert.Equal(t, "Pedidos@Soria-Materiales.es", mail.From)
	assert.Contains(t, mail.RawText, "2 platos Nature")
}

func TestIngestPathRejectsUnknownExtension(t *testing.T) {
	p := write(t, t.TempDir(), "order.pdf", "%PDF")
	_, err := NewInbox(&recordingStarter{}, nil).IngestPath(context.Background(), p)
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "existing.txt", "1 plato nature 140x80 blanco")

	starter := &recordingStarter{ch: make(chan []entity.Entry, 4)}
	inbox := NewInbox(starter, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- inbox.Watch(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true, Debounce: 20 * time.Millisecond})
	}()

	select {
	case entries := <-starter.ch:
		assert.Equal(t, "existing", entries[0].EntryID)
	case <-time.After(5 * time.Second):
		t.Fatal("initial scan did not ingest existing file")
	}

	write(t, dir, "new.txt", "2 platos premium 120x70 moka")
	select {
	case entries := <-starter.ch:
		assert.Equal(t, "new", entries[0].EntryID)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not ingest new file")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
