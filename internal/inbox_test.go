package internal

import (
	"image"
	"image/color"
	stdpng "image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rm-hull/blurr/internal/blur"
	"github.com/rm-hull/blurr/internal/config"
	"github.com/rm-hull/blurr/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetRGBA(x, y, color.RGBA{R: 10, G: 200, B: 30, A: 255})
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()
	require.NoError(t, stdpng.Encode(f, img))
}

func newDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	d, err := dispatch.New(2, 4)
	require.NoError(t, err)
	d.StartWorkers()
	t.Cleanup(d.Shutdown)
	return d
}

func readImage(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()
	img, err := stdpng.Decode(f)
	require.NoError(t, err)
	return img
}

func TestInboxProcessor_Run(t *testing.T) {
	inbox, outbox := t.TempDir(), filepath.Join(t.TempDir(), "nested", "outbox")
	writeImage(t, filepath.Join(inbox, "first.png"), 20, 10)
	writeImage(t, filepath.Join(inbox, "second.PNG"), 8, 8)
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "notes.txt"), []byte("ignore me"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(inbox, "subdir.png"), 0o755))

	p, err := NewInboxProcessor(inbox, outbox, blur.NewEngine().WithParameters(0.5, 2), newDispatcher(t))
	require.NoError(t, err)

	errs := p.Run(t.Context())
	assert.Empty(t, errs)

	first := readImage(t, filepath.Join(outbox, "first.png"))
	assert.Equal(t, image.Rect(0, 0, 10, 5), first.Bounds())
	second := readImage(t, filepath.Join(outbox, "second.png"))
	assert.Equal(t, image.Rect(0, 0, 4, 4), second.Bounds())

	entries, err := os.ReadDir(outbox)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files or extra outputs expected")
}

func TestInboxProcessor_SkipsExistingOutput(t *testing.T) {
	inbox, outbox := t.TempDir(), t.TempDir()
	writeImage(t, filepath.Join(inbox, "photo.png"), 6, 6)

	p, err := NewInboxProcessor(inbox, outbox, blur.NewEngine().WithParameters(1, 1), newDispatcher(t))
	require.NoError(t, err)
	require.Empty(t, p.Run(t.Context()))

	output := filepath.Join(outbox, "photo.png")
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(output, past, past))

	require.Empty(t, p.Run(t.Context()))
	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(past), "output should not be rewritten")
}

func TestInboxProcessor_ReportsBadFiles(t *testing.T) {
	inbox, outbox := t.TempDir(), t.TempDir()
	writeImage(t, filepath.Join(inbox, "good.png"), 4, 4)
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "broken.jpg"), []byte("not a jpeg"), 0o600))

	p, err := NewInboxProcessor(inbox, outbox, blur.NewEngine().WithParameters(1, 1), newDispatcher(t))
	require.NoError(t, err)

	errs := p.Run(t.Context())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken.jpg")

	assert.FileExists(t, filepath.Join(outbox, "good.png"))
	assert.NoFileExists(t, filepath.Join(outbox, "broken.png"))
}

func TestInboxProcessor_SharedBaseNameIsAConflict(t *testing.T) {
	inbox, outbox := t.TempDir(), t.TempDir()
	writeImage(t, filepath.Join(inbox, "photo.png"), 10, 10)
	writeImage(t, filepath.Join(inbox, "photo.jpg"), 30, 30)
	writeImage(t, filepath.Join(inbox, "other.png"), 4, 4)

	p, err := NewInboxProcessor(inbox, outbox, blur.NewEngine().WithParameters(1, 1), newDispatcher(t))
	require.NoError(t, err)

	for range 2 {
		errs := p.Run(t.Context())
		require.Len(t, errs, 2)
		for _, err := range errs {
			assert.ErrorIs(t, err, ErrOutputConflict)
		}
		assert.Contains(t, errs[0].Error(), "photo.jpg")
		assert.Contains(t, errs[1].Error(), "photo.png")
	}

	assert.FileExists(t, filepath.Join(outbox, "other.png"))
	assert.NoFileExists(t, filepath.Join(outbox, "photo.png"))
}

func TestNewInboxProcessor_Errors(t *testing.T) {
	d := newDispatcher(t)

	_, err := NewInboxProcessor(filepath.Join(t.TempDir(), "missing"), t.TempDir(), blur.NewEngine(), d)
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(t.TempDir(), "file.png")
	writeImage(t, file, 1, 1)
	_, err = NewInboxProcessor(file, t.TempDir(), blur.NewEngine(), d)
	assert.EqualError(t, err, "inbox "+file+" is not a directory")
}

func TestNewScheduler(t *testing.T) {
	inbox, outbox := t.TempDir(), t.TempDir()
	writeImage(t, filepath.Join(inbox, "startup.png"), 10, 10)

	cfg := &config.Config{InboxDir: inbox, OutboxDir: outbox, WatchInterval: 20 * time.Millisecond}
	engine := blur.NewEngine().WithParameters(0.5, 1)

	sched, err := NewScheduler(t.Context(), cfg, engine, newDispatcher(t))
	require.NoError(t, err)
	require.NotNil(t, sched)
	defer func() {
		assert.NoError(t, sched.Shutdown())
	}()

	// The initial run happens before NewScheduler returns.
	assert.FileExists(t, filepath.Join(outbox, "startup.png"))

	writeImage(t, filepath.Join(inbox, "later.png"), 10, 10)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(outbox, "later.png"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNewScheduler_Disabled(t *testing.T) {
	sched, err := NewScheduler(t.Context(), &config.Config{}, blur.NewEngine(), newDispatcher(t))
	assert.NoError(t, err)
	assert.Nil(t, sched)
}

func TestNewScheduler_MissingInbox(t *testing.T) {
	cfg := &config.Config{InboxDir: filepath.Join(t.TempDir(), "missing"), OutboxDir: t.TempDir(), WatchInterval: time.Second}
	_, err := NewScheduler(t.Context(), cfg, blur.NewEngine(), newDispatcher(t))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
