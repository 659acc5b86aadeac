package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rm-hull/blurr/internal/blur"
	"github.com/rm-hull/blurr/internal/dispatch"
	"github.com/rm-hull/blurr/internal/png"
	"github.com/rm-hull/blurr/internal/source"
	"github.com/rs/zerolog/log"
)

var ErrOutputConflict = errors.New("output name conflict")

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

type InboxProcessor struct {
	inboxDir   string
	outboxDir  string
	engine     blur.Engine
	dispatcher *dispatch.Dispatcher
}

type pending struct {
	filename string
	results  <-chan dispatch.Result
}

// NewInboxProcessor blurs every image dropped into inboxDir, writing a PNG of
// the same base name into outboxDir. The outbox is created if necessary.
func NewInboxProcessor(inboxDir, outboxDir string, engine blur.Engine, dispatcher *dispatch.Dispatcher) (*InboxProcessor, error) {
	info, err := os.Stat(inboxDir)
	if err != nil {
		return nil, fmt.Errorf("inbox unavailable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inbox %s is not a directory", inboxDir)
	}
	if err := os.MkdirAll(outboxDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create outbox: %w", err)
	}

	return &InboxProcessor{
		inboxDir:   inboxDir,
		outboxDir:  outboxDir,
		engine:     engine,
		dispatcher: dispatcher,
	}, nil
}

// Run processes every inbox image that has no outbox counterpart yet and
// returns the per-file errors.
func (p *InboxProcessor) Run(ctx context.Context) []error {
	startTime := time.Now()

	files, conflicts, err := p.scan()
	if err != nil {
		return []error{err}
	}
	if len(files) == 0 {
		return conflicts
	}
	log.Info().Int("files", len(files)).Str("inbox", p.inboxDir).Msg("processing inbox")

	errs := append(make([]error, 0, len(conflicts)+10), conflicts...)
	jobs := make([]pending, 0, len(files))
	for _, file := range files {
		results, err := p.dispatcher.Submit(ctx, p.engine, source.File{Path: filepath.Join(p.inboxDir, file)})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to submit %s: %w", file, err))
			continue
		}
		jobs = append(jobs, pending{filename: file, results: results})
	}

	for _, job := range jobs {
		select {
		case result := <-job.results:
			if err := p.write(job.filename, result); err != nil {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("abandoned %s: %w", job.filename, ctx.Err()))
		}
	}

	log.Info().
		Dur("elapsed", time.Since(startTime)).
		Int("files", len(files)).
		Int("errors", len(errs)).
		Msg("inbox processed")
	return errs
}

// scan lists the inbox images still to be processed, in name order. Images
// whose names differ only by extension would share an output, so they are
// reported as conflicts and left unprocessed.
func (p *InboxProcessor) scan() ([]string, []error, error) {
	entries, err := os.ReadDir(p.inboxDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	byOutput := make(map[string][]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		output := p.outputPath(entry.Name())
		byOutput[output] = append(byOutput[output], entry.Name())
	}

	files := make([]string, 0, len(byOutput))
	var conflicts []error
	for output, inputs := range byOutput {
		if len(inputs) > 1 {
			sort.Strings(inputs)
			for _, input := range inputs {
				conflicts = append(conflicts, fmt.Errorf("%s: %w: %s shared with %s",
					input, ErrOutputConflict, filepath.Base(output), strings.Join(inputs, ", ")))
			}
			continue
		}

		// if the output already exists, skip processing
		if _, err := os.Stat(output); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, nil, err
		}
		files = append(files, inputs[0])
	}
	sort.Strings(files)
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Error() < conflicts[j].Error() })
	return files, conflicts, nil
}

func (p *InboxProcessor) outputPath(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return filepath.Join(p.outboxDir, base+".png")
}

func (p *InboxProcessor) write(filename string, result dispatch.Result) error {
	if result.Err != nil {
		return fmt.Errorf("failed to blur %s: %w", filename, result.Err)
	}

	tmpFile, err := os.CreateTemp(p.outboxDir, "blurr-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	cleanupTemp := true
	defer func() {
		_ = tmpFile.Close()
		if cleanupTemp {
			_ = os.Remove(tmpFile.Name())
		}
	}()

	img := &png.PngImage{Buf: result.Buffer}
	if err := img.Write(tmpFile); err != nil {
		return fmt.Errorf("failed to write processed image to temporary file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file before rename: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), p.outputPath(filename)); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	cleanupTemp = false // Successfully renamed, don't delete
	log.Debug().
		Str("file", filename).
		Str("job", result.JobID.String()).
		Dur("elapsed", result.Elapsed).
		Msg("blurred")
	return nil
}
