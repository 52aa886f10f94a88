// Package workspace owns one merge session: the selected files, the busy
// flag around the merge call, the current result and the current error
// message.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tkstan/fusiondoc/internal/domain"
	"github.com/tkstan/fusiondoc/internal/logger"
	"github.com/tkstan/fusiondoc/internal/merge"
	"github.com/tkstan/fusiondoc/internal/selection"
	"github.com/tkstan/fusiondoc/internal/storage"
)

const (
	minMergeFiles = 2

	msgNotEnoughFiles   = "Please select at least two files to merge."
	mergeFailurePrefix  = "Error merging files: "
	mergeFailureDefault = "Unknown error"
)

var (
	ErrNotEnoughFiles = errors.New("at least two files are required")
	ErrBusy           = errors.New("a merge is already running")
	ErrMergeFailed    = errors.New("merge failed")
	ErrDiscarded      = errors.New("workspace was reset while merging")
	ErrNoResult       = errors.New("no merge result available")
	ErrFileNotFound   = errors.New("file not found")
	ErrClosed         = errors.New("workspace is closed")
)

// BlobStore is the byte storage behind entries and results.
type BlobStore interface {
	SaveUpload(workspaceID, entryID string, r io.Reader) (storage.Stored, error)
	OpenUpload(workspaceID, entryID string) (io.ReadCloser, error)
	DeleteUpload(workspaceID, entryID string) error
	SaveResult(workspaceID, resultID string, blob []byte) (string, error)
	ResultPath(workspaceID, resultID string) (string, error)
	DeleteResult(workspaceID, resultID string) error
	DeleteWorkspace(workspaceID string) error
}

// Revoker invalidates download references to a result.
type Revoker interface {
	RevokeResult(resultID string) int
}

type Options struct {
	Blobs   BlobStore
	Merger  merge.Merger
	Revoker Revoker
	Logger  logger.Logger
}

// Upload is a raw file handle from a drop or picker event.
type Upload struct {
	Name     string
	Size     int64
	MIMEType string
	Open     func() (io.ReadCloser, error)
}

type Workspace struct {
	id   string
	opts Options

	mu         sync.Mutex
	sel        *selection.Selection
	result     *domain.Result
	errMsg     string
	busy       bool
	generation uint64

	// pending holds upload ids whose bytes must outlive an in-flight merge.
	pending   []string
	updatedAt time.Time
	closed    bool
}

func New(id string, opts Options) *Workspace {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Workspace{
		id:        id,
		opts:      opts,
		sel:       selection.New(),
		updatedAt: time.Now(),
	}
}

func (w *Workspace) ID() string {
	return w.id
}

func (w *Workspace) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

func (w *Workspace) State() domain.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

// AddFiles stores every upload whose name is not held yet and appends it to
// the selection. Duplicates are skipped without error. A successful call
// clears the error message even when nothing was added.
func (w *Workspace) AddFiles(uploads []Upload) ([]domain.Entry, error) {
	candidates := make([]domain.Candidate, 0, len(uploads))
	byName := make(map[string]Upload, len(uploads))
	for _, u := range uploads {
		candidates = append(candidates, domain.Candidate{Name: u.Name, Size: u.Size, MIMEType: u.MIMEType})
		if _, seen := byName[u.Name]; !seen {
			byName[u.Name] = u
		}
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	survivors := w.sel.Filter(candidates)
	w.mu.Unlock()

	// Bytes are written without holding the lock; the batch is committed below.
	for i := range survivors {
		stored, err := w.store(byName[survivors[i].Name])
		if err != nil {
			w.deleteUploads(survivors[:i])
			return nil, fmt.Errorf("store %s: %w", survivors[i].Name, err)
		}
		survivors[i].StoredID = stored.id
		survivors[i].Size = stored.Size
		survivors[i].SniffedMIME = stored.SniffedMIME
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		if !w.busy {
			_ = w.opts.Blobs.DeleteWorkspace(w.id)
		}
		return nil, ErrClosed
	}

	// A concurrent call may have added some of the same names meanwhile.
	added := w.sel.Add(survivors)
	if len(added) < len(survivors) {
		kept := make(map[string]struct{}, len(added))
		for _, e := range added {
			kept[e.ID] = struct{}{}
		}
		dropped := make([]domain.Candidate, 0, len(survivors)-len(added))
		for _, c := range survivors {
			if _, ok := kept[c.StoredID]; !ok {
				dropped = append(dropped, c)
			}
		}
		w.deleteUploads(dropped)
	}
	w.errMsg = ""
	w.touchLocked()

	for _, e := range added {
		if e.FileType != domain.ClassifyMIME(e.MIMEType) {
			w.opts.Logger.Warn("intake", "declared mime type not recognised, classified by content", map[string]interface{}{
				"workspace": w.id,
				"file":      e.Name,
				"declared":  e.MIMEType,
				"sniffed":   e.SniffedMIME,
				"fileType":  string(e.FileType),
			})
		}
	}
	w.opts.Logger.Info("intake", "files added", map[string]interface{}{
		"workspace": w.id,
		"received":  len(uploads),
		"added":     len(added),
		"held":      w.sel.Len(),
	})

	return added, nil
}

// RemoveFile deletes the entry with the given name.
func (w *Workspace) RemoveFile(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed, ok := w.sel.Remove(name)
	if !ok {
		return ErrFileNotFound
	}
	w.releaseLocked(removed.ID)
	w.touchLocked()
	return nil
}

// Reorder moves the entry at position from to position to.
func (w *Workspace) Reorder(from, to int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.sel.Reorder(from, to); err != nil {
		return err
	}
	w.touchLocked()
	return nil
}

// Reset clears selection, result and error together. A merge still in
// flight keeps the busy flag until it resolves; its outcome is discarded.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.sel.Entries() {
		w.releaseLocked(e.ID)
	}
	w.sel.Reset()
	w.dropResultLocked()
	w.errMsg = ""
	w.generation++
	w.touchLocked()

	w.opts.Logger.Info("workspace", "workspace reset", map[string]interface{}{"workspace": w.id})
}

// Merge runs the merge capability over the held files in ascending order.
func (w *Workspace) Merge(ctx context.Context) (domain.Result, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return domain.Result{}, ErrClosed
	}
	if w.busy {
		w.mu.Unlock()
		return domain.Result{}, ErrBusy
	}
	if w.sel.Len() < minMergeFiles {
		w.errMsg = msgNotEnoughFiles
		w.touchLocked()
		w.mu.Unlock()
		return domain.Result{}, ErrNotEnoughFiles
	}

	w.dropResultLocked()
	w.errMsg = ""
	w.busy = true
	w.touchLocked()
	generation := w.generation
	entries := w.sel.Entries()
	w.mu.Unlock()

	inputs := make([]merge.Input, 0, len(entries))
	order := make([]int, 0, len(entries))
	for _, e := range entries {
		inputs = append(inputs, merge.Input{Entry: e, Open: w.opener(e.ID)})
		order = append(order, e.Order)
	}

	started := time.Now()
	blob, err := w.callMerger(ctx, inputs, order)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.busy = false
	details := map[string]interface{}{
		"workspace": w.id,
		"files":     len(entries),
		"duration":  time.Since(started).String(),
	}

	if w.closed {
		w.pending = nil
		if err := w.opts.Blobs.DeleteWorkspace(w.id); err != nil {
			details["error"] = err.Error()
			w.opts.Logger.Warn("workspace", "release workspace blobs failed", details)
		}
		w.opts.Logger.Info("merge", "merge outcome discarded after close", details)
		return domain.Result{}, ErrDiscarded
	}

	w.flushPendingLocked()
	w.touchLocked()

	if generation != w.generation {
		w.opts.Logger.Info("merge", "merge outcome discarded after reset", details)
		return domain.Result{}, ErrDiscarded
	}

	if err != nil {
		w.errMsg = failureMessage(err)
		details["error"] = err
		w.opts.Logger.Error("merge", "merge failed", details)
		return domain.Result{}, fmt.Errorf("%w: %w", ErrMergeFailed, err)
	}

	result := domain.Result{
		ID:        uuid.NewString(),
		Filename:  domain.ResultFilename,
		Size:      int64(len(blob)),
		CreatedAt: time.Now(),
	}
	if _, err := w.opts.Blobs.SaveResult(w.id, result.ID, blob); err != nil {
		w.errMsg = failureMessage(err)
		details["error"] = err
		w.opts.Logger.Error("merge", "storing merge result failed", details)
		return domain.Result{}, fmt.Errorf("%w: %w", ErrMergeFailed, err)
	}

	w.result = &result
	details["bytes"] = result.Size
	w.opts.Logger.Info("merge", "merge completed", details)
	return result, nil
}

// ResultPath resolves the stored bytes of the current result. Superseded
// results are reported as ErrNoResult.
func (w *Workspace) ResultPath(resultID string) (domain.Result, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.result == nil || w.result.ID != resultID {
		return domain.Result{}, "", ErrNoResult
	}
	path, err := w.opts.Blobs.ResultPath(w.id, resultID)
	if err != nil {
		return domain.Result{}, "", err
	}
	return *w.result, path, nil
}

// Result returns the current result, if any.
func (w *Workspace) Result() (domain.Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.result == nil {
		return domain.Result{}, false
	}
	return *w.result, true
}

// Close releases every blob and download reference the workspace holds. A
// merge still in flight keeps its inputs until it resolves; its outcome is
// then discarded and the blobs go with it. Later calls fail with ErrClosed.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.generation++
	w.sel.Reset()
	w.dropResultLocked()
	w.errMsg = ""
	if w.busy {
		return nil
	}
	w.pending = nil
	return w.opts.Blobs.DeleteWorkspace(w.id)
}

// Closed reports whether Close has been called.
func (w *Workspace) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

type storedUpload struct {
	storage.Stored
	id string
}

func (w *Workspace) store(u Upload) (storedUpload, error) {
	if u.Open == nil {
		return storedUpload{}, errors.New("upload has no content")
	}
	rc, err := u.Open()
	if err != nil {
		return storedUpload{}, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	id := uuid.NewString()
	stored, err := w.opts.Blobs.SaveUpload(w.id, id, rc)
	if err != nil {
		return storedUpload{}, err
	}
	return storedUpload{Stored: stored, id: id}, nil
}

func (w *Workspace) opener(entryID string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return w.opts.Blobs.OpenUpload(w.id, entryID)
	}
}

// callMerger turns a panicking backend into an ordinary failure so the busy
// flag is always released.
func (w *Workspace) callMerger(ctx context.Context, inputs []merge.Input, order []int) (blob []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("merge backend panic: %v", r)
		}
	}()
	return w.opts.Merger.Merge(ctx, inputs, order)
}

// deleteUploads removes bytes that never reached the selection, so no
// merge can be reading them.
func (w *Workspace) deleteUploads(candidates []domain.Candidate) {
	for _, c := range candidates {
		if c.StoredID == "" {
			continue
		}
		if err := w.opts.Blobs.DeleteUpload(w.id, c.StoredID); err != nil {
			w.opts.Logger.Warn("workspace", "delete upload failed", map[string]interface{}{
				"workspace": w.id,
				"entry":     c.StoredID,
				"error":     err.Error(),
			})
		}
	}
}

// releaseLocked deletes upload bytes now, or after the running merge.
func (w *Workspace) releaseLocked(entryID string) {
	if entryID == "" {
		return
	}
	if w.busy {
		w.pending = append(w.pending, entryID)
		return
	}
	if err := w.opts.Blobs.DeleteUpload(w.id, entryID); err != nil {
		w.opts.Logger.Warn("workspace", "delete upload failed", map[string]interface{}{
			"workspace": w.id,
			"entry":     entryID,
			"error":     err.Error(),
		})
	}
}

func (w *Workspace) flushPendingLocked() {
	pending := w.pending
	w.pending = nil
	for _, id := range pending {
		w.releaseLocked(id)
	}
}

func (w *Workspace) dropResultLocked() {
	if w.result == nil {
		return
	}
	id := w.result.ID
	w.result = nil

	if w.opts.Revoker != nil {
		w.opts.Revoker.RevokeResult(id)
	}
	if err := w.opts.Blobs.DeleteResult(w.id, id); err != nil {
		w.opts.Logger.Warn("workspace", "delete result failed", map[string]interface{}{
			"workspace": w.id,
			"result":    id,
			"error":     err.Error(),
		})
	}
}

func (w *Workspace) stateLocked() domain.State {
	state := domain.State{
		ID:        w.id,
		Files:     w.sel.Entries(),
		Busy:      w.busy,
		Error:     w.errMsg,
		UpdatedAt: w.updatedAt,
	}
	if state.Files == nil {
		state.Files = []domain.Entry{}
	}
	if w.result != nil {
		r := *w.result
		state.Result = &r
	}
	return state
}

func (w *Workspace) touchLocked() {
	w.updatedAt = time.Now()
}

func failureMessage(err error) string {
	desc := ""
	if err != nil {
		desc = strings.TrimSpace(err.Error())
	}
	if desc == "" {
		desc = mergeFailureDefault
	}
	return mergeFailurePrefix + desc
}
