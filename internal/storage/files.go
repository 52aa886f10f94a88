package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrTooLarge = errors.New("file exceeds maximum size")
	ErrNotFound = errors.New("blob not found")
)

// sniffBytes covers the zip directory entries mimetype needs to tell
// docx from pptx.
const sniffBytes = 3072

type Stored struct {
	Size        int64
	SniffedMIME string
}

// FileManager keeps upload and result bytes on disk, one directory per
// workspace. Nothing here survives a restart; Reset wipes the tree.
type FileManager struct {
	baseDir        string
	uploadDir      string
	resultDir      string
	maxUploadBytes int64
}

func NewFileManager(baseDir string, maxUploadBytes int64) (*FileManager, error) {
	fm := &FileManager{
		baseDir:        baseDir,
		uploadDir:      filepath.Join(baseDir, "uploads"),
		resultDir:      filepath.Join(baseDir, "results"),
		maxUploadBytes: maxUploadBytes,
	}

	if err := fm.ensureDirs(); err != nil {
		return nil, err
	}
	return fm, nil
}

// Reset removes every stored upload and result.
func (fm *FileManager) Reset() error {
	for _, dir := range []string{fm.uploadDir, fm.resultDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
	}
	return fm.ensureDirs()
}

func (fm *FileManager) SaveUpload(workspaceID, entryID string, r io.Reader) (Stored, error) {
	if err := validID(workspaceID); err != nil {
		return Stored{}, err
	}
	if err := validID(entryID); err != nil {
		return Stored{}, err
	}

	dir := filepath.Join(fm.uploadDir, workspaceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Stored{}, fmt.Errorf("create upload dir: %w", err)
	}

	sample := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, sample)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Stored{}, fmt.Errorf("read upload sample: %w", err)
	}
	sample = sample[:n]

	path := filepath.Join(dir, entryID)
	total, err := fm.writeWithLimit(path, sample, r)
	if err != nil {
		return Stored{}, err
	}

	return Stored{Size: total, SniffedMIME: mimetype.Detect(sample).String()}, nil
}

func (fm *FileManager) OpenUpload(workspaceID, entryID string) (io.ReadCloser, error) {
	if err := validID(workspaceID); err != nil {
		return nil, err
	}
	if err := validID(entryID); err != nil {
		return nil, err
	}
	return openBlob(filepath.Join(fm.uploadDir, workspaceID, entryID))
}

func (fm *FileManager) DeleteUpload(workspaceID, entryID string) error {
	if err := validID(workspaceID); err != nil {
		return err
	}
	if err := validID(entryID); err != nil {
		return err
	}
	return removeIfExists(filepath.Join(fm.uploadDir, workspaceID, entryID))
}

func (fm *FileManager) SaveResult(workspaceID, resultID string, blob []byte) (string, error) {
	if err := validID(workspaceID); err != nil {
		return "", err
	}
	if err := validID(resultID); err != nil {
		return "", err
	}

	dir := filepath.Join(fm.resultDir, workspaceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create result dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "result-*")
	if err != nil {
		return "", fmt.Errorf("create temp result: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp result: %w", err)
	}

	path := filepath.Join(dir, resultID)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("replace result file: %w", err)
	}
	return path, nil
}

// ResultPath returns the on-disk location of a result, or ErrNotFound.
func (fm *FileManager) ResultPath(workspaceID, resultID string) (string, error) {
	if err := validID(workspaceID); err != nil {
		return "", err
	}
	if err := validID(resultID); err != nil {
		return "", err
	}

	path := filepath.Join(fm.resultDir, workspaceID, resultID)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat result: %w", err)
	}
	return path, nil
}

func (fm *FileManager) DeleteResult(workspaceID, resultID string) error {
	if err := validID(workspaceID); err != nil {
		return err
	}
	if err := validID(resultID); err != nil {
		return err
	}
	return removeIfExists(filepath.Join(fm.resultDir, workspaceID, resultID))
}

// DeleteWorkspace drops all uploads and results of one workspace.
func (fm *FileManager) DeleteWorkspace(workspaceID string) error {
	if err := validID(workspaceID); err != nil {
		return err
	}
	for _, dir := range []string{fm.uploadDir, fm.resultDir} {
		if err := os.RemoveAll(filepath.Join(dir, workspaceID)); err != nil {
			return fmt.Errorf("remove workspace blobs: %w", err)
		}
	}
	return nil
}

func (fm *FileManager) ensureDirs() error {
	dirs := []string{fm.baseDir, fm.uploadDir, fm.resultDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

func (fm *FileManager) writeWithLimit(path string, sample []byte, r io.Reader) (int64, error) {
	if fm.maxUploadBytes > 0 && int64(len(sample)) > fm.maxUploadBytes {
		return 0, ErrTooLarge
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}

	total := int64(0)

	cleanup := func(err error) (int64, error) {
		out.Close()
		os.Remove(path)
		return 0, err
	}

	if len(sample) > 0 {
		if _, err := out.Write(sample); err != nil {
			return cleanup(fmt.Errorf("write upload sample: %w", err))
		}
		total += int64(len(sample))
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if fm.maxUploadBytes > 0 && total > fm.maxUploadBytes {
				return cleanup(ErrTooLarge)
			}
			if _, werr := out.Write(buf[:n]); werr != nil {
				return cleanup(fmt.Errorf("write upload file: %w", werr))
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return cleanup(fmt.Errorf("read upload content: %w", err))
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("close upload file: %w", err)
	}

	return total, nil
}

func openBlob(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// validID keeps caller-provided ids from escaping the storage tree.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid blob id %q", id)
	}
	return nil
}
