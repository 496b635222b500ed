// internal/logger/writers.go
package logger

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// flusher владеет файлом, фоновым flush и счётчиками; общий для обоих писателей.
// buffered сбрасывает буфер писателя в файл и вызывается под mu.
type flusher struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	buffered  func() error
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger

	written uint64
	flushes uint64
}

// openAppend создаёт каталог и открывает файл на дозапись; возвращает текущий размер.
func openAppend(path string) (*os.File, int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, 0, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("failed to stat file: %w", err)
	}
	return file, stat.Size(), nil
}

func (f *flusher) start(interval time.Duration) {
	f.done = make(chan struct{})
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := f.Flush(); err != nil {
					f.logger.Error("Periodic flush failed", zap.String("file", f.path), zap.Error(err))
				}
			case <-f.done:
				return
			}
		}
	}()
}

// Flush forces buffered data to disk
func (f *flusher) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.buffered(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	f.flushes++
	return nil
}

// Close stops the flush loop, writes the rest and closes the file. Повторный вызов ничего не делает.
func (f *flusher) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)

		f.mu.Lock()
		defer f.mu.Unlock()

		if ferr := f.buffered(); ferr != nil {
			err = fmt.Errorf("failed to flush on close: %w", ferr)
			_ = f.file.Close()
			return
		}
		if cerr := f.file.Close(); cerr != nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
			return
		}
		f.logger.Debug("Writer closed",
			zap.String("file", f.path),
			zap.Uint64("written", f.written),
			zap.Uint64("flushes", f.flushes))
	})
	return err
}

// GetStats returns written entries and completed flushes
func (f *flusher) GetStats() (written, flushes uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written, f.flushes
}

// SafeFileWriter is a goroutine-safe buffered line writer with periodic flush.
type SafeFileWriter struct {
	*flusher
	writer *bufio.Writer
}

func NewSafeFileWriter(filePath string, flushInterval time.Duration, logger *zap.Logger) (*SafeFileWriter, error) {
	file, _, err := openAppend(filePath)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriter(file)
	sfw := &SafeFileWriter{
		flusher: &flusher{file: file, path: filePath, buffered: w.Flush, logger: logger},
		writer:  w,
	}
	sfw.start(flushInterval)
	return sfw, nil
}

func (sfw *SafeFileWriter) Write(data []byte) (int, error) {
	sfw.mu.Lock()
	defer sfw.mu.Unlock()

	n, err := sfw.writer.Write(data)
	if err != nil {
		return n, fmt.Errorf("failed to write data: %w", err)
	}
	sfw.written++
	return n, nil
}

// WriteLine appends line plus '\n' as one entry
func (sfw *SafeFileWriter) WriteLine(line string) error {
	sfw.mu.Lock()
	defer sfw.mu.Unlock()

	if _, err := sfw.writer.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	sfw.written++
	return nil
}

// SafeCSVWriter is the CSV counterpart of SafeFileWriter.
type SafeCSVWriter struct {
	*flusher
	writer *csv.Writer
}

// NewSafeCSVWriter пишет header только в пустой файл, при дозаписи он уже есть.
func NewSafeCSVWriter(filePath string, header []string, flushInterval time.Duration, logger *zap.Logger) (*SafeCSVWriter, error) {
	file, size, err := openAppend(filePath)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(file)
	buffered := func() error {
		w.Flush()
		return w.Error()
	}

	if size == 0 && len(header) > 0 {
		if err := w.Write(header); err == nil {
			err = buffered()
		}
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	scw := &SafeCSVWriter{
		flusher: &flusher{file: file, path: filePath, buffered: buffered, logger: logger},
		writer:  w,
	}
	scw.start(flushInterval)
	return scw, nil
}

func (scw *SafeCSVWriter) WriteRecord(record []string) error {
	scw.mu.Lock()
	defer scw.mu.Unlock()

	if err := scw.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	scw.written++
	return nil
}
