package wal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// FileMode WAL 檔案權限
const FileMode fs.FileMode = 0644

// ErrBroken 寫入失敗後無法把檔案截回原本長度，之後的寫入都會被拒絕
var ErrBroken = errors.New("wal is broken")

// logFile WAL 需要的檔案操作，*os.File 滿足此介面
type logFile interface {
	io.ReadWriteSeeker
	io.Closer
	Sync() error
	Truncate(size int64) error
}

// WAL (Write-Ahead Log) 負責將變更持久化到磁碟，一筆紀錄一行 JSON
//
// 只有完整寫入且 Sync 成功的紀錄才算數:
// 寫入失敗時把檔案截回寫入前的長度，ReadAll 遇到沒有換行的殘缺尾行會直接截掉。
type WAL struct {
	file logFile
	mu   sync.Mutex

	// size 已確認落盤的長度
	size int64
	// broken 非 nil 代表截回失敗，檔案內容不可信
	broken error
}

// NewWAL 開啟或建立 WAL 檔案
//
// 參數:
//
//	path: 檔案路徑
//
// 回傳值:
//
//	*WAL: WAL 實例
//	error: 開檔失敗
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileMode)
	if err != nil {
		return nil, err
	}
	w, err := newWAL(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return w, nil
}

func newWAL(file logFile) (*WAL, error) {
	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek wal end: %w", err)
	}
	return &WAL{file: file, size: size}, nil
}

// Write 將物件序列化後追加到檔案並 Sync
//
// 回傳錯誤時保證這筆紀錄不會在重啟後被重放
func (w *WAL) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.broken != nil {
		return fmt.Errorf("%w: %v", ErrBroken, w.broken)
	}

	offset := w.size
	n, err := w.file.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = w.file.Sync()
	}
	if err != nil {
		return w.rollback(offset, err)
	}

	w.size = offset + int64(n)
	return nil
}

// rollback 把檔案截回 offset，呼叫端需持有 mu
func (w *WAL) rollback(offset int64, cause error) error {
	if err := w.file.Truncate(offset); err != nil {
		w.broken = errors.Join(cause, err)
		return fmt.Errorf("%w: %v", ErrBroken, w.broken)
	}
	return cause
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ReadAll 從頭依序讀出每一筆紀錄交給 callback，callback 回傳錯誤即停止
//
// 最後一行若沒有換行代表寫到一半就中斷，會被截掉而不是回報錯誤。
// 需在第一次 Write 之前呼叫，callback 內不可再呼叫 Write。
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(w.file)
	var offset int64
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				if err := w.file.Truncate(offset); err != nil {
					return fmt.Errorf("truncate torn tail at %d: %w", offset, err)
				}
			}
			break
		}
		if err != nil {
			return err
		}
		offset += int64(len(line))

		raw := bytes.TrimSpace(line)
		if len(raw) == 0 {
			continue
		}
		if err := callback(raw); err != nil {
			return err
		}
	}

	w.size = offset
	return nil
}
