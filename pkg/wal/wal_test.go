package wal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func TestWAL_WriteAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(record{Seq: 1, Note: "a"}))
	require.NoError(t, w.Write(record{Seq: 2, Note: "b"}))
	require.NoError(t, w.Close())

	// 重新開檔後可以依序讀回
	w, err = NewWAL(path)
	require.NoError(t, err)
	defer w.Close()

	var got []record
	err = w.ReadAll(func(raw []byte) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []record{{1, "a"}, {2, "b"}}, got)

	// 讀完後繼續追加
	require.NoError(t, w.Write(record{Seq: 3}))
	count := 0
	require.NoError(t, w.ReadAll(func([]byte) error { count++; return nil }))
	assert.Equal(t, 3, count)
}

func TestWAL_ReadAllStopsOnCallbackError(t *testing.T) {
	w, err := NewWAL(filepath.Join(t.TempDir(), "wal.log"))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(record{Seq: 1}))
	require.NoError(t, w.Write(record{Seq: 2}))

	boom := errors.New("boom")
	calls := 0
	err = w.ReadAll(func([]byte) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

// faultyFile 包一層真實檔案，用來模擬寫入失敗
type faultyFile struct {
	*os.File

	// partial: 只寫入一半就回報錯誤
	partial  bool
	syncErr  error
	truncErr error
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.partial {
		n, _ := f.File.Write(p[:len(p)/2])
		return n, errors.New("no space left on device")
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.syncErr != nil {
		return f.syncErr
	}
	return f.File.Sync()
}

func (f *faultyFile) Truncate(size int64) error {
	if f.truncErr != nil {
		return f.truncErr
	}
	return f.File.Truncate(size)
}

func openFaulty(t *testing.T, path string) (*WAL, *faultyFile) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileMode)
	require.NoError(t, err)
	ff := &faultyFile{File: file}
	w, err := newWAL(ff)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, ff
}

func readSeqs(t *testing.T, path string) []int {
	t.Helper()
	w, err := NewWAL(path)
	require.NoError(t, err)
	defer w.Close()

	var seqs []int
	require.NoError(t, w.ReadAll(func(raw []byte) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		seqs = append(seqs, r.Seq)
		return nil
	}))
	return seqs
}

func TestWAL_WriteFailureIsRolledBack(t *testing.T) {
	tests := []struct {
		name   string
		inject func(f *faultyFile)
	}{
		{name: "Sync 失敗", inject: func(f *faultyFile) { f.syncErr = errors.New("sync failed") }},
		{name: "只寫入一半", inject: func(f *faultyFile) { f.partial = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "wal.log")
			w, ff := openFaulty(t, path)
			require.NoError(t, w.Write(record{Seq: 1}))

			before, err := os.ReadFile(path)
			require.NoError(t, err)

			tt.inject(ff)
			require.Error(t, w.Write(record{Seq: 2, Note: "lost"}))

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after, "失敗的寫入要被截掉")
			assert.Equal(t, []int{1}, readSeqs(t, path), "失敗的寫入不會被重放")

			// 故障排除後可以繼續寫
			*ff = faultyFile{File: ff.File}
			require.NoError(t, w.Write(record{Seq: 3}))
			assert.Equal(t, []int{1, 3}, readSeqs(t, path))
		})
	}
}

func TestWAL_BrokenAfterTruncateFailure(t *testing.T) {
	w, ff := openFaulty(t, filepath.Join(t.TempDir(), "wal.log"))
	ff.syncErr = errors.New("sync failed")
	ff.truncErr = errors.New("truncate failed")

	err := w.Write(record{Seq: 1})
	assert.ErrorIs(t, err, ErrBroken)

	// 即使故障消失也不再接受寫入
	*ff = faultyFile{File: ff.File}
	assert.ErrorIs(t, w.Write(record{Seq: 2}), ErrBroken)
}

func TestWAL_ReadAllDropsTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(record{Seq: 1}))
	require.NoError(t, w.Write(record{Seq: 2}))
	require.NoError(t, w.Close())

	// 模擬寫到一半當機
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, FileMode)
	require.NoError(t, err)
	_, err = f.WriteString(`{"seq":3,"no`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, []int{1, 2}, readSeqs(t, path))

	w, err = NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, w.ReadAll(func([]byte) error { return nil }))
	require.NoError(t, w.Write(record{Seq: 4}))
	require.NoError(t, w.Close())
	assert.Equal(t, []int{1, 2, 4}, readSeqs(t, path))
}

func TestWAL_ReadAllRejectsCorruptMiddleLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"seq\":1}\n{broken\n{\"seq\":3}\n"), FileMode))

	w, err := NewWAL(path)
	require.NoError(t, err)
	defer w.Close()

	err = w.ReadAll(func(raw []byte) error {
		var r record
		return json.Unmarshal(raw, &r)
	})
	assert.Error(t, err, "中間的壞行不是寫到一半，要回報")
}
