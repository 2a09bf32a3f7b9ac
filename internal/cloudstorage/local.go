// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cloudstorage

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type osFile struct {
	*os.File
	size int64
}

func (f *osFile) Size() int64 { return f.size }

// tempFile is a downloaded object that is removed on Close.
type tempFile struct {
	osFile
}

func (f *tempFile) Close() error {
	err := f.File.Close()
	if rmErr := os.Remove(f.File.Name()); rmErr != nil && err == nil && !os.IsNotExist(rmErr) {
		err = rmErr
	}
	return err
}

// LocalFS reads the local filesystem.
type LocalFS struct{}

func localPath(p string) string {
	_, _, key := ParseURI(p)
	return key
}

func (LocalFS) Open(_ context.Context, p string) (File, error) {
	f, err := os.Open(localPath(p))
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory", p)
	}
	return &osFile{File: f, size: st.Size()}, nil
}

func (LocalFS) Stat(_ context.Context, p string) (FileInfo, error) {
	st, err := os.Stat(localPath(p))
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Path: p, Size: st.Size(), ModTime: st.ModTime(), IsDir: st.IsDir()}, nil
}

func (LocalFS) List(_ context.Context, p string) ([]FileInfo, error) {
	entries, err := os.ReadDir(localPath(p))
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(p, "/") + "/"
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		st, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, FileInfo{
			Path:    prefix + e.Name(),
			Size:    st.Size(),
			ModTime: st.ModTime(),
			IsDir:   e.IsDir(),
		})
	}
	return out, nil
}
