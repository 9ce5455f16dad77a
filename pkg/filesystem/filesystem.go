package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// GetFilesystem returns a filesystem rooted at the provided path
func GetFilesystem(path string) billy.Filesystem {
	return osfs.New(path)
}

// GetAbsPath returns the absolute path given the relative path within a filesystem
func GetAbsPath(fs billy.Filesystem, path string) string {
	return filepath.Join(fs.Root(), path)
}

// GetRelativePath returns the relative path given the absolute path within a filesystem
func GetRelativePath(fs billy.Filesystem, abspath string) (string, error) {
	if abspath == fs.Root() {
		return "", nil
	}
	fsRoot := fmt.Sprintf("%s/", filepath.Clean(fs.Root()))
	relativePath := strings.TrimPrefix(abspath, fsRoot)
	if relativePath == abspath {
		return "", fmt.Errorf("cannot get relative path; path %s does not exist within %s", abspath, fsRoot)
	}
	return relativePath, nil
}

// PathExists checks if a path exists on the filesystem or returns an error
func PathExists(fs billy.Filesystem, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// CreateFileAndDirs creates a file on the filesystem and all relevant directories along the way if they do not exist.
// The file that is created must be closed by the caller
func CreateFileAndDirs(fs billy.Filesystem, path string) (billy.File, error) {
	if err := fs.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, err
	}
	return fs.Create(path)
}

// WriteFile creates the file (and any parent directories) and writes the provided contents
func WriteFile(fs billy.Filesystem, path string, data []byte) error {
	file, err := CreateFileAndDirs(fs, path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.Write(data)
	return err
}

// RemoveAll removes all files and directories located at the path
func RemoveAll(fs billy.Filesystem, path string) error {
	return os.RemoveAll(GetAbsPath(fs, path))
}

// WalkFunc is called by WalkDir for every file or directory it visits
type WalkFunc func(ctx context.Context, fs billy.Filesystem, path string, isDir bool) error

// WalkDir walks the filesystem rooted at dirpath in lexical order, calling walkFunc on every entry
func WalkDir(ctx context.Context, fs billy.Filesystem, dirpath string, walkFunc WalkFunc) error {
	infos, err := fs.ReadDir(dirpath)
	if err != nil {
		return err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	for _, info := range infos {
		entryPath := filepath.Join(dirpath, info.Name())
		if err := walkFunc(ctx, fs, entryPath, info.IsDir()); err != nil {
			return err
		}
		if info.IsDir() {
			if err := WalkDir(ctx, fs, entryPath, walkFunc); err != nil {
				return err
			}
		}
	}
	return nil
}

// PruneEmptyDirsInPath removes all empty directories located within the path
func PruneEmptyDirsInPath(fs billy.Filesystem, path string) error {
	for len(path) > 0 {
		exists, err := PathExists(fs, path)
		if err != nil {
			return err
		}
		if !exists {
			path = filepath.Dir(path)
			continue
		}
		fileInfos, err := fs.ReadDir(path)
		if err != nil {
			return err
		}
		if len(fileInfos) > 0 {
			return nil
		}
		if err := fs.Remove(path); err != nil {
			return err
		}
		path = filepath.Dir(path)
	}
	return nil
}
