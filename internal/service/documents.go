package service

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ragflow/internal/domain"
)

var supportedExtensions = map[string]bool{".txt": true, ".md": true}

// ErrNoDocuments is returned by LoadDocuments when no path yields a supported file.
var ErrNoDocuments = errors.New("no .txt or .md documents found")

// LoadDocuments expands globs and reads every .txt and .md file. Directories
// are walked. A path that matches nothing is read literally so a typo surfaces
// as a file error.
func LoadDocuments(paths []string) ([]domain.Document, error) {
	seen := make(map[string]bool)
	var documents []domain.Document
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		sort.Strings(matches)
		for _, m := range matches {
			files, err := expand(m)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				if seen[f] {
					continue
				}
				seen[f] = true
				data, err := os.ReadFile(f)
				if err != nil {
					return nil, err
				}
				documents = append(documents, domain.Document{ID: hashString(f), Path: f, Content: string(data)})
			}
		}
	}
	if len(documents) == 0 {
		return nil, ErrNoDocuments
	}
	return documents, nil
}

func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return []string{path}, nil
		}
		return nil, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && supportedExtensions[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
