package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// CaptureIdentity records the size and modification time of path and,
// when withHash is set, its SHA-256 content hash.
func CaptureIdentity(path string, withHash bool) (*FileIdentity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	id := &FileIdentity{
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
	}
	if withHash {
		hash, err := computeSHA256(path)
		if err != nil {
			return nil, fmt.Errorf("failed to compute hash: %w", err)
		}
		id.ContentHash = hash
	}
	return id, nil
}

func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
