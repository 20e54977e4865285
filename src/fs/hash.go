package fs

import (
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/xattr"
)

// symlinkHashValue is written when we need something arbitrary indicating the input is a symlink.
var symlinkHashValue = []byte{2}

// A PathHasher is responsible for hashing & remembering paths.
// Hashes of files under plz-out are additionally recorded on the files themselves as
// xattrs, so later processes don't need to rehash them.
type PathHasher struct {
	new       func() hash.Hash
	memo      map[string][]byte
	wait      map[string]*pendingHash
	mutex     sync.Mutex
	root      string
	xattrName string
	useXattrs bool
}

type pendingHash struct {
	ch   chan struct{}
	hash []byte
	err  error
}

// NewPathHasher returns a new PathHasher based on the given root directory.
func NewPathHasher(root string, useXattrs bool, hash func() hash.Hash, algo string) *PathHasher {
	return &PathHasher{
		new:       hash,
		memo:      map[string][]byte{},
		wait:      map[string]*pendingHash{},
		root:      root,
		useXattrs: useXattrs,
		xattrName: "user.rulegraph_hash_" + algo,
	}
}

// Hash hashes a single path, which may be a file or a directory.
// It is memoised and so will only hash each path once; concurrent requests for the
// same path wait for the first to complete.
func (hasher *PathHasher) Hash(path string) ([]byte, error) {
	path = hasher.ensureRelative(path)
	hasher.mutex.Lock()
	if cached, present := hasher.memo[path]; present {
		hasher.mutex.Unlock()
		return cached, nil
	} else if pending, present := hasher.wait[path]; present {
		hasher.mutex.Unlock()
		<-pending.ch
		return pending.hash, pending.err
	}
	pending := &pendingHash{ch: make(chan struct{})}
	hasher.wait[path] = pending
	hasher.mutex.Unlock()

	pending.hash, pending.err = hasher.hash(path)
	hasher.mutex.Lock()
	if pending.err == nil {
		hasher.memo[path] = pending.hash
	}
	delete(hasher.wait, path)
	hasher.mutex.Unlock()
	close(pending.ch)
	return pending.hash, pending.err
}

func (hasher *PathHasher) hash(path string) ([]byte, error) {
	full := hasher.resolve(path)
	info, err := os.Lstat(full)
	if err != nil {
		return nil, fmt.Errorf("cannot calculate hash for %s: %w", path, err)
	}
	if hasher.storable(path) {
		if b, err := xattr.LGet(full, hasher.xattrName); err == nil && len(b) > 0 {
			return b, nil
		}
	}
	h := hasher.new()
	if info.Mode()&os.ModeSymlink != 0 {
		dest, err := os.Readlink(full)
		if err != nil {
			return nil, err
		}
		h.Write(symlinkHashValue)
		h.Write([]byte(hasher.ensureRelative(dest)))
		return h.Sum(nil), nil
	} else if !info.IsDir() {
		if err := hasher.fileHash(h, full); err != nil {
			return nil, err
		}
	} else if err := Walk(full, func(name string, isDir bool) error {
		if isDir {
			return nil
		}
		h.Write([]byte(hasher.ensureRelative(name)))
		return hasher.fileHash(h, name)
	}); err != nil {
		return nil, err
	}
	sum := h.Sum(nil)
	if hasher.storable(path) && !info.IsDir() {
		hasher.storeHash(full, sum)
	}
	return sum, nil
}

// fileHash writes the contents of a single file into the given hash.
func (hasher *PathHasher) fileHash(h hash.Hash, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(h, f)
	return err
}

// storeHash stores the hash of a file on it as an xattr.
// This is best-effort since if it fails we can always fall back to a slower but reliable rehash.
func (hasher *PathHasher) storeHash(filename string, hash []byte) {
	if err := xattr.LSet(filename, hasher.xattrName, hash); err != nil {
		log.Debug("Failed to store hash on %s: %s", filename, err)
	}
}

// storable returns true if we're allowed to read & write xattrs on this path.
// Only outputs are eligible; sources are user-controlled and can change under us.
func (hasher *PathHasher) storable(path string) bool {
	return hasher.useXattrs && strings.HasPrefix(path, "plz-out/")
}

func (hasher *PathHasher) resolve(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return hasher.root + "/" + path
}

// ensureRelative ensures a path is relative to the repo root.
// This is important for getting best performance from memoizing the path hashes.
func (hasher *PathHasher) ensureRelative(path string) string {
	if strings.HasPrefix(path, hasher.root) {
		return strings.TrimLeft(strings.TrimPrefix(path, hasher.root), "/")
	}
	return path
}
