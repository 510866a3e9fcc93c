package ranger

import (
	"context"
	"errors"
	"io"
	"sync"
)

// DefaultBlockSize is the default size of the blocks a Reader caches;
// lower values reduce memory use but request finer-grained ranges.
const DefaultBlockSize int = 128 * 1024

// Reader is an io.ReaderAt and io.ReadSeeker backed by a partial block
// store, fetched over HTTP via a VectorReadOrchestrator. Unlike the
// teacher's per-ReadAt RangeFetcher.FetchBlocks call, a Reader batches all
// of a ReadAt's missing blocks into a single PreadVec call, letting the
// orchestrator pack them into as few Range headers as possible.
type Reader struct {
	Orchestrator *VectorReadOrchestrator
	Context      IOChainContext

	// BlockSize is the granularity at which bytes are fetched and cached.
	// Zero means DefaultBlockSize.
	BlockSize int

	// Ctx is used for every request the Reader issues. Defaults to
	// context.Background() if left nil.
	Ctx context.Context

	blocks      map[int][]byte
	mutex       sync.RWMutex
	initialized bool
	length      int64

	off int64
}

// NewReader constructs a Reader over ioctx, running ioctx's Initialize
// step (if it implements Initializer) to learn the resource's length.
func NewReader(ctx context.Context, ioctx IOChainContext, orchestrator *VectorReadOrchestrator, opts ...Option) (*Reader, error) {
	if orchestrator == nil {
		orchestrator = NewOrchestrator(opts...)
	}
	r := &Reader{
		Orchestrator: orchestrator,
		Context:      ioctx,
		Ctx:          ctx,
	}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func blockRange(off int64, length int, blockSize int) (int, int) {
	startBlock := int(off / int64(blockSize))
	endBlock := int((off + int64(length)) / int64(blockSize))
	endBlockOff := (off + int64(length)) % int64(blockSize)
	nblocks := endBlock - startBlock
	if endBlockOff > 0 {
		nblocks++
	}
	return startBlock, nblocks
}

// ReadAt reads len(p) bytes from the ranged-over source.
// It returns the number of bytes read and the error, if any.
// ReadAt always returns a non-nil error when n < len(p). At end of file,
// that error is io.EOF.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if !r.initialized {
		if err := r.init(); err != nil {
			return 0, err
		}
	}

	l := len(p)
	if off < 0 {
		return 0, errors.New("ranger: read before beginning of file")
	}
	if off+int64(l) > r.Length() {
		return 0, errors.New("ranger: read beyond end of file")
	}

	startBlock, nblocks := blockRange(off, l, r.BlockSize)

	r.mutex.RLock()
	var missing []RangeRequest
	blockOfIndex := make([]int, 0, nblocks)
	for i := 0; i < nblocks; i++ {
		bn := startBlock + i
		if _, ok := r.blocks[bn]; ok {
			continue
		}
		start := int64(bn * r.BlockSize)
		end := int64((bn+1)*r.BlockSize) - 1
		if end >= r.length {
			end = r.length - 1
		}
		size := uint64(end - start + 1)
		missing = append(missing, RangeRequest{
			Offset: uint64(start),
			Size:   size,
			Buffer: make([]byte, size),
		})
		blockOfIndex = append(blockOfIndex, bn)
	}
	r.mutex.RUnlock()

	if len(missing) > 0 {
		// Lock here so that we don't end up dispatching multiple vector
		// requests for the same blocks: blocks another ReadAt cached while
		// the read lock was released are dropped before dispatching.
		r.mutex.Lock()
		pending, pendingBlocks := missing[:0], blockOfIndex[:0]
		for i, m := range missing {
			if _, ok := r.blocks[blockOfIndex[i]]; !ok {
				pending = append(pending, m)
				pendingBlocks = append(pendingBlocks, blockOfIndex[i])
			}
		}
		if len(pending) > 0 {
			results, _, err := r.Orchestrator.PreadVec(r.ctx(), r.Context, pending)
			if err != nil {
				r.mutex.Unlock()
				return 0, err
			}
			for i, res := range results {
				r.blocks[pendingBlocks[i]] = res.Buffer[:res.Size]
			}
		}
		r.mutex.Unlock()
	}

	return r.copyRangeToBuffer(p, off)
}

func (r *Reader) ctx() context.Context {
	if r.Ctx != nil {
		return r.Ctx
	}
	return context.Background()
}

func (r *Reader) copyRangeToBuffer(p []byte, off int64) (int, error) {
	remaining := len(p)
	block := int(off / int64(r.BlockSize))
	startOffset := off % int64(r.BlockSize)
	ncopied := 0

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for remaining > 0 {
		copylen := r.BlockSize
		if copylen > remaining {
			copylen = remaining
		}
		if startOffset+int64(copylen) > int64(r.BlockSize) {
			copylen = int(int64(r.BlockSize) - startOffset)
		}

		data, ok := r.blocks[block]
		if !ok {
			return ncopied, errors.New("ranger: expected block missing from cache")
		}
		if int64(len(data)) < startOffset {
			copylen = 0
		} else if int64(len(data))-startOffset < int64(copylen) {
			copylen = int(int64(len(data)) - startOffset)
		}
		copy(p[ncopied:ncopied+copylen], data[startOffset:startOffset+int64(copylen)])

		remaining -= copylen
		ncopied += copylen
		if copylen == 0 {
			break
		}

		block++
		startOffset = 0
	}

	var err error
	if off+int64(ncopied) >= r.length {
		err = io.EOF
	}
	return ncopied, err
}

// Length returns the length of the ranged-over source.
func (r *Reader) Length() int64 {
	if !r.initialized {
		r.init()
	}
	return r.length
}

// Read reads len(p) bytes from the ranged-over source.
// It returns the number of bytes read and the error, if any.
// EOF is signaled by a zero count with err set to io.EOF.
func (r *Reader) Read(p []byte) (int, error) {
	if r.off >= r.Length() {
		return 0, io.EOF
	}
	nread, err := r.ReadAt(p, r.off)
	r.off += int64(nread)
	return nread, err
}

// Seek sets the offset for the next Read to offset, interpreted according
// to whence: 0 means relative to the origin of the file, 1 means relative
// to the current offset, and 2 means relative to the end. It returns the
// new offset and an error, if any.
func (r *Reader) Seek(off int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		if off < 0 {
			return 0, errors.New("ranger: seek to negative offset")
		}
		if off > r.Length() {
			return 0, errors.New("ranger: seek beyond end of file")
		}
		r.off = off
	case io.SeekCurrent:
		off = r.off + off
		if off < 0 {
			return 0, errors.New("ranger: seek to negative offset")
		}
		if off > r.Length() {
			return 0, errors.New("ranger: seek beyond end of file")
		}
		r.off = off
	case io.SeekEnd:
		off = r.Length() + off
		if off < 0 {
			return 0, errors.New("ranger: seek beyond beginning of file")
		}
		if off > r.Length() {
			return 0, errors.New("ranger: seek beyond end of file")
		}
		r.off = off
	default:
		return 0, errors.New("ranger: invalid whence")
	}
	return r.off, nil
}

func (r *Reader) init() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.initialized {
		return nil
	}

	r.blocks = make(map[int][]byte)
	if r.BlockSize == 0 {
		r.BlockSize = DefaultBlockSize
	}

	if initer, ok := r.Context.(Initializer); ok {
		length, err := initer.Initialize(r.ctx())
		if err != nil {
			return err
		}
		r.length = length
	}

	r.initialized = true
	return nil
}
