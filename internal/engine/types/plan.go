package types

// ByteRange is an inclusive, non-overlapping byte interval.
type ByteRange struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r ByteRange) Len() int64 {
	return r.End - r.Start + 1
}

// Plan is derived once per download invocation from a DownloadTask and
// the probed file size. Invariant: the Chunks union covers exactly
// [0, TotalSize-1] and sum(chunk lengths) == TotalSize.
type Plan struct {
	Filename  string
	TotalSize int64
	ChunkSize int64
	Chunks    []ByteRange
}

// ChunkRecord describes one chunk's on-disk scratch state. PartFileSize
// is derived by statting PartPath; it is never persisted separately —
// on-disk part files are the source of truth for per-chunk progress.
type ChunkRecord struct {
	Index        int
	PartPath     string
	Range        ByteRange
	PartFileSize int64
}

// Complete reports whether the chunk's part file already holds every
// byte of its assigned range.
func (c ChunkRecord) Complete() bool {
	return c.PartFileSize == c.Range.Len()
}

// Remaining returns the number of bytes still to be fetched for this
// chunk, which may be <= 0 if the part file already covers the range
// (or, in a corrupt state, exceeds it).
func (c ChunkRecord) Remaining() int64 {
	return c.Range.Len() - c.PartFileSize
}
