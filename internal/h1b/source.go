package h1b

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/h1b-counting/internal/fetcher"
)

// DefaultDelimiter separates fields in delimited input and in the reports.
const DefaultDelimiter = ';'

// SourceOptions configures how an input location is opened.
type SourceOptions struct {
	// Delimiter defaults to DefaultDelimiter.
	Delimiter rune
	Charset   string
	Sheet     string
	// StrictQuotes rejects bare quotes inside unquoted fields.
	StrictQuotes bool
	// Fetcher downloads http(s) locations. Remote inputs fail when nil.
	Fetcher fetcher.Fetcher
}

// Source streams the rows of one input, header row first.
// Close must be called to stop the producer and remove temporary files.
type Source struct {
	Rows <-chan []string

	errs   <-chan error
	cancel context.CancelFunc
	file   *os.File
	tmpDir string
}

// IsRemote reports whether location is an http or https URL.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// OpenSource opens location for streaming. Remote files are downloaded and ZIP
// archives extracted into a private temp directory first; .xlsx files are read
// from their sheet, anything else is parsed as delimited text.
func OpenSource(ctx context.Context, location string, opts SourceOptions) (_ *Source, err error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultDelimiter
	}
	s := &Source{}
	defer func() {
		if err != nil {
			s.removeTemp()
		}
	}()

	local := location
	if IsRemote(location) {
		if opts.Fetcher == nil {
			return nil, eris.Errorf("source: no fetcher configured for %s", location)
		}
		if err := s.ensureTemp(); err != nil {
			return nil, err
		}
		local = filepath.Join(s.tmpDir, remoteName(location))
		n, err := opts.Fetcher.DownloadToFile(ctx, location, local)
		if err != nil {
			return nil, eris.Wrapf(err, "source: download %s", location)
		}
		zap.L().Info("source: downloaded input", zap.String("url", location), zap.Int64("bytes", n))
	}

	if strings.EqualFold(filepath.Ext(local), ".zip") {
		if err := s.ensureTemp(); err != nil {
			return nil, err
		}
		extracted, err := fetcher.ExtractZIPSingle(local, s.tmpDir)
		if err != nil {
			return nil, eris.Wrapf(err, "source: extract %s", local)
		}
		local = extracted
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if strings.EqualFold(filepath.Ext(local), ".xlsx") {
		s.Rows, s.errs = fetcher.StreamXLSX(streamCtx, local, fetcher.XLSXOptions{SheetName: opts.Sheet})
		return s, nil
	}

	f, err := os.Open(local)
	if err != nil {
		cancel()
		return nil, eris.Wrapf(err, "source: open %s", local)
	}
	s.file = f
	s.Rows, s.errs = fetcher.StreamCSV(streamCtx, f, fetcher.CSVOptions{
		Delimiter:  opts.Delimiter,
		Charset:    opts.Charset,
		LazyQuotes: !opts.StrictQuotes,
	})
	return s, nil
}

// Err returns the first error reported by the producer. It blocks until the
// producer finishes, so call it only after Rows is drained.
func (s *Source) Err() error {
	for err := range s.errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Close stops the producer, releases the input file, and removes temporary files.
func (s *Source) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.Rows != nil {
		for range s.Rows { //nolint:revive // drain
		}
	}
	if s.errs != nil {
		for range s.errs { //nolint:revive // drain
		}
	}

	var closeErr error
	if s.file != nil {
		closeErr = s.file.Close()
		s.file = nil
	}
	s.removeTemp()
	return eris.Wrap(closeErr, "source: close input")
}

func (s *Source) ensureTemp() error {
	if s.tmpDir != "" {
		return nil
	}
	dir, err := os.MkdirTemp("", "h1b-input-*")
	if err != nil {
		return eris.Wrap(err, "source: create temp dir")
	}
	s.tmpDir = dir
	return nil
}

func (s *Source) removeTemp() {
	if s.tmpDir == "" {
		return
	}
	if err := os.RemoveAll(s.tmpDir); err != nil {
		zap.L().Warn("source: remove temp dir", zap.String("dir", s.tmpDir), zap.Error(err))
	}
	s.tmpDir = ""
}

// remoteName picks a local file name for a downloaded URL, keeping its extension.
func remoteName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "input"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "input"
	}
	return name
}
