/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: loader.go
Description: Loads legacy artifacts into RawInputs from files, directory trees or any
URL afs understands. File extensions become format hints; detection still decides.
*/

package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// extensionHints maps common AS/400 export and source member extensions to formats
var extensionHints = map[string]core.FormatKind{
	".csv":      core.FormatDelimited,
	".tsv":      core.FormatDelimited,
	".psv":      core.FormatDelimited,
	".dds":      core.FormatDDS,
	".pf":       core.FormatDDS,
	".lf":       core.FormatDDS,
	".sql":      core.FormatDDS,
	".rpg":      core.FormatRPG,
	".rpgle":    core.FormatRPG,
	".sqlrpgle": core.FormatRPG,
	".dspf":     core.FormatGreenScreen,
	".scr":      core.FormatGreenScreen,
}

// HintFor returns the format hint implied by a file name, or FormatUnknown
func HintFor(name string) core.FormatKind {
	if kind, ok := extensionHints[strings.ToLower(path.Ext(name))]; ok {
		return kind
	}
	return core.FormatUnknown
}

// Loader reads inputs through afs
type Loader struct {
	fs       afs.Service
	maxBytes int64
	logger   *logrus.Logger
}

// NewLoader creates a loader. Files larger than maxBytes are rejected; zero means no limit.
func NewLoader(maxBytes int64, logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{fs: afs.New(), maxBytes: maxBytes, logger: logger}
}

// Load reads every location. Directories are walked recursively, skipping hidden entries;
// files within a directory load in name order.
func (l *Loader) Load(ctx context.Context, locations ...string) ([]*core.RawInput, error) {
	var inputs []*core.RawInput
	for _, location := range locations {
		object, err := l.fs.Object(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", location, err)
		}
		if !object.IsDir() {
			in, err := l.read(ctx, location, object.Size())
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, in)
			continue
		}

		files, err := l.walk(ctx, location)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			in, err := l.read(ctx, f.url, f.size)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, in)
		}
	}

	l.logger.WithFields(logrus.Fields{
		"locations": len(locations),
		"inputs":    len(inputs),
	}).Debug("Inputs loaded")
	return inputs, nil
}

type file struct {
	url  string
	size int64
}

func (l *Loader) walk(ctx context.Context, root string) ([]file, error) {
	var files []file
	var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if strings.HasPrefix(info.Name(), ".") {
			return false, nil
		}
		if info.IsDir() {
			return true, nil
		}
		files = append(files, file{url: url.Join(baseURL, parent, info.Name()), size: info.Size()})
		return true, nil
	}
	if err := l.fs.Walk(ctx, root, visitor); err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].url < files[j].url })
	return files, nil
}

func (l *Loader) read(ctx context.Context, location string, size int64) (*core.RawInput, error) {
	if l.maxBytes > 0 && size > l.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", core.ErrInvalidInput, location, size, l.maxBytes)
	}
	data, err := l.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	_, name := url.Split(location, "file")
	return core.NewRawInput(name, data, HintFor(name)), nil
}
