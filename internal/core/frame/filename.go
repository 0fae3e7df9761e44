package frame

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// FileTimeLayout is the timestamp component of a frame file name.
const FileTimeLayout = "20060102-150405.000000"

// ParseFileTimestamp extracts the start time encoded in a name such as
// "press01_AD-00_20201216-080058.620753.dat".
func ParseFileTimestamp(path string, loc *time.Location) (time.Time, error) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	idx := strings.LastIndex(base, "_")
	if idx < 0 || idx == len(base)-1 {
		return time.Time{}, fmt.Errorf("frame file %q: no timestamp component", path)
	}
	if strings.Count(base[:idx], "_") < 1 {
		return time.Time{}, fmt.Errorf("frame file %q: expected <source>_<component>_<timestamp>", path)
	}
	if loc == nil {
		loc = time.Local
	}
	ts, err := time.ParseInLocation(FileTimeLayout, base[idx+1:], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("frame file %q: %w", path, err)
	}
	return ts, nil
}

// FileName renders the canonical name for a frame file.
func FileName(source, component string, ts time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", source, component, ts.Format(FileTimeLayout), ext)
}

// ListFrameFiles returns files in dir with the given extension, sorted by the
// timestamp in their names. Names that do not parse are skipped.
func ListFrameFiles(dir, ext string, loc *time.Location) ([]ports.FrameFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceDirMissing, dir)
		}
		return nil, err
	}
	suffix := "." + strings.TrimPrefix(ext, ".")

	files := make([]ports.FrameFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ts, err := ParseFileTimestamp(path, loc)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, ports.FrameFile{
			Path:      path,
			Timestamp: domain.EpochSeconds(ts),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Timestamp == files[j].Timestamp {
			return files[i].Path < files[j].Path
		}
		return files[i].Timestamp < files[j].Timestamp
	})
	return files, nil
}
