package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// HighResDir is the sub-directory holding follow-up images.
const HighResDir = "clouds_over_borders"

var highResName = regexp.MustCompile(`^border_(\d+)_(.+)\.jpg$`)

// Store implements ports.ArtifactStore rooted at one output directory.
type Store struct {
	dir string
}

// NewStore creates the output directories when missing.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, HighResDir), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// HighResDir returns the follow-up image directory.
func (s *Store) HighResDir() string { return filepath.Join(s.dir, HighResDir) }

func (s *Store) SaveBaseImage(_ context.Context, timestamp string, image []byte) (string, error) {
	path := filepath.Join(s.dir, "border_"+timestamp+".jpg")
	if err := writeFile(path, image); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) SaveHighRes(_ context.Context, borderNumber int, timestamp string, image []byte) (string, error) {
	dir := s.HighResDir()
	old, err := s.highResFiles(borderNumber)
	if err != nil {
		return "", err
	}
	for _, name := range old {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove old image %s: %w", name, err)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("border_%d_%s.jpg", borderNumber, timestamp))
	if err := writeFile(path, image); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) SaveArtifacts(_ context.Context, snap *domain.Snapshot, a domain.Artifacts) (domain.ArtifactPaths, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return domain.ArtifactPaths{}, fmt.Errorf("encode snapshot: %w", err)
	}

	paths := domain.ArtifactPaths{
		Data:    filepath.Join(s.dir, "data_"+snap.Timestamp+".json"),
		Overlay: filepath.Join(s.dir, "status_overlay_"+snap.Timestamp+".svg"),
		Status:  filepath.Join(s.dir, "status_"+snap.Timestamp+".html"),
	}
	files := []struct {
		path string
		body []byte
	}{
		{paths.Overlay, []byte(a.OverlaySVG)},
		{paths.Status, []byte(a.StatusHTML)},
		{paths.Data, data},
	}
	for _, f := range files {
		if err := writeFile(f.path, f.body); err != nil {
			return domain.ArtifactPaths{}, err
		}
	}
	return paths, nil
}

func (s *Store) LatestSnapshot(_ context.Context) (*domain.Snapshot, error) {
	names, err := s.dataFiles()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, domain.ErrNoSnapshot
	}
	return s.readSnapshot(names[0])
}

// ListSnapshots returns summaries of stored cycles, newest first.
func (s *Store) ListSnapshots(_ context.Context, offset, limit int) ([]domain.CycleSummary, int, error) {
	names, err := s.dataFiles()
	if err != nil {
		return nil, 0, err
	}
	total := len(names)
	if offset >= total {
		return []domain.CycleSummary{}, total, nil
	}
	names = names[offset:]
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	out := make([]domain.CycleSummary, 0, len(names))
	for _, name := range names {
		snap, err := s.readSnapshot(name)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, domain.CycleSummary{
			ID:        snap.ID,
			Timestamp: snap.Timestamp,
			Generated: snap.Generated,
			Summary:   snap.Summary,
		})
	}
	return out, total, nil
}

// ListHighRes returns the stored follow-up images ordered by border number.
func (s *Store) ListHighRes(_ context.Context) ([]domain.HighResImage, error) {
	entries, err := os.ReadDir(s.HighResDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.HighResImage{}, nil
		}
		return nil, fmt.Errorf("list high-res images: %w", err)
	}

	out := make([]domain.HighResImage, 0, len(entries))
	for _, e := range entries {
		n, ok := ParseHighResName(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, domain.HighResImage{
			BorderNumber: n,
			Filename:     e.Name(),
			Size:         info.Size(),
			Modified:     info.ModTime().UTC(),
		})
	}
	slices.SortFunc(out, func(a, b domain.HighResImage) int {
		if a.BorderNumber != b.BorderNumber {
			return a.BorderNumber - b.BorderNumber
		}
		return strings.Compare(b.Filename, a.Filename)
	})
	return out, nil
}

func (s *Store) HighResPath(_ context.Context, borderNumber int) (string, error) {
	names, err := s.highResFiles(borderNumber)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("high-res image for border %d: %w", borderNumber, domain.ErrNotFound)
	}
	return filepath.Join(s.HighResDir(), names[len(names)-1]), nil
}

// ParseHighResName extracts the border number from a follow-up image name.
func ParseHighResName(name string) (int, bool) {
	m := highResName.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// highResFiles returns the image names for one border, oldest first.
func (s *Store) highResFiles(borderNumber int) ([]string, error) {
	entries, err := os.ReadDir(s.HighResDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.HighResDir(), err)
	}
	var names []string
	for _, e := range entries {
		if n, ok := ParseHighResName(e.Name()); ok && n == borderNumber {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// dataFiles returns snapshot file names, newest first.
func (s *Store) dataFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "data_") && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	slices.Reverse(names)
	return names, nil
}

func (s *Store) readSnapshot(name string) (*domain.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return &snap, nil
}

// writeFile writes through a temporary file so readers never see partial content.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
