package procdump

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/stats"
)

// Dump is one process listing taken at a tick.
type Dump struct {
	BootID    string       `json:"bootID" yaml:"bootID"`
	Tick      uint64       `json:"tick" yaml:"tick"`
	TakenAt   time.Time    `json:"takenAt" yaml:"takenAt"`
	Processes []proc.Info  `json:"processes" yaml:"processes"`
	Stats     *stats.Stats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Name returns the storage name of the dump without extension.
func (d *Dump) Name() string {
	return fmt.Sprintf("%s-%010d", d.BootID, d.Tick)
}

// Service stores dumps under a base URL.
type Service struct {
	baseURL string
	format  Format
	fs      afs.Service
	mu      sync.RWMutex
}

// Option configures Service.
type Option func(s *Service)

// WithFormat sets the format dumps are saved in.
func WithFormat(format Format) Option {
	return func(s *Service) {
		s.format = format
	}
}

// WithFS sets the storage service.
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// New creates a dump store rooted at baseURL.
func New(ctx context.Context, baseURL string, opts ...Option) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	ret := &Service{baseURL: url.Normalize(baseURL, file.Scheme), format: JSON}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	exists, _ := ret.fs.Exists(ctx, ret.baseURL)
	if !exists {
		if err := ret.fs.Create(ctx, ret.baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create dump location %s: %w", ret.baseURL, err)
		}
	}
	return ret, nil
}

// Save uploads dump and returns its URL.
func (s *Service) Save(ctx context.Context, dump *Dump) (string, error) {
	if dump == nil {
		return "", fmt.Errorf("cannot save nil dump")
	}
	data, err := Encode(s.format, dump)
	if err != nil {
		return "", fmt.Errorf("failed to encode dump: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := url.Join(s.baseURL, dump.Name()+s.format.Ext())
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to save dump %s: %w", URL, err)
	}
	return URL, nil
}

// Load downloads a JSON or YAML dump.
func (s *Service) Load(ctx context.Context, URL string) (*Dump, error) {
	format, err := formatOf(URL)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump %s: %w", URL, err)
	}
	dump := &Dump{}
	if err = Decode(format, data, dump); err != nil {
		return nil, fmt.Errorf("failed to decode dump %s: %w", URL, err)
	}
	return dump, nil
}

// List returns the URLs of the stored dumps of bootID, oldest first. An
// empty bootID lists every dump.
func (s *Service) List(ctx context.Context, bootID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list dumps: %w", err)
	}
	var result []string
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		if bootID != "" && !strings.HasPrefix(object.Name(), bootID+"-") {
			continue
		}
		result = append(result, object.URL())
	}
	sort.Strings(result)
	return result, nil
}

// Delete removes a stored dump.
func (s *Service) Delete(ctx context.Context, URL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check dump %s: %w", URL, err)
	}
	if !exists {
		return fmt.Errorf("dump not found: %s", URL)
	}
	return s.fs.Delete(ctx, URL)
}

func formatOf(URL string) (Format, error) {
	switch {
	case strings.HasSuffix(URL, JSON.Ext()):
		return JSON, nil
	case strings.HasSuffix(URL, YAML.Ext()):
		return YAML, nil
	}
	return "", fmt.Errorf("unsupported dump: %s", URL)
}
