package workflow

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/sirupsen/logrus"
)

type memObject struct {
	data     []byte
	modified time.Time
}

type memStore struct {
	mu       sync.Mutex
	buckets  map[string]map[string]memObject
	now      func() time.Time
	listErr  error
	upErr    error
	uploads  []string
	ensured  []string
	downErrs map[string]error
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{buckets: map[string]map[string]memObject{}, now: now, downErrs: map[string]error{}}
}

func (s *memStore) put(bucket, name string, data []byte, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buckets[bucket] == nil {
		s.buckets[bucket] = map[string]memObject{}
	}
	s.buckets[bucket][name] = memObject{data: data, modified: modified}
}

func (s *memStore) get(bucket, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.buckets[bucket][name]
	return o.data, ok
}

func (s *memStore) List(_ context.Context, bucket, prefix string) ([]utils.ObjectInfo, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []utils.ObjectInfo
	for name, o := range s.buckets[bucket] {
		if strings.HasPrefix(name, prefix) {
			out = append(out, utils.ObjectInfo{Name: name, Size: int64(len(o.data)), LastModified: o.modified})
		}
	}
	// Reverse name order, so callers cannot lean on listing order.
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

func (s *memStore) Download(_ context.Context, bucket, name string) ([]byte, error) {
	if err := s.downErrs[name]; err != nil {
		return nil, err
	}
	data, ok := s.get(bucket, name)
	if !ok {
		return nil, utils.ErrorObjectNotFound
	}
	return data, nil
}

func (s *memStore) Upload(_ context.Context, bucket, name string, data []byte, _ string) error {
	if s.upErr != nil {
		return s.upErr
	}
	s.put(bucket, name, data, s.now())
	s.mu.Lock()
	s.uploads = append(s.uploads, bucket+"/"+name)
	s.mu.Unlock()
	return nil
}

func (s *memStore) EnsureBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = append(s.ensured, bucket)
	return nil
}

func (s *memStore) Close() error { return nil }

type fakeExtractor struct {
	fields models.ExtractedFields
	err    error
	calls  int
	docs   [][]byte
}

func (e *fakeExtractor) ExtractFields(_ context.Context, document []byte) (models.ExtractedFields, error) {
	e.calls++
	e.docs = append(e.docs, document)
	return e.fields, e.err
}

type fakeClients struct {
	extractor    *fakeExtractor
	source       *memStore
	extractorErr error
	sourceErr    error
}

func (f *fakeClients) NewExtractor(context.Context) (Extractor, error) {
	if f.extractorErr != nil {
		return nil, f.extractorErr
	}
	return f.extractor, nil
}

func (f *fakeClients) NewSourceStore(context.Context) (utils.BlobStore, error) {
	if f.sourceErr != nil {
		return nil, f.sourceErr
	}
	return f.source, nil
}

type fakeRecorder struct {
	results []*models.ReconciliationResult
	runs    []*models.ConsolidationRun
	err     error
}

func (r *fakeRecorder) RecordResult(_ context.Context, result *models.ReconciliationResult) error {
	r.results = append(r.results, result)
	return r.err
}

func (r *fakeRecorder) RecordRun(_ context.Context, run *models.ConsolidationRun) error {
	r.runs = append(r.runs, run)
	return r.err
}

type fakeNotifier struct {
	msgs []config.AuditEventMessage
}

func (n *fakeNotifier) Notify(_ context.Context, msg config.AuditEventMessage) error {
	n.msgs = append(n.msgs, msg)
	return nil
}

type busyLocker struct{}

func (busyLocker) Obtain(context.Context, string, time.Duration) (func(), error) {
	return nil, utils.ErrorRunLocked
}

var errBoom = errors.New("boom")

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() *config.AuditConfig {
	return &config.AuditConfig{
		DocIntelEndpoint:  "https://docintel.example.com",
		DocIntelKeySecret: config.DefaultDocIntelKey,
		StorageKeySecret:  config.DefaultStorageKeySecret,
		PrintIQBaseURL:    config.DefaultPrintIQBaseURL,
		SourceBucket:      config.DefaultSourceBucket,
		ExportBucket:      config.DefaultExportBucket,
		ReportBucket:      config.DefaultReportBucket,
		SummaryBucket:     config.DefaultSummaryBucket,
		Location:          time.UTC,
		ConsolidationHour: 23,
	}
}
