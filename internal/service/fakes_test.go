package service_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"libris/internal/domain"
	"libris/internal/port"
)

// eventLog orders page starts and completions across fakes.
type eventLog struct {
	seq    atomic.Int64
	mu     sync.Mutex
	starts map[int]int64
	ends   map[int]int64
}

func newEventLog() *eventLog {
	return &eventLog{starts: map[int]int64{}, ends: map[int]int64{}}
}

func (l *eventLog) start(page int) {
	if l == nil {
		return
	}
	s := l.seq.Add(1)
	l.mu.Lock()
	l.starts[page] = s
	l.mu.Unlock()
}

func (l *eventLog) end(page int) {
	if l == nil {
		return
	}
	s := l.seq.Add(1)
	l.mu.Lock()
	l.ends[page] = s
	l.mu.Unlock()
}

type fakeDocument struct {
	pages       int
	width       float64
	height      float64
	renderDelay time.Duration
	hiResErr    map[int]error // by page number
	thumbErr    map[int]error
	events      *eventLog

	active     atomic.Int32
	maxActive  atomic.Int32
	closeCount atomic.Int32

	mu     sync.Mutex
	scales []float64
}

func newFakeDocument(pages int) *fakeDocument {
	return &fakeDocument{
		pages:    pages,
		width:    612,
		height:   792,
		hiResErr: map[int]error{},
		thumbErr: map[int]error{},
	}
}

func (d *fakeDocument) PageCount() int { return d.pages }

func (d *fakeDocument) Page(index int) (port.Page, error) {
	if d.closeCount.Load() > 0 {
		return nil, domain.ErrDocumentClosed
	}
	if index < 0 || index >= d.pages {
		return nil, domain.ErrPageOutOfRange
	}
	return &fakePage{doc: d, number: index + 1}, nil
}

func (d *fakeDocument) Close() error {
	d.closeCount.Add(1)
	return nil
}

type fakePage struct {
	doc    *fakeDocument
	number int
}

func (p *fakePage) Render(ctx context.Context, scale float64) (image.Image, error) {
	d := p.doc
	thumbnail := scale < 1

	d.mu.Lock()
	d.scales = append(d.scales, scale)
	d.mu.Unlock()

	if !thumbnail {
		d.events.start(p.number)
		n := d.active.Add(1)
		defer d.active.Add(-1)
		for {
			m := d.maxActive.Load()
			if n <= m || d.maxActive.CompareAndSwap(m, n) {
				break
			}
		}
	}

	if d.renderDelay > 0 && !thumbnail {
		select {
		case <-time.After(d.renderDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if thumbnail {
		if err := d.thumbErr[p.number]; err != nil {
			return nil, err
		}
	} else if err := d.hiResErr[p.number]; err != nil {
		return nil, err
	}

	w := int(math.Ceil(d.width * scale))
	h := int(math.Ceil(d.height * scale))
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

type fakeEncoder struct {
	fail func(img image.Image, quality float64) error

	mu        sync.Mutex
	qualities []float64
}

func (e *fakeEncoder) Encode(img image.Image, quality float64) (*domain.EncodedAsset, error) {
	e.mu.Lock()
	e.qualities = append(e.qualities, quality)
	e.mu.Unlock()

	if e.fail != nil {
		if err := e.fail(img, quality); err != nil {
			return nil, err
		}
	}
	b := img.Bounds()
	return &domain.EncodedAsset{
		Data:        []byte(fmt.Sprintf("%dx%d@%.1f", b.Dx(), b.Dy(), quality)),
		ContentType: "image/jpeg",
		Extension:   "jpg",
	}, nil
}

type fakeBlobStore struct {
	failKeys map[string]error

	mu      sync.Mutex
	objects map[string][]byte
	uploads int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{failKeys: map[string]error{}, objects: map[string][]byte{}}
}

func (s *fakeBlobStore) Upload(_ context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	for suffix, err := range s.failKeys {
		if strings.HasSuffix(input.Key, suffix) {
			return nil, err
		}
	}
	if _, exists := s.objects[input.Key]; exists && !input.Overwrite {
		return nil, errors.New("object exists")
	}
	s.objects[input.Key] = data
	return &port.UploadOutput{Location: s.PublicURL(input.Key)}, nil
}

func (s *fakeBlobStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (s *fakeBlobStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fakeAssetRepo struct {
	deleteErr error
	createErr map[int]error
	events    *eventLog

	mu      sync.Mutex
	records map[uuid.UUID]map[int]domain.PageAsset
	deletes int
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{
		createErr: map[int]error{},
		records:   map[uuid.UUID]map[int]domain.PageAsset{},
	}
}

func (r *fakeAssetRepo) DeleteByDocument(_ context.Context, documentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.records, documentID)
	return nil
}

func (r *fakeAssetRepo) Create(_ context.Context, asset *domain.PageAsset) error {
	if err := r.createErr[asset.PageNumber]; err != nil {
		return err
	}

	r.mu.Lock()
	pages, ok := r.records[asset.DocumentID]
	if !ok {
		pages = map[int]domain.PageAsset{}
		r.records[asset.DocumentID] = pages
	}
	if _, dup := pages[asset.PageNumber]; dup {
		r.mu.Unlock()
		return fmt.Errorf("duplicate page %d", asset.PageNumber)
	}
	pages[asset.PageNumber] = *asset
	r.mu.Unlock()

	r.events.end(asset.PageNumber)
	return nil
}

func (r *fakeAssetRepo) ListByDocument(_ context.Context, documentID uuid.UUID) ([]domain.PageAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PageAsset, 0, len(r.records[documentID]))
	for _, a := range r.records[documentID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out, nil
}

func (r *fakeAssetRepo) pageNumbers(documentID uuid.UUID) []int {
	assets, _ := r.ListByDocument(context.Background(), documentID)
	nums := make([]int, 0, len(assets))
	for _, a := range assets {
		nums = append(nums, a.PageNumber)
	}
	return nums
}
