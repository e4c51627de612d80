package texture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"maps"
	"slices"
	"sync"

	"github.com/MobRulesGames/mapasset/assets"
	"github.com/MobRulesGames/mapasset/logging"
	"github.com/MobRulesGames/memory"
)

type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case NotLoaded:
		return "not-loaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

// LoadError records why one image couldn't be loaded.
type LoadError struct {
	Image assets.ImageName
	URL   string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading image %q from %q: %v", e.Image, e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrReleased is the cause recorded for images whose manager was released.
var ErrReleased = errors.New("texture manager released")

// A slot holds one declared image. Everything but desc and done is
// guarded by the owning Manager's mutex; once done is closed the slot never
// changes again (except by Release).
type slot struct {
	desc  assets.ImageDescriptor
	state LoadState
	img   image.Image
	err   *LoadError
	dx    int
	dy    int

	// Pooled backing store for img; returned to the pool by Release.
	pix []byte

	// Closed when the slot settles.
	done chan struct{}
}

type loadRequest struct {
	data *slot
}

const defaultWorkers = 4

type Option func(*Manager)

// Sets how many images may be fetched and decoded at once.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

type Manager struct {
	// One slot per declared image, never added to or removed from after
	// NewManager.
	registry map[assets.ImageName]*slot
	order    []assets.ImageName

	// If an image is in the process of being loaded, there will be a
	// corresponding entry in 'inFlight'.
	inFlight map[assets.ImageName]bool

	fetcher  Fetcher
	workers  int
	requests chan loadRequest
	started  sync.Once
	released bool

	// Lifetime of the worker goroutines; cancelled by Release.
	ctx    context.Context
	cancel context.CancelFunc

	mutex sync.RWMutex
}

func NewManager(images []assets.ImageDescriptor, fetcher Fetcher, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		registry: make(map[assets.ImageName]*slot, len(images)),
		inFlight: make(map[assets.ImageName]bool),
		fetcher:  fetcher,
		workers:  defaultWorkers,
		requests: make(chan loadRequest, 10),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, desc := range images {
		if _, dup := m.registry[desc.Name]; dup {
			logging.Warn("ignoring duplicate image", "image", desc.Name, "url", desc.URL)
			continue
		}
		m.registry[desc.Name] = &slot{
			desc:  desc,
			state: NotLoaded,
			done:  make(chan struct{}),
		}
		m.order = append(m.order, desc.Name)
	}
	return m
}

func (m *Manager) start() {
	m.started.Do(func() {
		pipe := make(chan loadRequest, 10)
		// We want to be able to handle any number of incoming load requests, so
		// we have one go-routine collect them all and send them along pipe any
		// time a worker is ready to receive one.
		go func() {
			defer close(pipe)
			var rs []loadRequest
			var send chan loadRequest
			var hold loadRequest
			for {
				select {
				case r := <-m.requests:
					rs = append(rs, r)
				case send <- hold:
					rs = rs[1:]
				case <-m.ctx.Done():
					return
				}
				if len(rs) > 0 {
					send = pipe
					hold = rs[0]
				} else {
					// A nil send channel drops out of the select above until
					// there is something to hand off.
					rs = nil
					send = nil
				}
			}
		}()
		for i := 0; i < m.workers; i++ {
			go m.loadRoutine(pipe)
		}
	})
}

// Each worker fetches and decodes one image at a time, so at most 'workers'
// images are being held in memory in decoded-but-not-copied form.
func (m *Manager) loadRoutine(pipe chan loadRequest) {
	for req := range pipe {
		m.handleLoadRequest(req)
	}
}

func (m *Manager) handleLoadRequest(req loadRequest) {
	desc := req.data.desc
	logging.Trace("texture manager: handleLoadRequest", "image", desc.Name, "url", desc.URL)

	rc, err := m.fetcher.Fetch(m.ctx, desc.URL)
	if err != nil {
		m.signalLoad(req.data, nil, nil, err)
		return
	}
	img, pix, err := decode(rc)
	rc.Close()
	m.signalLoad(req.data, img, pix, err)
}

// Issues one load for every image that hasn't been issued yet, then waits
// for every image to settle. Returns true iff every image loaded. Failures
// don't stop the other loads; each is logged, and the first one (in
// declaration order) is logged as an error.
//
// ctx only bounds the wait. Loads that are still running when it is done
// carry on and settle later.
func (m *Manager) LoadAll(ctx context.Context) bool {
	m.mutex.Lock()
	if m.released {
		m.mutex.Unlock()
		logging.Error("LoadAll called on a released texture manager")
		return false
	}
	var issued []*slot
	for _, name := range m.order {
		data := m.registry[name]
		if data.state != NotLoaded {
			continue
		}
		data.state = Loading
		m.inFlight[name] = true
		issued = append(issued, data)
	}
	m.mutex.Unlock()

	if len(issued) > 0 {
		m.start()
	}
	for _, data := range issued {
		logging.Trace("texture manager: sending load request", "image", data.desc.Name)
		select {
		case m.requests <- loadRequest{data: data}:
		case <-m.ctx.Done():
		}
	}

	failures, err := m.wait(ctx, m.order)
	if err != nil {
		logging.Error("stopped waiting for images", "err", err)
		return false
	}
	for i, failure := range failures {
		if i == 0 {
			logging.Error("image load failed", "image", failure.Image, "url", failure.URL, "err", failure.Err)
			continue
		}
		logging.Warn("image load failed", "image", failure.Image, "url", failure.URL, "err", failure.Err)
	}
	return len(failures) == 0
}

// Waits for the named images to settle. Nothing is issued; waiting on an
// image that LoadAll never issued blocks until ctx is done. Returns the
// images' load errors joined, if any.
func (m *Manager) BlockUntilLoaded(ctx context.Context, names ...assets.ImageName) error {
	logging.Trace("block until loaded called", "names", names)
	failures, err := m.wait(ctx, names)
	if err != nil {
		return err
	}
	errs := make([]error, len(failures))
	for i, failure := range failures {
		errs[i] = failure
	}
	return errors.Join(errs...)
}

func (m *Manager) wait(ctx context.Context, names []assets.ImageName) ([]*LoadError, error) {
	waiting := make([]*slot, 0, len(names))
	for _, name := range names {
		data, ok := m.registry[name]
		if !ok {
			return nil, &assets.LookupError{Kind: assets.UnknownImage, Key: string(name)}
		}
		waiting = append(waiting, data)
	}

	for _, data := range waiting {
		select {
		case <-data.done:
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for image %q: %w", data.desc.Name, ctx.Err())
		}
	}
	logging.Trace("done waiting", "times-waited", len(waiting))

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var failures []*LoadError
	for _, data := range waiting {
		if data.state == Failed {
			failures = append(failures, data.err)
		}
	}
	return failures, nil
}

// Returns the loaded image, or false if name is unknown, hasn't finished
// loading, or failed to load.
func (m *Manager) GetImage(name assets.ImageName) (image.Image, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	data, ok := m.registry[name]
	if !ok || data.state != Loaded {
		return nil, false
	}
	return data.img, true
}

func (m *Manager) State(name assets.ImageName) (LoadState, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	data, ok := m.registry[name]
	if !ok {
		return NotLoaded, false
	}
	return data.state, true
}

// Returns the load error recorded for name, if it failed.
func (m *Manager) Err(name assets.ImageName) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	data, ok := m.registry[name]
	if !ok || data.err == nil {
		return nil
	}
	return data.err
}

// Returns the size of a loaded image.
func (m *Manager) Size(name assets.ImageName) (dx, dy int, ok bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	data, found := m.registry[name]
	if !found || data.state != Loaded {
		return 0, 0, false
	}
	return data.dx, data.dy, true
}

// Returns a sorted slice of the images that are currently loading.
func (m *Manager) InFlight() []assets.ImageName {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return slices.Sorted(maps.Keys(m.inFlight))
}

// Stops the workers and returns every pixel buffer to the pool. Images
// handed out by GetImage must not be used afterwards; every slot that
// hadn't failed is marked Failed with ErrReleased.
func (m *Manager) Release() {
	m.cancel()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.released {
		return
	}
	m.released = true

	for _, name := range m.order {
		data := m.registry[name]
		switch data.state {
		case Failed:
			continue
		case Loaded:
			memory.FreeBlock(data.pix)
			data.pix = nil
			data.img = nil
		}
		wasSettled := data.state == Loaded
		data.state = Failed
		data.err = &LoadError{Image: name, URL: data.desc.URL, Err: ErrReleased}
		delete(m.inFlight, name)
		if !wasSettled {
			close(data.done)
		}
	}
}

func (m *Manager) signalLoad(data *slot, img image.Image, pix []byte, err error) {
	logging.Trace("signalling load", "image", data.desc.Name, "success", err == nil)
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if data.state != Loading {
		// Released while this load was running.
		if pix != nil {
			memory.FreeBlock(pix)
		}
		return
	}

	delete(m.inFlight, data.desc.Name)
	if err != nil {
		data.state = Failed
		data.err = &LoadError{Image: data.desc.Name, URL: data.desc.URL, Err: err}
	} else {
		data.state = Loaded
		data.img = img
		data.pix = pix
		data.dx = img.Bounds().Dx()
		data.dy = img.Bounds().Dy()
	}
	close(data.done)
}
