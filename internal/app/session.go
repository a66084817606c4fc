package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/antinea2359/app-tarot/internal/domain"
	"github.com/antinea2359/app-tarot/internal/ports"
)

const subscriberBuffer = 8

// Session owns the state of one browser tab: the drawn card, its image and the
// draft edit prompt. At most one draw or edit runs at a time; a request made
// while one is in flight is rejected without touching the state.
type Session struct {
	id     string
	oracle ports.Oracle
	logger *slog.Logger

	// root outlives the HTTP request that triggered a call.
	root context.Context

	mu         sync.Mutex
	state      domain.State
	editPrompt string
	subs       map[chan domain.View]struct{}
	closed     bool
}

func NewSession(ctx context.Context, id string, oracle ports.Oracle, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:     id,
		oracle: oracle,
		logger: logger.With("session_id", id),
		root:   ctx,
		state:  domain.Idle{},
		subs:   make(map[chan domain.View]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// View returns a snapshot of the current state.
func (s *Session) View() domain.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Project(s.state, s.editPrompt)
}

// SetEditPrompt stores the user's draft edit instruction. It is not pushed to
// subscribers: the browser that typed it already shows it.
func (s *Session) SetEditPrompt(text string) domain.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editPrompt = text
	return domain.Project(s.state, s.editPrompt)
}

// RequestDraw starts a new draw: reading first, then the image seeded by it.
// The returned channel closes once the sequence has settled.
func (s *Session) RequestDraw() (<-chan struct{}, error) {
	s.mu.Lock()
	if busy(s.state) {
		s.mu.Unlock()
		return nil, domain.ErrBusy
	}
	s.state = domain.Drawing{}
	s.publishLocked()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runDraw()
	}()
	return done, nil
}

// RetryImage re-runs only the image step for a reading left behind by a
// failed draw.
func (s *Session) RetryImage() (<-chan struct{}, error) {
	s.mu.Lock()
	if busy(s.state) {
		s.mu.Unlock()
		return nil, domain.ErrBusy
	}
	idle, ok := s.state.(domain.Idle)
	if !ok || idle.Reading == nil {
		s.mu.Unlock()
		return nil, domain.ErrNoReading
	}
	reading := *idle.Reading
	s.state = domain.Drawing{Reading: &reading}
	s.publishLocked()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runImage(reading)
	}()
	return done, nil
}

// RequestEdit applies prompt to the current image.
func (s *Session) RequestEdit(prompt string) (<-chan struct{}, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.ErrEmptyPrompt
	}

	s.mu.Lock()
	var viewing domain.Viewing
	switch st := s.state.(type) {
	case domain.Viewing:
		viewing = st
	case domain.Drawing, domain.EditingImage:
		s.mu.Unlock()
		return nil, domain.ErrBusy
	default:
		s.mu.Unlock()
		return nil, domain.ErrNoImage
	}
	s.state = domain.EditingImage{
		Reading:       viewing.Reading,
		Image:         viewing.Image,
		PendingPrompt: prompt,
		Err:           viewing.Err,
	}
	s.publishLocked()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runEdit(viewing, prompt)
	}()
	return done, nil
}

func (s *Session) runDraw() {
	ctx := s.root
	start := time.Now()

	reading, err := s.oracle.GenerateReading(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "draw failed", "step", "reading", "kind", domain.KindOf(err), "error", err)
		s.transition(domain.Idle{Err: domain.Message(err)})
		return
	}
	s.transition(domain.Drawing{Reading: &reading})
	s.logger.InfoContext(ctx, "reading drawn", "card", reading.Name, "latency_ms", time.Since(start).Milliseconds())

	s.runImage(reading)
}

func (s *Session) runImage(reading domain.Reading) {
	ctx := s.root
	start := time.Now()

	img, err := s.oracle.GenerateImage(ctx, reading.VisualDescription, reading.Name)
	if err != nil {
		s.logger.WarnContext(ctx, "draw failed", "step", "image", "kind", domain.KindOf(err), "error", err)
		s.transition(domain.Idle{Reading: &reading, Err: domain.Message(err)})
		return
	}
	s.transition(domain.Viewing{Reading: reading, Image: img})
	s.logger.InfoContext(ctx, "card illustrated", "card", reading.Name, "mime", img.ContentType(), "bytes", len(img.Data),
		"latency_ms", time.Since(start).Milliseconds())
}

func (s *Session) runEdit(prev domain.Viewing, prompt string) {
	ctx := s.root
	start := time.Now()

	img, err := s.oracle.EditImage(ctx, prev.Image, prompt)

	s.mu.Lock()
	if err != nil {
		s.logger.WarnContext(ctx, "edit failed", "kind", domain.KindOf(err), "error", err)
		s.state = domain.Viewing{
			Reading: prev.Reading,
			Image:   prev.Image,
			Err:     domain.EditFailurePrefix + domain.Message(err),
		}
	} else {
		s.state = domain.Viewing{Reading: prev.Reading, Image: img, Err: prev.Err}
		s.editPrompt = ""
		s.logger.InfoContext(ctx, "image edited", "bytes", len(img.Data), "latency_ms", time.Since(start).Milliseconds())
	}
	s.publishLocked()
	s.mu.Unlock()
}

func (s *Session) transition(next domain.State) {
	s.mu.Lock()
	s.state = next
	s.publishLocked()
	s.mu.Unlock()
}

// Subscribe streams a View after every transition until cancel is called or
// the session is closed. Slow subscribers miss intermediate views but always
// receive the latest one.
func (s *Session) Subscribe() (<-chan domain.View, func()) {
	ch := make(chan domain.View, subscriberBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// Close releases all subscribers. An in-flight call still completes.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}

// publishLocked projects the current state and fans it out. Callers hold mu.
func (s *Session) publishLocked() domain.View {
	v := domain.Project(s.state, s.editPrompt)
	for ch := range s.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
	return v
}

func busy(st domain.State) bool {
	switch st.(type) {
	case domain.Drawing, domain.EditingImage:
		return true
	}
	return false
}
