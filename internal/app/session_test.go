package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antinea2359/app-tarot/internal/app"
	"github.com/antinea2359/app-tarot/internal/domain"
)

type mockOracle struct {
	reading    domain.Reading
	readingErr error
	image      domain.ImageArtifact
	imageErr   error
	edited     domain.ImageArtifact
	editErr    error

	// gate, when set, blocks every call until it is closed.
	gate chan struct{}

	readingCalls atomic.Int32
	imageCalls   atomic.Int32
	editCalls    atomic.Int32
	lastEdit     atomic.Value
}

func (m *mockOracle) wait(ctx context.Context) {
	if m.gate == nil {
		return
	}
	select {
	case <-m.gate:
	case <-ctx.Done():
	}
}

func (m *mockOracle) GenerateReading(ctx context.Context) (domain.Reading, error) {
	m.readingCalls.Add(1)
	m.wait(ctx)
	return m.reading, m.readingErr
}

func (m *mockOracle) GenerateImage(ctx context.Context, _, _ string) (domain.ImageArtifact, error) {
	m.imageCalls.Add(1)
	m.wait(ctx)
	return m.image, m.imageErr
}

func (m *mockOracle) EditImage(ctx context.Context, _ domain.ImageArtifact, instruction string) (domain.ImageArtifact, error) {
	m.editCalls.Add(1)
	m.lastEdit.Store(instruction)
	m.wait(ctx)
	return m.edited, m.editErr
}

func soleil() domain.Reading {
	return domain.Reading{
		Name:              "Le Soleil",
		VisualDescription: "Un enfant rayonnant sous un soleil d'or.",
		Meaning:           "Succès et vitalité.",
		SpiritualMessage:  "Ta lumière éclaire le chemin.",
	}
}

func pngImage(payload string) domain.ImageArtifact {
	return domain.ImageArtifact{MIMEType: "image/png", Data: []byte(payload)}
}

func newSession(t *testing.T, o *mockOracle) *app.Session {
	t.Helper()
	return app.NewSession(context.Background(), "test", o, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not settle")
	}
}

// drawn runs a successful draw so the session ends up viewing a card.
func drawn(t *testing.T, o *mockOracle) *app.Session {
	t.Helper()
	s := newSession(t, o)
	done, err := s.RequestDraw()
	require.NoError(t, err)
	waitDone(t, done)
	require.Equal(t, domain.ModeViewing, s.View().Mode)
	return s
}

func TestRequestDraw_Success(t *testing.T) {
	o := &mockOracle{reading: soleil(), image: pngImage("card")}
	s := newSession(t, o)

	done, err := s.RequestDraw()
	require.NoError(t, err)
	waitDone(t, done)

	v := s.View()
	assert.Equal(t, domain.ModeViewing, v.Mode)
	require.NotNil(t, v.Reading)
	assert.Equal(t, "Le Soleil", v.Reading.Name)
	assert.NotEmpty(t, v.Image)
	assert.Empty(t, v.Error)
	assert.False(t, v.IsLoading)
}

func TestRequestDraw_ImageNeverPrecedesReading(t *testing.T) {
	o := &mockOracle{reading: soleil(), image: pngImage("card")}
	s := newSession(t, o)
	views, cancel := s.Subscribe()
	defer cancel()

	done, err := s.RequestDraw()
	require.NoError(t, err)
	waitDone(t, done)

	var modes []domain.Mode
	for {
		select {
		case v := <-views:
			if v.Image != "" {
				require.NotNil(t, v.Reading, "image published without a reading")
			}
			modes = append(modes, v.Mode)
			if v.Mode == domain.ModeViewing {
				assert.Equal(t, []domain.Mode{domain.ModeDrawing, domain.ModeDrawing, domain.ModeViewing}, modes)
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("never reached viewing, saw %v", modes)
		}
	}
}

func TestRequestDraw_ReadingFailure(t *testing.T) {
	o := &mockOracle{readingErr: domain.ErrEmptyResponse}
	s := newSession(t, o)

	done, err := s.RequestDraw()
	require.NoError(t, err)
	waitDone(t, done)

	v := s.View()
	assert.Equal(t, domain.ModeIdle, v.Mode)
	assert.False(t, v.IsLoading)
	assert.Equal(t, "Réponse vide de l'oracle.", v.Error)
	assert.Nil(t, v.Reading)
	assert.Empty(t, v.Image)
	assert.Zero(t, o.imageCalls.Load())
}

func TestRequestDraw_ImageFailureKeepsReading(t *testing.T) {
	o := &mockOracle{reading: soleil(), imageErr: domain.ErrNoImageProduced}
	s := newSession(t, o)

	done, err := s.RequestDraw()
	require.NoError(t, err)
	waitDone(t, done)

	v := s.View()
	assert.Equal(t, domain.ModeIdle, v.Mode)
	assert.False(t, v.IsLoading)
	assert.Equal(t, "Impossible de générer l'image de la carte.", v.Error)
	require.NotNil(t, v.Reading)
	assert.Equal(t, "Le Soleil", v.Reading.Name)
	assert.Empty(t, v.Image)
	assert.True(t, v.CanRetryImage)
}

func TestRequestDraw_TransportErrorMessagePropagates(t *testing.T) {
	cause := errors.New("connection reset by peer")
	o := &mockOracle{readingErr: domain.Transport(cause)}
	s := newSession(t, o)

	done, err := s.RequestDraw()
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, "connection reset by peer", s.View().Error)
}

func TestRequestDraw_ClearsPreviousError(t *testing.T) {
	o := &mockOracle{readingErr: domain.ErrCredentialMissing}
	s := newSession(t, o)

	done, _ := s.RequestDraw()
	waitDone(t, done)
	require.NotEmpty(t, s.View().Error)

	o.readingErr = nil
	o.reading = soleil()
	o.image = pngImage("card")
	o.gate = make(chan struct{})

	done, err := s.RequestDraw()
	require.NoError(t, err)
	v := s.View()
	assert.Empty(t, v.Error)
	assert.Nil(t, v.Reading)
	assert.Empty(t, v.Image)
	assert.True(t, v.IsLoading)

	close(o.gate)
	waitDone(t, done)
	assert.Equal(t, domain.ModeViewing, s.View().Mode)
}

func TestRequestDraw_WhileInFlightIsNoop(t *testing.T) {
	o := &mockOracle{reading: soleil(), image: pngImage("card"), gate: make(chan struct{})}
	s := newSession(t, o)

	done, err := s.RequestDraw()
	require.NoError(t, err)
	before := s.View()

	_, err = s.RequestDraw()
	assert.ErrorIs(t, err, domain.ErrBusy)
	_, err = s.RequestEdit("sepia")
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, before, s.View())

	close(o.gate)
	waitDone(t, done)
	assert.Equal(t, domain.ModeViewing, s.View().Mode)
	assert.EqualValues(t, 1, o.readingCalls.Load())
}

func TestRequestEdit_Success(t *testing.T) {
	o := &mockOracle{reading: soleil(), image: pngImage("card"), edited: pngImage("cyber")}
	s := drawn(t, o)
	s.SetEditPrompt("cyberpunk style")

	done, err := s.RequestEdit("cyberpunk style")
	require.NoError(t, err)
	waitDone(t, done)

	v := s.View()
	img, ok := v.Artifact()
	require.True(t, ok)
	assert.Equal(t, []byte("cyber"), img.Data)
	assert.Equal(t, "", v.EditPrompt)
	assert.False(t, v.IsEditingImage)
	assert.Equal(t, domain.ModeViewing, v.Mode)
	assert.Equal(t, "cyberpunk style", o.lastEdit.Load())
}

func TestRequestEdit_FailureKeepsImage(t *testing.T) {
	o := &mockOracle{
		reading: soleil(),
		image:   pngImage("card"),
		editErr: domain.NewError(domain.KindNoImageProduced, "Impossible de modifier l'image.", nil),
	}
	s := drawn(t, o)
	s.SetEditPrompt("aquarelle")

	done, err := s.RequestEdit("aquarelle")
	require.NoError(t, err)
	waitDone(t, done)

	v := s.View()
	img, _ := v.Artifact()
	assert.Equal(t, []byte("card"), img.Data)
	assert.Equal(t, "Impossible de modifier l'image: Impossible de modifier l'image.", v.Error)
	assert.Equal(t, "aquarelle", v.EditPrompt)
	assert.False(t, v.IsEditingImage)
}

func TestSetEditPrompt_DoesNotPushToSubscribers(t *testing.T) {
	s := drawn(t, &mockOracle{reading: soleil(), image: pngImage("card")})
	views, cancel := s.Subscribe()
	defer cancel()

	v := s.SetEditPrompt("aquarelle")
	assert.Equal(t, "aquarelle", v.EditPrompt)
	assert.Equal(t, "aquarelle", s.View().EditPrompt)

	select {
	case got := <-views:
		t.Fatalf("unexpected push after saving the draft: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRequestEdit_BlankPromptNeverCallsOracle(t *testing.T) {
	o := &mockOracle{reading: soleil(), image: pngImage("card")}
	s := drawn(t, o)
	before := s.View()

	for _, p := range []string{"", "   ", "\t\n"} {
		_, err := s.RequestEdit(p)
		assert.ErrorIs(t, err, domain.ErrEmptyPrompt)
	}
	assert.Zero(t, o.editCalls.Load())
	assert.Equal(t, before, s.View())
}

func TestRequestEdit_WithoutImage(t *testing.T) {
	o := &mockOracle{}
	s := newSession(t, o)

	_, err := s.RequestEdit("sepia")
	assert.ErrorIs(t, err, domain.ErrNoImage)
	assert.Zero(t, o.editCalls.Load())
}

func TestRequestEdit_SecondEditWhileInFlightIsNoop(t *testing.T) {
	o := &mockOracle{reading: soleil(), image: pngImage("card"), edited: pngImage("first")}
	s := drawn(t, o)
	o.gate = make(chan struct{})

	done, err := s.RequestEdit("first")
	require.NoError(t, err)
	assert.True(t, s.View().IsEditingImage)

	_, err = s.RequestEdit("second")
	assert.ErrorIs(t, err, domain.ErrBusy)
	_, err = s.RequestDraw()
	assert.ErrorIs(t, err, domain.ErrBusy)

	close(o.gate)
	waitDone(t, done)
	img, _ := s.View().Artifact()
	assert.Equal(t, []byte("first"), img.Data)
	assert.EqualValues(t, 1, o.editCalls.Load())
}

func TestRetryImage_AfterPartialFailure(t *testing.T) {
	o := &mockOracle{reading: soleil(), imageErr: domain.ErrNoImageProduced}
	s := newSession(t, o)
	done, _ := s.RequestDraw()
	waitDone(t, done)

	o.imageErr = nil
	o.image = pngImage("retry")
	done, err := s.RetryImage()
	require.NoError(t, err)
	waitDone(t, done)

	v := s.View()
	assert.Equal(t, domain.ModeViewing, v.Mode)
	assert.Empty(t, v.Error)
	assert.EqualValues(t, 1, o.readingCalls.Load())
	assert.EqualValues(t, 2, o.imageCalls.Load())
}

func TestRetryImage_WithoutReading(t *testing.T) {
	s := newSession(t, &mockOracle{})
	_, err := s.RetryImage()
	assert.ErrorIs(t, err, domain.ErrNoReading)
}

func TestSubscribe_CloseReleasesSubscribers(t *testing.T) {
	s := newSession(t, &mockOracle{})
	views, cancel := s.Subscribe()
	defer cancel()

	s.Close()
	_, ok := <-views
	assert.False(t, ok)

	late, _ := s.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
