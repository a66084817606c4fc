package domain

// Mode is the coarse phase exposed to the UI.
type Mode string

const (
	ModeIdle    Mode = "idle"
	ModeDrawing Mode = "drawing"
	ModeViewing Mode = "viewing"
	ModeEditing Mode = "editing"
)

// State is one of Idle, Drawing, Viewing or EditingImage. The set is closed:
// an image can only be held alongside a reading.
type State interface {
	Mode() Mode
	isState()
}

// Idle means nothing is in flight. Reading is set only when a draw failed
// after the reading step succeeded.
type Idle struct {
	Reading *Reading
	Err     string
}

// Drawing means the reading/image sequence is in flight. Reading is set once
// the first step completed.
type Drawing struct {
	Reading *Reading
}

// Viewing shows a complete card.
type Viewing struct {
	Reading Reading
	Image   ImageArtifact
	Err     string
}

// EditingImage is Viewing with an edit request in flight.
type EditingImage struct {
	Reading       Reading
	Image         ImageArtifact
	PendingPrompt string
	Err           string
}

func (Idle) Mode() Mode         { return ModeIdle }
func (Drawing) Mode() Mode      { return ModeDrawing }
func (Viewing) Mode() Mode      { return ModeViewing }
func (EditingImage) Mode() Mode { return ModeEditing }

func (Idle) isState()         {}
func (Drawing) isState()      {}
func (Viewing) isState()      {}
func (EditingImage) isState() {}

// View is the flat projection rendered by the presentation layer.
type View struct {
	Mode           Mode     `json:"mode"`
	Reading        *Reading `json:"reading,omitempty"`
	Image          string   `json:"image,omitempty"`
	Error          string   `json:"error,omitempty"`
	IsLoading      bool     `json:"isLoading"`
	IsEditingImage bool     `json:"isEditingImage"`
	EditPrompt     string   `json:"editPrompt"`
	CanDraw        bool     `json:"canDraw"`
	CanEdit        bool     `json:"canEdit"`
	CanRetryImage  bool     `json:"canRetryImage"`

	artifact *ImageArtifact
}

// Artifact returns the current image, if any.
func (v View) Artifact() (ImageArtifact, bool) {
	if v.artifact == nil {
		return ImageArtifact{}, false
	}
	return *v.artifact, true
}

// Project flattens s and the draft edit prompt into a View.
func Project(s State, editPrompt string) View {
	v := View{Mode: s.Mode(), EditPrompt: editPrompt}
	switch st := s.(type) {
	case Idle:
		v.Reading = copyReading(st.Reading)
		v.Error = st.Err
		v.CanDraw = true
		v.CanRetryImage = st.Reading != nil
	case Drawing:
		v.Reading = copyReading(st.Reading)
		v.IsLoading = true
	case Viewing:
		v.Reading = copyReading(&st.Reading)
		v.setImage(st.Image)
		v.Error = st.Err
		v.CanDraw = true
		v.CanEdit = true
	case EditingImage:
		v.Reading = copyReading(&st.Reading)
		v.setImage(st.Image)
		v.Error = st.Err
		v.IsEditingImage = true
	}
	return v
}

func (v *View) setImage(a ImageArtifact) {
	v.artifact = &a
	v.Image = a.DataURI()
}

func copyReading(r *Reading) *Reading {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
