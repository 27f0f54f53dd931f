package model

// Song is the root of the data model: musical timing constants plus the
// ordered list of Tracks that make up the signal graph.
type Song struct {
	Name string `json:"name"`

	BPM        float64 `json:"bpm" validate:"gt=0"`
	LPB        int     `json:"lpb" validate:"gte=1"`
	SampleRate int     `json:"sampleRate" validate:"gt=0"`

	Tracks []Track `json:"tracks,omitempty"`

	LoopStart int `json:"loopStart"`
	LoopEnd   int `json:"loopEnd"`
	LoopOn    bool `json:"loopOn"`
}

// New returns a Song with the master track (track 0) already present, since
// every Song has at least a mixdown bus.
func New(name string, bpm float64, lpb, sampleRate int) *Song {
	return &Song{
		Name:       name,
		BPM:        bpm,
		LPB:        lpb,
		SampleRate: sampleRate,
		Tracks:     []Track{*NewTrack("master")},
	}
}

// Clone returns a deep-enough copy of the Song for the command thread to
// swap in as a new version without the audio thread observing a partial
// edit: the Song structure stays immutable for the duration of a block.
func (s *Song) Clone() *Song {
	clone := *s
	clone.Tracks = make([]Track, len(s.Tracks))
	for i, t := range s.Tracks {
		ct := t
		ct.Modules = append([]Module(nil), t.Modules...)
		for j := range ct.Modules {
			ct.Modules[j].AudioInputs = append([]AudioInput(nil), t.Modules[j].AudioInputs...)
			ct.Modules[j].State = append([]byte(nil), t.Modules[j].State...)
		}
		ct.Lanes = make([]Lane, len(t.Lanes))
		for j, l := range t.Lanes {
			ct.Lanes[j].Items = make(map[int]LaneItem, len(l.Items))
			for k, v := range l.Items {
				ct.Lanes[j].Items[k] = v
			}
		}
		ct.AutomationParams = append([]AutomationBinding(nil), t.AutomationParams...)
		clone.Tracks[i] = ct
	}
	return &clone
}
