package record

// Outcome is what a single top-level dispatch produced.
type Outcome string

const (
	Contributed Outcome = "contributed"
	Pruned      Outcome = "pruned"
	NotFound    Outcome = "not_found"
	Failed      Outcome = "error"
)

// Dispatch is the minimal info we keep per top-level strategy dispatch.
type Dispatch struct {
	Identifier string
	Version    string
	FlavorKey  string
	Outcome    Outcome
	// Nested marks a strategy resolved through another strategy rather than
	// dispatched at the top level.
	Nested bool
}

// Recorder captures dispatch outcomes during one evaluation, in dispatch order.
type Recorder struct {
	seen []Dispatch
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(d Dispatch) { r.seen = append(r.seen, d) }

// Seen returns a copy of the recorded dispatches.
func (r *Recorder) Seen() []Dispatch {
	out := make([]Dispatch, len(r.seen))
	copy(out, r.seen)
	return out
}

// Count returns how many dispatches ended with outcome o.
func (r *Recorder) Count(o Outcome) int {
	n := 0
	for _, d := range r.seen {
		if d.Outcome == o {
			n++
		}
	}
	return n
}
