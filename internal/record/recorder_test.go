package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Record(Dispatch{Identifier: "msg", Version: "1.0", FlavorKey: "platform:generic", Outcome: Contributed})
	r.Record(Dispatch{Identifier: "frame", Version: "1.0", FlavorKey: "platform:generic", Outcome: Pruned})
	r.Record(Dispatch{Identifier: "gone", Version: "9.9", FlavorKey: "platform:generic", Outcome: NotFound})

	r.Record(Dispatch{Identifier: "frame", Version: "1.0", FlavorKey: "platform:generic", Outcome: Contributed, Nested: true})
	r.Record(Dispatch{Identifier: "broken", Version: "1.0", FlavorKey: "platform:generic", Outcome: Failed})

	seen := r.Seen()
	assert.Len(t, seen, 5)
	assert.True(t, seen[3].Nested)
	assert.Equal(t, 2, r.Count(Contributed))
	assert.Equal(t, 1, r.Count(Failed))
	assert.Equal(t, "msg", seen[0].Identifier)
	assert.Equal(t, 1, r.Count(Pruned))
	assert.Equal(t, 0, NewRecorder().Count(Contributed))

	seen[0].Identifier = "mutated"
	assert.Equal(t, "msg", r.Seen()[0].Identifier)
}
