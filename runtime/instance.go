// Package runtime implements Runtime State, Script Instance, and the
// Scheduler interface (spec §4.8, §6): the ambient per-execution context,
// per-script identity and checkpoint generation counter, and the
// abstraction a host must implement to drive suspension/resumption.
package runtime

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// InstanceID is a script instance's 128-bit identity. Its wire form is
// the two big-endian uint64 halves of the UUID's 16 raw bytes, matching
// §6's "two longs on the wire (most-significant first)".
type InstanceID uuid.UUID

func NewInstanceID() InstanceID { return InstanceID(uuid.New()) }

func (id InstanceID) String() string { return uuid.UUID(id).String() }

// MarshalWire returns the two-uint64 wire form.
func (id InstanceID) MarshalWire() (hi, lo uint64) {
	hi = binary.BigEndian.Uint64(id[0:8])
	lo = binary.BigEndian.Uint64(id[8:16])
	return
}

// InstanceIDFromWire reconstructs an InstanceID from its two-uint64 wire
// form.
func InstanceIDFromWire(hi, lo uint64) InstanceID {
	var id InstanceID
	binary.BigEndian.PutUint64(id[0:8], hi)
	binary.BigEndian.PutUint64(id[8:16], lo)
	return id
}

// ScriptInstance is a running script's identity plus its monotonic
// checkpoint generation counter (spec: "instance_id (128-bit unique),
// checkpoint_id (monotonic counter incremented before each checkpoint)").
type ScriptInstance struct {
	id          InstanceID
	checkpointID uint64 // accessed via atomic; incremented before each checkpoint
}

func NewScriptInstance() *ScriptInstance {
	return &ScriptInstance{id: NewInstanceID()}
}

func RestoreScriptInstance(id InstanceID, checkpointID uint64) *ScriptInstance {
	return &ScriptInstance{id: id, checkpointID: checkpointID}
}

func (s *ScriptInstance) ID() InstanceID { return s.id }

// NextCheckpointID increments and returns the new checkpoint generation,
// per spec's "incremented before each checkpoint".
func (s *ScriptInstance) NextCheckpointID() uint64 {
	return atomic.AddUint64(&s.checkpointID, 1)
}

func (s *ScriptInstance) CheckpointID() uint64 {
	return atomic.LoadUint64(&s.checkpointID)
}
