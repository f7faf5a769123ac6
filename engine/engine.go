// Package engine ties together the cont trampoline, the async task
// variants, the codec/registry pair, and a reference runtime.Scheduler
// implementation into the top-level entrypoint a host process drives.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/quilllang/quill/async"
	"github.com/quilllang/quill/codec"
	"github.com/quilllang/quill/cont"
	"github.com/quilllang/quill/registry"
	"github.com/quilllang/quill/runtime"
	"github.com/quilllang/quill/types"
)

// Engine is the process-wide object a host constructs once: it owns the
// type tag registry, the scheduler, and the cont.Runner that drives every
// script instance's suspend/resume cycle.
type Engine struct {
	TypeTags *registry.TypeTagRegistry
	Runner   *cont.Runner
	Log      *slog.Logger
}

// New wires an Engine from its three collaborators. resolver re-resolves
// a restored or fresh chain's method handles into live code — it is
// supplied by the embedding compiler/runtime, which is the one piece this
// package deliberately has no notion of (spec §1's scope boundary).
func New(typeTags *registry.TypeTagRegistry, scheduler runtime.Scheduler, resolver cont.Resolver, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		TypeTags: typeTags,
		Log:      log,
		Runner: &cont.Runner{
			Scheduler: scheduler,
			Resolver:  resolver,
			TypeTags:  typeTags,
		},
	}
}

// Launch starts a freshly suspended chain for a new ScriptInstance,
// invoking onComplete once the chain runs to exhaustion (possibly after
// several rounds of suspend/resume spanning real time).
func (e *Engine) Launch(instance *runtime.ScriptInstance, top *cont.Frame, onComplete cont.CompletionFunc) error {
	e.Log.Info("launching script instance", "instance_id", instance.ID().String())
	return e.Runner.Start(instance, top, e.wrapCompletion(instance, onComplete))
}

// Resume restores a previously checkpointed (globals, chain) pair and
// re-enters the trampoline as though the suspending call had just
// returned, per spec §6's restore contract.
func (e *Engine) Resume(bytes []byte, onComplete cont.CompletionFunc) (*runtime.ScriptInstance, error) {
	pair, err := e.decodeCheckpoint(bytes)
	if err != nil {
		return nil, err
	}
	top, ok := pair.chain.(*cont.Frame)
	if !ok {
		return nil, fmt.Errorf("engine: checkpoint chain has unexpected type %T", pair.chain)
	}
	instance := top.ScriptInstance
	if instance == nil {
		return nil, fmt.Errorf("engine: checkpointed chain is missing its script instance")
	}
	top.ScriptInstance = nil

	e.Log.Info("resuming script instance", "instance_id", instance.ID().String(),
		"checkpoint_id", instance.CheckpointID())

	// A saved chain carries no async task; the checkpoint call returns
	// null on restore, so schedule a task that completes with null.
	top.AsyncTask = async.NewBlocking("", 0, types.NullValue, func(types.Value) (types.Value, error) {
		return types.NullValue, nil
	}, runtime.Snapshot{Globals: pair.globals})

	return instance, e.Runner.Start(instance, top, e.wrapCompletion(instance, onComplete))
}

type decodedCheckpoint struct {
	globals *types.Map
	chain   types.Value
}

func (e *Engine) decodeCheckpoint(bytes []byte) (*decodedCheckpoint, error) {
	r := codec.NewReader(bytes, e.TypeTags)
	v, err := r.Decode()
	if err != nil {
		return nil, fmt.Errorf("engine: decoding checkpoint: %w", err)
	}
	list, ok := v.(*types.List)
	if !ok || list.Len() != 2 {
		return nil, fmt.Errorf("engine: checkpoint root is not a 2-element pair")
	}
	globals, ok := list.Get(0).(*types.Map)
	if !ok {
		return nil, fmt.Errorf("engine: checkpoint globals slot is not a map")
	}
	return &decodedCheckpoint{globals: globals, chain: list.Get(1)}, nil
}

func (e *Engine) wrapCompletion(instance *runtime.ScriptInstance, onComplete cont.CompletionFunc) cont.CompletionFunc {
	return func(result types.Value, err error) {
		if err != nil {
			e.Log.Error("script instance terminated with error", "instance_id", instance.ID().String(), "error", err)
		} else {
			e.Log.Info("script instance completed", "instance_id", instance.ID().String())
		}
		if onComplete != nil {
			onComplete(result, err)
		}
	}
}
