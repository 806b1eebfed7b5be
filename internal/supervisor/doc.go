// Package supervisor owns the set of running camera pipelines.
//
// The Supervisor is populated once with StartAll and drained once with
// StopAll:
//   - StartAll subscribes to each pipeline's bus before setting it playing
//   - every pipeline bus is forwarded into a single fan-in channel (Events)
//   - StopAll stops every pipeline best-effort, exactly once
//   - state transitions are reported through OnStateChange and the event bus
//
// Example usage:
//
//	sup := supervisor.New(&supervisor.Options{
//	    OnStateChange: func(id string, old, new pipeline.State, err error) {
//	        log.Printf("Pipeline %s: %s -> %s", id, old, new)
//	    },
//	})
//	if err := sup.StartAll(pipes); err != nil {
//	    ...
//	}
//	defer sup.StopAll()
//	for ev := range sup.Events() {
//	    ...
//	}
package supervisor
