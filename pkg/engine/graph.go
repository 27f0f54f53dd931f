// Package engine implements the Engine Scheduler: the audio callback
// thread that advances transport, dispatches track processing across
// dependency levels, mixes outputs, and publishes SongState; and the
// command thread that applies UI edits to the Song under a mutex.
package engine

import (
	"fmt"

	"github.com/ticktrack/core/pkg/model"
)

// Node addresses one (track, module) pair in the dependency graph.
type Node struct {
	Track, Module int
}

// ErrCircularDependency is returned by BuildLevels when the audio-input
// graph contains a cycle (§4.6: "if processed count != node count, fail
// with 'circular dependency' and skip this block").
type ErrCircularDependency struct {
	Processed, Total int
}

func (e ErrCircularDependency) Error() string {
	return fmt.Sprintf("engine: circular dependency in audio-input graph (%d of %d nodes resolved)", e.Processed, e.Total)
}

// BuildLevels computes the topological levels of a Song's module
// dependency graph via Kahn's algorithm: nodes with in-degree 0 form level
// 0, are removed, and the process repeats. Each level's nodes may run in
// parallel; levels run sequentially.
//
// Track 0 (the master/mixdown bus, model.IsMaster) naturally lands in the
// last level it can reach zero in-degree, since any explicit AudioInput
// wiring from another track's module into it adds an incoming edge; a
// master with no such wiring has no dependencies and correctly runs in
// level 0 like any other dependency-free node (§4.6 "preserves a
// master-at-end order").
func BuildLevels(song *model.Song) ([][]Node, error) {
	inDegree := make(map[Node]int)
	dependents := make(map[Node][]Node)
	var allNodes []Node

	for trackIdx, tr := range song.Tracks {
		for modIdx := range tr.Modules {
			allNodes = append(allNodes, Node{Track: trackIdx, Module: modIdx})
		}
	}
	for _, n := range allNodes {
		inDegree[n] = 0
	}

	for trackIdx, tr := range song.Tracks {
		for modIdx, mod := range tr.Modules {
			dst := Node{Track: trackIdx, Module: modIdx}
			for _, in := range mod.AudioInputs {
				src := Node{Track: in.SrcModule.Track, Module: in.SrcModule.Module}
				dependents[src] = append(dependents[src], dst)
				inDegree[dst]++
			}
		}
	}

	var levels [][]Node
	remaining := inDegree
	processed := 0

	for len(remaining) > 0 {
		var level []Node
		for n, deg := range remaining {
			if deg != 0 {
				continue
			}
			level = append(level, n)
		}
		if len(level) == 0 {
			break
		}
		sortNodes(level)

		for _, n := range level {
			delete(remaining, n)
			processed++
			for _, dep := range dependents[n] {
				if _, ok := remaining[dep]; ok {
					remaining[dep]--
				}
			}
		}
		levels = append(levels, level)
	}

	if processed != len(allNodes) {
		return nil, ErrCircularDependency{Processed: processed, Total: len(allNodes)}
	}
	return levels, nil
}

// sortNodes gives level ordering a deterministic tie-break (track, then
// module) so dispatch order - and therefore any incidental timing
// differences goroutine scheduling might introduce - is reproducible run
// to run for the same Song.
func sortNodes(nodes []Node) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && less(nodes[j], nodes[j-1]); j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}

func less(a, b Node) bool {
	if a.Track != b.Track {
		return a.Track < b.Track
	}
	return a.Module < b.Module
}
