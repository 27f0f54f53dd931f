package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ticktrack/core/pkg/model"
)

func songWithChain(tracks, modulesPerTrack int) *model.Song {
	s := model.New("t", 120, 4, 48000)
	s.Tracks = make([]model.Track, tracks)
	for i := range s.Tracks {
		s.Tracks[i] = *model.NewTrack("t")
		s.Tracks[i].Modules = make([]model.Module, modulesPerTrack)
		for j := 1; j < modulesPerTrack; j++ {
			s.Tracks[i].Modules[j].AudioInputs = []model.AudioInput{
				{SrcModule: model.ModuleRef{Track: i, Module: j - 1}},
			}
		}
	}
	return s
}

func TestBuildLevelsLinearChainOneNodePerLevel(t *testing.T) {
	s := songWithChain(1, 4)
	levels, err := BuildLevels(s)
	require.NoError(t, err)
	require.Len(t, levels, 4)
	for i, lvl := range levels {
		require.Equal(t, []Node{{Track: 0, Module: i}}, lvl)
	}
}

func TestBuildLevelsIndependentTracksShareLevel(t *testing.T) {
	s := songWithChain(3, 1)
	levels, err := BuildLevels(s)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.Len(t, levels[0], 3)
}

func TestBuildLevelsDetectsDirectCycle(t *testing.T) {
	s := model.New("t", 120, 4, 48000)
	s.Tracks[0].Modules = []model.Module{{}, {}}
	s.Tracks[0].Modules[0].AudioInputs = []model.AudioInput{{SrcModule: model.ModuleRef{Track: 0, Module: 1}}}
	s.Tracks[0].Modules[1].AudioInputs = []model.AudioInput{{SrcModule: model.ModuleRef{Track: 0, Module: 0}}}

	_, err := BuildLevels(s)
	require.Error(t, err)
	var cycleErr ErrCircularDependency
	require.ErrorAs(t, err, &cycleErr)
	require.Equal(t, 0, cycleErr.Processed)
	require.Equal(t, 2, cycleErr.Total)
}

func TestBuildLevelsDependencyFreeMasterLandsInLevelZero(t *testing.T) {
	s := model.New("t", 120, 4, 48000)
	s.Tracks[0].Modules = []model.Module{{}}
	s.Tracks = append(s.Tracks, *model.NewTrack("a"))
	s.Tracks[1].Modules = []model.Module{{}}

	levels, err := BuildLevels(s)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.ElementsMatch(t, []Node{{Track: 0, Module: 0}, {Track: 1, Module: 0}}, levels[0])
}

// TestBuildLevelsRespectsDependencyOrder is a property test: for any
// randomly generated DAG of modules (edges only ever point from an earlier
// (track, module) position to a later one in a fixed global order, so the
// graph is acyclic by construction), every dependency's level must come strictly
// before its dependent's level, and every node must appear in exactly one
// level.
func TestBuildLevelsRespectsDependencyOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numTracks := rapid.IntRange(1, 4).Draw(rt, "numTracks")
		s := model.New("t", 120, 4, 48000)
		s.Tracks = make([]model.Track, numTracks)

		type ref struct{ track, module int }
		var allRefs []ref

		for i := 0; i < numTracks; i++ {
			s.Tracks[i] = *model.NewTrack("t")
			numModules := rapid.IntRange(0, 4).Draw(rt, "numModules")
			s.Tracks[i].Modules = make([]model.Module, numModules)
			for j := 0; j < numModules; j++ {
				allRefs = append(allRefs, ref{i, j})
			}
		}

		for i := 0; i < numTracks; i++ {
			for j := range s.Tracks[i].Modules {
				if len(allRefs) == 0 {
					continue
				}
				numEdges := rapid.IntRange(0, 2).Draw(rt, "numEdges")
				for e := 0; e < numEdges; e++ {
					// Restrict candidates to refs that strictly precede (i,
					// j) in a fixed global order, guaranteeing acyclicity.
					var candidates []ref
					for _, cand := range allRefs {
						if cand.track < i || (cand.track == i && cand.module < j) {
							candidates = append(candidates, cand)
						}
					}
					if len(candidates) == 0 {
						continue
					}
					pick := candidates[rapid.IntRange(0, len(candidates)-1).Draw(rt, "pick")]
					s.Tracks[i].Modules[j].AudioInputs = append(s.Tracks[i].Modules[j].AudioInputs, model.AudioInput{
						SrcModule: model.ModuleRef{Track: pick.track, Module: pick.module},
					})
				}
			}
		}

		levels, err := BuildLevels(s)
		require.NoError(rt, err)

		levelOf := make(map[Node]int)
		for li, lvl := range levels {
			for _, n := range lvl {
				levelOf[n] = li
			}
		}
		require.Len(rt, levelOf, len(allRefs))

		for i := 0; i < numTracks; i++ {
			for j, mod := range s.Tracks[i].Modules {
				dst := Node{Track: i, Module: j}
				for _, in := range mod.AudioInputs {
					src := Node{Track: in.SrcModule.Track, Module: in.SrcModule.Module}
					require.Less(rt, levelOf[src], levelOf[dst])
				}
			}
		}
	})
}
