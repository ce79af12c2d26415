package personalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutor-rag/internal/models"
)

func TestDeriveStyle(t *testing.T) {
	physicsTopics := []string{"force", "gravity"}

	t.Run("Weak physics student on a physics question gets simple vocabulary", func(t *testing.T) {
		profile := models.StudentProfile{UserType: models.WeakPhysics, WeakSubjects: []string{"physics"}}
		style := DeriveStyle(profile, physicsTopics)

		assert.Equal(t, VocabSimple, style.Vocabulary)
		assert.Equal(t, ExamplesHigh, style.Examples)
		assert.NotEmpty(t, style.Guidelines)
	})

	t.Run("Strong physics student on the same question gets advanced vocabulary", func(t *testing.T) {
		profile := models.StudentProfile{UserType: models.StrongPhysics}
		style := DeriveStyle(profile, physicsTopics)

		assert.Equal(t, VocabAdvanced, style.Vocabulary)
		assert.Equal(t, ExamplesLow, style.Examples)
	})

	t.Run("Weak physics student on a biology question stays neutral", func(t *testing.T) {
		profile := models.StudentProfile{UserType: models.WeakPhysics}
		style := DeriveStyle(profile, []string{"cell"})

		assert.Equal(t, VocabStandard, style.Vocabulary)
		assert.Equal(t, ExamplesMedium, style.Examples)
	})

	t.Run("Declared weak subject overlapping the question simplifies", func(t *testing.T) {
		profile := models.StudentProfile{UserType: models.General, WeakSubjects: []string{"chemistry"}}
		style := DeriveStyle(profile, []string{"atoms"})

		assert.Equal(t, VocabSimple, style.Vocabulary)
		assert.Contains(t, style.ToneNote, "chemistry")
	})

	t.Run("General profile maps to the neutral directive", func(t *testing.T) {
		style := DeriveStyle(models.StudentProfile{UserType: models.General}, physicsTopics)
		assert.Equal(t, neutralDirective, style)
	})

	t.Run("Total over every profile and subject combination", func(t *testing.T) {
		profiles := []models.StudentType{
			models.WeakPhysics, models.WeakChemistry, models.WeakBiology,
			models.StrongPhysics, models.StrongChemistry, models.StrongBiology,
			models.General,
		}
		topicSets := [][]string{
			nil, {"matter"}, {"motion"}, {"cell"}, {"gravity", "atoms", "health"},
		}
		for _, p := range profiles {
			for _, topics := range topicSets {
				style := DeriveStyle(models.StudentProfile{UserType: p}, topics)
				require.NotEmpty(t, style.Vocabulary, "profile %s topics %v", p, topics)
				require.NotEmpty(t, style.Examples, "profile %s topics %v", p, topics)
			}
		}
	})
}

func TestApplied(t *testing.T) {
	t.Run("General with no weak subjects is not personalized", func(t *testing.T) {
		assert.False(t, Applied(models.StudentProfile{UserType: models.General}))
	})

	t.Run("Any non-general type is personalized", func(t *testing.T) {
		assert.True(t, Applied(models.StudentProfile{UserType: models.WeakBiology}))
	})

	t.Run("Weak subjects alone trigger personalization", func(t *testing.T) {
		assert.True(t, Applied(models.StudentProfile{UserType: models.General, WeakSubjects: []string{"physics"}}))
	})
}

func TestMatchTopics(t *testing.T) {
	t.Run("Finds topics in the query", func(t *testing.T) {
		topics := MatchTopics("Why does gravity pull objects down?", nil)
		assert.Contains(t, topics, "gravity")
	})

	t.Run("Finds topics in retrieved excerpts", func(t *testing.T) {
		chunks := []models.RetrievedChunk{
			{Chunk: models.Chunk{Content: "Atoms combine to form molecules."}},
		}
		topics := MatchTopics("Tell me more", chunks)
		assert.Contains(t, topics, "atoms")
	})

	t.Run("Result is sorted and deduplicated", func(t *testing.T) {
		topics := MatchTopics("force force pressure and energy", nil)
		assert.Equal(t, []string{"force", "work_energy"}, topics)
	})

	t.Run("No known topic yields empty", func(t *testing.T) {
		assert.Empty(t, MatchTopics("completely unrelated cooking recipe", nil))
	})
}

func TestSubjectsOf(t *testing.T) {
	t.Run("Maps topics to deduplicated subjects", func(t *testing.T) {
		subjects := SubjectsOf([]string{"gravity", "motion", "atoms"})
		assert.Equal(t, []string{"chemistry", "physics"}, subjects)
	})

	t.Run("Unknown topics are ignored", func(t *testing.T) {
		assert.Empty(t, SubjectsOf([]string{"astrology"}))
	})
}
